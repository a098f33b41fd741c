// profilestore
//
// Durable section-per-profile persistence of issued credentials in the
// shared AWS credentials file. Writes never happen in place: the full
// file is read, the target section replaced in memory, and the result
// renamed over the original, all under an advisory lock so racing
// invocations serialize their read-modify-write cycles.
package profilestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/werf/lockgate"
	"github.com/werf/lockgate/pkg/file_locker"
	ini "gopkg.in/ini.v1"

	"github.com/dnitsch/aws-assume/internal/gateway"
)

var (
	ErrStore               = errors.New("credential store failure")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrUnableToAcquireLock = errors.New("cannot acquire credentials file lock")
)

const (
	keyAccessKeyID     = "aws_access_key_id"
	keySecretAccessKey = "aws_secret_access_key"
	keySessionToken    = "aws_session_token"
	keyExpiration      = "aws_session_expiration"
	keyRegion          = "region"
)

// Profile is one named section read back from the store.
type Profile struct {
	Name        string
	Credentials gateway.Credentials
	Region      string
}

type Store struct {
	path         string
	locker       lockgate.Locker
	lockResource string
}

func New(path, lockDir string) (*Store, error) {
	locker, err := file_locker.NewFileLocker(lockDir)
	if err != nil {
		return nil, fmt.Errorf("cannot setup lock dir %s: %s, %w", lockDir, err, ErrStore)
	}
	return &Store{path: path, locker: locker, lockResource: "credentials-file"}, nil
}

func (s *Store) lock(shared bool) (func(), error) {
	acquired, lock, err := s.locker.Acquire(s.lockResource, lockgate.AcquireOptions{Shared: shared, Timeout: 1 * time.Minute})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToAcquireLock)
	}
	if !acquired {
		return nil, fmt.Errorf("credentials file is locked by another invocation, %w", ErrUnableToAcquireLock)
	}
	return func() { s.locker.Release(lock) }, nil
}

// Upsert replaces or inserts the section for profileName, preserving all
// unrelated sections, and atomically swaps the new file in.
func (s *Store) Upsert(profileName string, creds gateway.Credentials, region string) error {
	release, err := s.lock(false)
	if err != nil {
		return err
	}
	defer release()

	cfg, err := ini.LooseLoad(s.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %s, %w", s.path, err, ErrStore)
	}
	section := cfg.Section(profileName)
	section.Key(keyAccessKeyID).SetValue(creds.AccessKeyID)
	section.Key(keySecretAccessKey).SetValue(creds.SecretAccessKey)
	section.Key(keySessionToken).SetValue(creds.SessionToken)
	section.Key(keyExpiration).SetValue(creds.Expires.UTC().Format(time.RFC3339))
	if region != "" {
		section.Key(keyRegion).SetValue(region)
	}
	return s.replaceWith(cfg)
}

func (s *Store) replaceWith(cfg *ini.File) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %s, %w", dir, err, ErrStore)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temp credentials file: %s, %w", err, ErrStore)
	}
	defer os.Remove(tmp.Name())
	if _, err := cfg.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to serialize credentials: %s, %w", err, ErrStore)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp credentials file: %s, %w", err, ErrStore)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set credentials file mode: %s, %w", err, ErrStore)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %s, %w", s.path, err, ErrStore)
	}
	return nil
}

// Read returns the stored profile. Expired profiles are returned as-is -
// staleness is visible through Credentials.Expires but never cleaned up
// here.
func (s *Store) Read(profileName string) (*Profile, error) {
	release, err := s.lock(true)
	if err != nil {
		return nil, err
	}
	defer release()

	cfg, err := ini.LooseLoad(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %s, %w", s.path, err, ErrStore)
	}
	if !cfg.HasSection(profileName) {
		return nil, fmt.Errorf("no section %q in %s, %w", profileName, s.path, ErrProfileNotFound)
	}
	section := cfg.Section(profileName)
	expires, _ := time.Parse(time.RFC3339, section.Key(keyExpiration).String())
	return &Profile{
		Name: profileName,
		Credentials: gateway.Credentials{
			AccessKeyID:     section.Key(keyAccessKeyID).String(),
			SecretAccessKey: section.Key(keySecretAccessKey).String(),
			SessionToken:    section.Key(keySessionToken).String(),
			Expires:         expires,
		},
		Region: section.Key(keyRegion).String(),
	}, nil
}
