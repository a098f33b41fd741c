// auditlog
//
// Append-only record of every assumption attempt and identity check.
// One line per terminal outcome; entries are never mutated or removed.
package auditlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/werf/lockgate"
	"github.com/werf/lockgate/pkg/file_locker"
)

var (
	ErrAppend              = errors.New("unable to append audit entry")
	ErrUnableToAcquireLock = errors.New("cannot acquire audit lock")
)

type Action string

const (
	ActionAssume Action = "assume"
	ActionWhoami Action = "whoami"
	ActionList   Action = "list"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

type Entry struct {
	Time    time.Time
	Account string
	Action  Action
	Status  Status
	Detail  string
}

// Line renders the durable tab-separated form. The detail is flattened
// so one entry can never span or split records.
func (e Entry) Line() string {
	detail := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(e.Detail)
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%s\n",
		e.Time.UTC().Format(time.RFC3339), e.Account, e.Action, e.Status, detail)
}

type Log struct {
	path         string
	locker       lockgate.Locker
	lockResource string
}

func New(path, lockDir string) (*Log, error) {
	locker, err := file_locker.NewFileLocker(lockDir)
	if err != nil {
		return nil, fmt.Errorf("cannot setup lock dir %s: %s, %w", lockDir, err, ErrAppend)
	}
	return &Log{path: path, locker: locker, lockResource: "audit-log"}, nil
}

// Append writes exactly one record. The advisory lock plus the O_APPEND
// single write keeps concurrent invocations from interleaving
// mid-record.
func (l *Log) Append(e Entry) error {
	acquired, lock, err := l.locker.Acquire(l.lockResource, lockgate.AcquireOptions{Shared: false, Timeout: 1 * time.Minute})
	if err != nil {
		return fmt.Errorf("%s, %w", err, ErrUnableToAcquireLock)
	}
	if !acquired {
		return fmt.Errorf("audit log is locked by another invocation, %w", ErrUnableToAcquireLock)
	}
	defer l.locker.Release(lock)

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("%s, %w", err, ErrAppend)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("%s, %w", err, ErrAppend)
	}
	defer f.Close()
	if _, err := f.WriteString(e.Line()); err != nil {
		return fmt.Errorf("%s, %w", err, ErrAppend)
	}
	return nil
}
