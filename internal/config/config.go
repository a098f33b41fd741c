package config

import (
	"fmt"
	"log"
	"os"
	"path"
)

const (
	SELF_NAME        = "aws-assume"
	PROFILE_PREFIX   = "assumed-"
	SHARED_CREDS_VAR = "AWS_SHARED_CREDENTIALS_FILE"
	PROFILE_VAR      = "AWS_PROFILE"
	// DEFAULT_DURATION is the session duration in seconds requested
	// from STS unless the caller overrides it.
	DEFAULT_DURATION int32 = 3600
)

// Settings holds the resolved runtime configuration for a single
// invocation. Values come from flags, the viper config file and env in
// the usual precedence order; defaults are filled in by the cmd layer.
type Settings struct {
	CatalogFile string
	CredsFile   string
	AuditFile   string
	LockDir     string
	Region      string
	Duration    int32
}

func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatal("unable to get the user home dir")
	}
	return home
}

// DataDir is where the catalog, audit log and lock files live.
func DataDir() string {
	return path.Join(HomeDir(), fmt.Sprintf(".%s", SELF_NAME))
}

func DefaultCatalogFile() string {
	return path.Join(DataDir(), "accounts.json")
}

func DefaultAuditFile() string {
	return path.Join(DataDir(), "access.log")
}

func DefaultLockDir() string {
	return path.Join(DataDir(), "lock")
}

// DefaultCredsFile resolves the shared credentials file the same way the
// aws cli does - env var override first, then ~/.aws/credentials.
func DefaultCredsFile() string {
	if overridden, exists := os.LookupEnv(SHARED_CREDS_VAR); exists {
		return overridden
	}
	return path.Join(HomeDir(), ".aws", "credentials")
}

// ProfileName derives the profile section written for an account.
func ProfileName(accountName string) string {
	return fmt.Sprintf("%s%s", PROFILE_PREFIX, accountName)
}
