package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dnitsch/aws-assume/internal/auditlog"
	"github.com/dnitsch/aws-assume/internal/catalog"
	"github.com/dnitsch/aws-assume/internal/config"
	"github.com/dnitsch/aws-assume/internal/engine"
	"github.com/dnitsch/aws-assume/internal/gateway"
	"github.com/dnitsch/aws-assume/internal/profilestore"
	"github.com/dnitsch/aws-assume/internal/util"
)

// Exit codes, one per failure class, so scripting callers can branch.
const (
	ExitOK         = 0
	ExitGeneric    = 1
	ExitValidation = 2
	ExitLookup     = 3
	ExitGateway    = 4
	ExitStore      = 5
)

var (
	cfgFile string
	region  string
	verbose bool
	rootCmd = &cobra.Command{
		Use:   config.SELF_NAME,
		Short: "CLI tool for cross-account AWS role assumption",
		Long: `CLI tool for assuming roles across a catalog of known AWS accounts.
Exchanges your base identity for temporary credentials in a target account,
stores them as a named profile in the shared credentials file and records
every attempt in an audit log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		util.ExitWithCode(err, exitCode(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is $HOME/.aws-assume.yaml)")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "", "", "AWS region passed to the STS client and written into new profiles")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(fmt.Sprintf(".%s", config.SELF_NAME))
	}

	viper.SetDefault("catalog_file", config.DefaultCatalogFile())
	viper.SetDefault("credentials_file", config.DefaultCredsFile())
	viper.SetDefault("audit_file", config.DefaultAuditFile())
	viper.SetDefault("lock_dir", config.DefaultLockDir())
	viper.SetDefault("duration", config.DEFAULT_DURATION)
	viper.AutomaticEnv()

	util.IsTraceEnabled = verbose

	if err := viper.ReadInConfig(); err == nil {
		util.Traceln("Using config file: %s", viper.ConfigFileUsed())
	}
}

func settings() config.Settings {
	s := config.Settings{
		CatalogFile: viper.GetString("catalog_file"),
		CredsFile:   viper.GetString("credentials_file"),
		AuditFile:   viper.GetString("audit_file"),
		LockDir:     viper.GetString("lock_dir"),
		Region:      viper.GetString("region"),
		Duration:    viper.GetInt32("duration"),
	}
	if region != "" {
		s.Region = region
	}
	return s
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, catalog.ErrInvalidCatalog):
		return ExitValidation
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, engine.ErrNotAssumable):
		return ExitLookup
	case errors.Is(err, gateway.ErrGateway):
		return ExitGateway
	case errors.Is(err, catalog.ErrCatalogIO),
		errors.Is(err, profilestore.ErrStore),
		errors.Is(err, profilestore.ErrUnableToAcquireLock),
		errors.Is(err, auditlog.ErrAppend),
		errors.Is(err, auditlog.ErrUnableToAcquireLock):
		return ExitStore
	default:
		return ExitGeneric
	}
}
