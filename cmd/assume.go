package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dnitsch/aws-assume/internal/auditlog"
	"github.com/dnitsch/aws-assume/internal/catalog"
	"github.com/dnitsch/aws-assume/internal/cmdutils"
	"github.com/dnitsch/aws-assume/internal/engine"
	"github.com/dnitsch/aws-assume/internal/gateway"
	"github.com/dnitsch/aws-assume/internal/profilestore"
)

var (
	duration  int32
	assumeCmd = &cobra.Command{
		Use:   "assume <account-name>",
		Short: "Assume the role configured for a catalog account",
		Long: `Assume the role configured for the named account, store the temporary
credentials under the assumed-<account-name> profile and print the export
instruction for downstream tooling.`,
		Args: cobra.ExactArgs(1),
		RunE: assume,
	}
)

func init() {
	assumeCmd.PersistentFlags().Int32VarP(&duration, "duration", "d", 0, "Override the default session duration in seconds [900-43200]")
	rootCmd.AddCommand(assumeCmd)
}

func assume(cmd *cobra.Command, args []string) error {
	s := settings()
	if duration > 0 {
		s.Duration = duration
	}

	cat, err := catalog.Load(s.CatalogFile)
	if err != nil {
		return err
	}
	audit, err := auditlog.New(s.AuditFile, s.LockDir)
	if err != nil {
		return err
	}
	store, err := profilestore.New(s.CredsFile, s.LockDir)
	if err != nil {
		return err
	}
	gw, err := gateway.New(cmd.Context(), s.Region)
	if err != nil {
		return err
	}

	eng := engine.New(cat, gw, audit, s.Duration)
	return cmdutils.Assume(cmd.Context(), os.Stdout, eng, store, s.Region, args[0])
}
