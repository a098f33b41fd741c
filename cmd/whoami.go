package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dnitsch/aws-assume/internal/auditlog"
	"github.com/dnitsch/aws-assume/internal/cmdutils"
	"github.com/dnitsch/aws-assume/internal/gateway"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the caller identity resolved from the base credentials",
	RunE:  whoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func whoami(cmd *cobra.Command, args []string) error {
	s := settings()

	audit, err := auditlog.New(s.AuditFile, s.LockDir)
	if err != nil {
		return err
	}
	gw, err := gateway.New(cmd.Context(), s.Region)
	if err != nil {
		return err
	}
	return cmdutils.WhoAmI(cmd.Context(), os.Stdout, gw, audit)
}
