package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dnitsch/aws-assume/internal/auditlog"
	"github.com/dnitsch/aws-assume/internal/catalog"
	"github.com/dnitsch/aws-assume/internal/cmdutils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all catalog accounts",
	RunE:  list,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func list(cmd *cobra.Command, args []string) error {
	s := settings()

	cat, err := catalog.Load(s.CatalogFile)
	if err != nil {
		return err
	}
	audit, err := auditlog.New(s.AuditFile, s.LockDir)
	if err != nil {
		return err
	}
	return cmdutils.List(os.Stdout, cat.List(), audit)
}
