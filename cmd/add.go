package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dnitsch/aws-assume/internal/catalog"
)

var (
	addName        string
	addAccountID   string
	addRoleArn     string
	addDescription string
	addCmd         = &cobra.Command{
		Use:   "add-account",
		Short: "Add an account to the catalog",
		Long: `Add an account to the catalog. The complete catalog is re-validated
before anything is persisted, so a bad entry never reaches disk.`,
		RunE: addAccount,
	}
)

func init() {
	addCmd.PersistentFlags().StringVarP(&addName, "name", "n", "", "Unique account name")
	addCmd.MarkPersistentFlagRequired("name")
	addCmd.PersistentFlags().StringVarP(&addAccountID, "account-id", "a", "", "12 digit AWS account id")
	addCmd.MarkPersistentFlagRequired("account-id")
	addCmd.PersistentFlags().StringVarP(&addRoleArn, "role-arn", "r", "", "Role ARN to assume in the account; omit for the base account")
	addCmd.PersistentFlags().StringVarP(&addDescription, "description", "", "", "Free text description")
	rootCmd.AddCommand(addCmd)
}

func addAccount(cmd *cobra.Command, args []string) error {
	s := settings()

	cat, err := catalog.Load(s.CatalogFile)
	if err != nil {
		return err
	}
	if err := cat.Add(catalog.AccountRecord{
		Name:        addName,
		AccountID:   addAccountID,
		RoleArn:     addRoleArn,
		Description: addDescription,
	}); err != nil {
		return err
	}
	fmt.Printf("Added account %q to %s\n", addName, cat.Path())
	return nil
}
