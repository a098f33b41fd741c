// cmdutils
//
// Wires catalog, engine, profile store and audit log for each command
// so the cobra layer stays declarative.
package cmdutils

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dnitsch/aws-assume/internal/auditlog"
	"github.com/dnitsch/aws-assume/internal/catalog"
	"github.com/dnitsch/aws-assume/internal/config"
	"github.com/dnitsch/aws-assume/internal/engine"
	"github.com/dnitsch/aws-assume/internal/gateway"
	"github.com/dnitsch/aws-assume/internal/util"
)

type Assumer interface {
	Assume(ctx context.Context, name string) (*engine.Result, error)
}

type IdentityApi interface {
	CallerIdentity(ctx context.Context) (*gateway.Identity, error)
}

type ProfileWriter interface {
	Upsert(profileName string, creds gateway.Credentials, region string) error
}

type Auditor interface {
	Append(e auditlog.Entry) error
}

// Assume runs the engine end to end and persists the resulting profile.
// The engine has already written the audit entry for its terminal state.
func Assume(ctx context.Context, w io.Writer, eng Assumer, store ProfileWriter, region, name string) error {
	res, err := eng.Assume(ctx, name)
	if err != nil {
		return err
	}
	if err := store.Upsert(res.ProfileName, res.Credentials, region); err != nil {
		return err
	}
	fmt.Fprintf(w, "Assumed role in account %q (%s)\n", res.Account.Name, res.Account.AccountID)
	fmt.Fprintf(w, "Session expires at: %s\n", res.Credentials.Expires.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "\nTo use this profile, run:\n  export %s=%s\n", config.PROFILE_VAR, res.ProfileName)
	return nil
}

// WhoAmI resolves the caller identity directly through the gateway,
// bypassing the engine.
func WhoAmI(ctx context.Context, w io.Writer, svc IdentityApi, audit Auditor) error {
	identity, err := svc.CallerIdentity(ctx)
	if err != nil {
		record(audit, "", auditlog.ActionWhoami, auditlog.StatusFailure, err.Error())
		return err
	}
	record(audit, "", auditlog.ActionWhoami, auditlog.StatusSuccess, identity.Arn)
	fmt.Fprintf(w, "Account: %s\n", identity.Account)
	fmt.Fprintf(w, "Arn:     %s\n", identity.Arn)
	fmt.Fprintf(w, "UserId:  %s\n", identity.UserID)
	return nil
}

// List prints the catalog entries in insertion order.
func List(w io.Writer, records []catalog.AccountRecord, audit Auditor) error {
	for _, rec := range records {
		desc := rec.Description
		if desc == "" {
			desc = "N/A"
		}
		fmt.Fprintf(w, "Name:        %s\n", rec.Name)
		fmt.Fprintf(w, "Account ID:  %s\n", rec.AccountID)
		fmt.Fprintf(w, "Description: %s\n", desc)
		if rec.RoleArn != "" {
			fmt.Fprintf(w, "Role ARN:    %s\n", rec.RoleArn)
		}
		fmt.Fprintln(w, "------------------------------------------------------------")
	}
	record(audit, "", auditlog.ActionList, auditlog.StatusSuccess, fmt.Sprintf("%d accounts", len(records)))
	return nil
}

func record(audit Auditor, account string, action auditlog.Action, status auditlog.Status, detail string) {
	entry := auditlog.Entry{
		Time:    time.Now(),
		Account: account,
		Action:  action,
		Status:  status,
		Detail:  detail,
	}
	if err := audit.Append(entry); err != nil {
		util.Writeln("warning: failed to write audit log: %s", err)
	}
}
