package cmdutils_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dnitsch/aws-assume/internal/auditlog"
	"github.com/dnitsch/aws-assume/internal/catalog"
	"github.com/dnitsch/aws-assume/internal/cmdutils"
	"github.com/dnitsch/aws-assume/internal/engine"
	"github.com/dnitsch/aws-assume/internal/gateway"
)

type mockAssumer struct {
	res *engine.Result
	err error
}

func (m *mockAssumer) Assume(ctx context.Context, name string) (*engine.Result, error) {
	return m.res, m.err
}

type mockWriter struct {
	profiles map[string]gateway.Credentials
	regions  map[string]string
	err      error
}

func (m *mockWriter) Upsert(profileName string, creds gateway.Credentials, region string) error {
	if m.err != nil {
		return m.err
	}
	if m.profiles == nil {
		m.profiles = map[string]gateway.Credentials{}
		m.regions = map[string]string{}
	}
	m.profiles[profileName] = creds
	m.regions[profileName] = region
	return nil
}

type mockIdentity struct {
	identity *gateway.Identity
	err      error
}

func (m *mockIdentity) CallerIdentity(ctx context.Context) (*gateway.Identity, error) {
	return m.identity, m.err
}

type memAudit struct {
	entries []auditlog.Entry
}

func (m *memAudit) Append(e auditlog.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func Test_Assume_persists_profile_and_prints_export(t *testing.T) {
	expiry := time.Date(2026, 8, 25, 15, 0, 0, 0, time.UTC)
	res := &engine.Result{
		Account:     catalog.AccountRecord{Name: "dev", AccountID: "093218045525"},
		SessionName: "aws-assume-dev-1",
		ProfileName: "assumed-dev",
		Credentials: gateway.Credentials{AccessKeyID: "AKIA123", SecretAccessKey: "s", SessionToken: "tok", Expires: expiry},
	}
	store := &mockWriter{}
	out := &bytes.Buffer{}

	err := cmdutils.Assume(context.TODO(), out, &mockAssumer{res: res}, store, "eu-west-1", "dev")
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	if got, ok := store.profiles["assumed-dev"]; !ok || got.AccessKeyID != "AKIA123" {
		t.Errorf("profile not persisted: %+v", store.profiles)
	}
	if store.regions["assumed-dev"] != "eu-west-1" {
		t.Errorf("region not passed through: %q", store.regions["assumed-dev"])
	}
	for _, want := range []string{"export AWS_PROFILE=assumed-dev", "2026-08-25T15:00:00Z"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func Test_Assume_engine_failure_skips_store(t *testing.T) {
	wantErr := fmt.Errorf("account %q is not in the catalog, %w", "ghost", catalog.ErrNotFound)
	store := &mockWriter{}

	err := cmdutils.Assume(context.TODO(), &bytes.Buffer{}, &mockAssumer{err: wantErr}, store, "", "ghost")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("got %v, wanted %s", err, catalog.ErrNotFound)
	}
	if len(store.profiles) != 0 {
		t.Errorf("store must not be written on failure: %+v", store.profiles)
	}
}

func Test_WhoAmI_with(t *testing.T) {
	ttests := map[string]struct {
		svc        *mockIdentity
		expectErr  bool
		wantStatus auditlog.Status
		wantOut    string
	}{
		"prints identity and audits success": {
			svc: &mockIdentity{identity: &gateway.Identity{
				Account: "949396396071",
				Arn:     "arn:aws:iam::949396396071:user/op",
				UserID:  "AIDA123",
			}},
			wantStatus: auditlog.StatusSuccess,
			wantOut:    "arn:aws:iam::949396396071:user/op",
		},
		"gateway failure audited": {
			svc:        &mockIdentity{err: &gateway.Error{Kind: gateway.KindNetwork, Err: errors.New("dial tcp: i/o timeout")}},
			expectErr:  true,
			wantStatus: auditlog.StatusFailure,
		},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			audit := &memAudit{}
			out := &bytes.Buffer{}

			err := cmdutils.WhoAmI(context.TODO(), out, tt.svc, audit)
			if tt.expectErr && err == nil {
				t.Error("got <nil>, wanted error")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("got %s, wanted <nil>", err)
			}
			if len(audit.entries) != 1 {
				t.Fatalf("got %d audit entries, wanted 1", len(audit.entries))
			}
			entry := audit.entries[0]
			if entry.Action != auditlog.ActionWhoami || entry.Status != tt.wantStatus {
				t.Errorf("unexpected audit entry: %+v", entry)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out.String())
			}
		})
	}
}

func Test_List_prints_entries_in_order(t *testing.T) {
	audit := &memAudit{}
	out := &bytes.Buffer{}
	records := []catalog.AccountRecord{
		{Name: "main", AccountID: "949396396071", Description: "Main AWS Account"},
		{Name: "dev", AccountID: "093218045525", RoleArn: "arn:aws:iam::093218045525:role/CrossAccountAdminRole"},
	}

	if err := cmdutils.List(out, records, audit); err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	text := out.String()
	mainIdx := strings.Index(text, "main")
	devIdx := strings.Index(text, "dev")
	if mainIdx < 0 || devIdx < 0 || mainIdx > devIdx {
		t.Errorf("entries out of order:\n%s", text)
	}
	if !strings.Contains(text, "arn:aws:iam::093218045525:role/CrossAccountAdminRole") {
		t.Errorf("role arn missing:\n%s", text)
	}
	// description falls back to N/A
	if !strings.Contains(text, "N/A") {
		t.Errorf("missing description placeholder:\n%s", text)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != auditlog.ActionList {
		t.Errorf("wanted one list audit entry, got %+v", audit.entries)
	}
}
