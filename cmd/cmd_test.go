package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dnitsch/aws-assume/internal/auditlog"
	"github.com/dnitsch/aws-assume/internal/catalog"
	"github.com/dnitsch/aws-assume/internal/engine"
	"github.com/dnitsch/aws-assume/internal/gateway"
	"github.com/dnitsch/aws-assume/internal/profilestore"
)

func Test_exitCode_with(t *testing.T) {
	ttests := map[string]struct {
		err  error
		want int
	}{
		"catalog validation": {
			err:  fmt.Errorf("bad catalog, %w", catalog.ErrInvalidCatalog),
			want: ExitValidation,
		},
		"account not found": {
			err:  fmt.Errorf("no such account, %w", catalog.ErrNotFound),
			want: ExitLookup,
		},
		"account not assumable": {
			err:  fmt.Errorf("no role, %w", engine.ErrNotAssumable),
			want: ExitLookup,
		},
		"gateway failure": {
			err:  &gateway.Error{Kind: gateway.KindAccessDenied, Err: errors.New("denied")},
			want: ExitGateway,
		},
		"wrapped gateway failure": {
			err:  fmt.Errorf("throttled after 3 attempts: %w", &gateway.Error{Kind: gateway.KindThrottled, Err: errors.New("rate exceeded")}),
			want: ExitGateway,
		},
		"profile store failure": {
			err:  fmt.Errorf("disk full, %w", profilestore.ErrStore),
			want: ExitStore,
		},
		"audit append failure": {
			err:  fmt.Errorf("disk full, %w", auditlog.ErrAppend),
			want: ExitStore,
		},
		"catalog io failure": {
			err:  fmt.Errorf("perm denied, %w", catalog.ErrCatalogIO),
			want: ExitStore,
		},
		"anything else": {
			err:  errors.New("boom"),
			want: ExitGeneric,
		},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("got %d, wanted %d", got, tt.want)
			}
		})
	}
}
