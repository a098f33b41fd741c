// engine
//
// Drives a single assumption attempt: resolve the account in the
// catalog, request credentials through the gateway with a bounded retry
// policy, and record exactly one audit entry per terminal outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dnitsch/aws-assume/internal/auditlog"
	"github.com/dnitsch/aws-assume/internal/catalog"
	"github.com/dnitsch/aws-assume/internal/config"
	"github.com/dnitsch/aws-assume/internal/gateway"
	"github.com/dnitsch/aws-assume/internal/util"
)

var ErrNotAssumable = errors.New("account has no assumable role")

const (
	// total attempts for a throttled call, first one included
	maxThrottleAttempts = 3
	throttleBaseDelay   = 500 * time.Millisecond
	networkRetryDelay   = 2 * time.Second
)

type CatalogApi interface {
	Get(name string) (catalog.AccountRecord, error)
}

type AssumeRoleApi interface {
	AssumeRole(ctx context.Context, roleArn, sessionName string, durationSeconds int32) (*gateway.Credentials, error)
}

type Auditor interface {
	Append(e auditlog.Entry) error
}

// Result of a successful assumption. ProfileName is the section the
// store will write for these credentials.
type Result struct {
	Account     catalog.AccountRecord
	SessionName string
	ProfileName string
	Credentials gateway.Credentials
}

type Engine struct {
	catalog  CatalogApi
	gateway  AssumeRoleApi
	audit    Auditor
	duration int32

	// seams for tests
	sleep func(time.Duration)
	now   func() time.Time
}

func New(cat CatalogApi, gw AssumeRoleApi, audit Auditor, durationSeconds int32) *Engine {
	if durationSeconds <= 0 {
		durationSeconds = config.DEFAULT_DURATION
	}
	return &Engine{
		catalog:  cat,
		gateway:  gw,
		audit:    audit,
		duration: durationSeconds,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// WithSleep overrides the retry delay sleeper, used by tests.
func (e *Engine) WithSleep(sleep func(time.Duration)) *Engine {
	e.sleep = sleep
	return e
}

// WithClock overrides the time source, used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// SessionName derives a collision-free session name for an account from
// a high resolution timestamp.
func SessionName(accountName string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", config.SELF_NAME, accountName, at.UnixNano())
}

// Assume runs the full state machine for one target account name.
func (e *Engine) Assume(ctx context.Context, name string) (*Result, error) {
	rec, err := e.catalog.Get(name)
	if err != nil {
		e.record(name, auditlog.StatusFailure, err.Error())
		return nil, err
	}
	if !rec.Assumable() {
		err := fmt.Errorf("account %q has no role_arn configured and cannot be assumed, %w", name, ErrNotAssumable)
		e.record(name, auditlog.StatusFailure, err.Error())
		return nil, err
	}

	sessionName := SessionName(name, e.now())
	creds, err := e.request(ctx, rec.RoleArn, sessionName)
	if err != nil {
		e.record(name, auditlog.StatusFailure, err.Error())
		return nil, err
	}

	e.record(name, auditlog.StatusSuccess,
		fmt.Sprintf("session %s expires %s", sessionName, creds.Expires.UTC().Format(time.RFC3339)))

	return &Result{
		Account:     rec,
		SessionName: sessionName,
		ProfileName: config.ProfileName(name),
		Credentials: *creds,
	}, nil
}

// request calls the gateway and applies the per-class retry budget:
// throttling gets jittered exponential backoff up to maxThrottleAttempts
// attempts, a network failure one retry after a short delay, everything
// else is terminal on the first failure.
func (e *Engine) request(ctx context.Context, roleArn, sessionName string) (*gateway.Credentials, error) {
	throttleAttempts := 0
	networkRetried := false

	for {
		creds, err := e.gateway.AssumeRole(ctx, roleArn, sessionName, e.duration)
		if err == nil {
			return creds, nil
		}

		var gwErr *gateway.Error
		if !errors.As(err, &gwErr) {
			return nil, err
		}

		switch gwErr.Kind {
		case gateway.KindThrottled:
			throttleAttempts++
			if throttleAttempts >= maxThrottleAttempts {
				return nil, fmt.Errorf("throttled after %d attempts: %w", throttleAttempts, err)
			}
			delay := backoff(throttleAttempts)
			util.Traceln("throttled, retrying in %s", delay)
			e.sleep(delay)
		case gateway.KindNetwork:
			if networkRetried {
				return nil, err
			}
			networkRetried = true
			util.Traceln("network failure, retrying once in %s", networkRetryDelay)
			e.sleep(networkRetryDelay)
		default:
			// AccessDenied, InvalidRole and Unknown are terminal
			return nil, err
		}
	}
}

func backoff(attempt int) time.Duration {
	base := throttleBaseDelay << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(throttleBaseDelay)))
	return base + jitter
}

// record writes the single terminal audit entry. An audit write failure
// must never suppress the outcome it records, so it is reported as a
// warning only.
func (e *Engine) record(account string, status auditlog.Status, detail string) {
	entry := auditlog.Entry{
		Time:    e.now(),
		Account: account,
		Action:  auditlog.ActionAssume,
		Status:  status,
		Detail:  detail,
	}
	if err := e.audit.Append(entry); err != nil {
		util.Writeln("warning: failed to write audit log: %s", err)
	}
}
