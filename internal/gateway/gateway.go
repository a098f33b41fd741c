// gateway
//
// Thin contract around the STS boundary. Everything upstream depends on
// the StsApi interface and the classified *Error, never on the sdk
// client directly.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

var ErrGateway = errors.New("identity gateway failure")

// Kind classifies a gateway failure for the retry policy upstream.
type Kind string

const (
	KindAccessDenied Kind = "AccessDenied"
	KindThrottled    Kind = "Throttled"
	KindInvalidRole  Kind = "InvalidRole"
	KindNetwork      Kind = "Network"
	KindUnknown      Kind = "Unknown"
)

const (
	accessDeniedHint = "check the role trust policy allows sts:AssumeRole for your user and that the role exists in the target account"
	invalidRoleHint  = "check the role ARN spelling and casing in the catalog"
)

// Error wraps an STS failure with its classification and a remediation
// hint. errors.Is(err, ErrGateway) matches any classified failure.
type Error struct {
	Kind Kind
	Hint string
	Err  error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Err, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrGateway
}

// Classify maps an sdk error onto the closed Kind set. Smithy API error
// codes take precedence; anything carrying a net.Error is a network
// failure; the rest is surfaced verbatim as Unknown.
func Classify(err error) *Error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException":
			return &Error{Kind: KindAccessDenied, Hint: accessDeniedHint, Err: err}
		case "Throttling", "ThrottlingException", "TooManyRequestsException":
			return &Error{Kind: KindThrottled, Err: err}
		case "NoSuchEntity", "ValidationError", "MalformedPolicyDocument":
			return &Error{Kind: KindInvalidRole, Hint: invalidRoleHint, Err: err}
		default:
			return &Error{Kind: KindUnknown, Err: err}
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindNetwork, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindNetwork, Err: err}
	}
	return &Error{Kind: KindUnknown, Err: err}
}

// Credentials as issued by STS. Immutable once returned - a refresh is
// always a new issuance.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expires         time.Time
}

type Identity struct {
	Account string
	Arn     string
	UserID  string
}

type StsApi interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type Gateway struct {
	svc StsApi
}

// New builds a gateway over the ambient base credentials.
func New(ctx context.Context, region string) (*Gateway, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %s, %w", err, ErrGateway)
	}
	return &Gateway{svc: sts.NewFromConfig(cfg)}, nil
}

// NewWithApi wires an explicit StsApi, used by tests.
func NewWithApi(svc StsApi) *Gateway {
	return &Gateway{svc: svc}
}

func (g *Gateway) AssumeRole(ctx context.Context, roleArn, sessionName string, durationSeconds int32) (*Credentials, error) {
	out, err := g.svc.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int32(durationSeconds),
	})
	if err != nil {
		return nil, Classify(err)
	}
	return &Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Expires:         aws.ToTime(out.Credentials.Expiration).UTC(),
	}, nil
}

func (g *Gateway) CallerIdentity(ctx context.Context) (*Identity, error) {
	out, err := g.svc.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, Classify(err)
	}
	return &Identity{
		Account: aws.ToString(out.Account),
		Arn:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}
