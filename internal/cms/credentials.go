package cms

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// SSMGetter is the slice of the SSM client credentials loading needs.
type SSMGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// TokenParams names SSM SecureString parameters holding API tokens.
// Blank names are skipped.
type TokenParams struct {
	Delivery string
	Preview  string
}

// LoadTokens reads the tokens named in p from SSM and fills the matching
// fields of o, overriding whatever o already holds for those tokens.
func LoadTokens(ctx context.Context, api SSMGetter, p TokenParams, o *Options) error {
	if api == nil || (p.Delivery == "" && p.Preview == "") {
		return nil
	}
	if p.Delivery != "" {
		v, err := getSecret(ctx, api, p.Delivery)
		if err != nil {
			return err
		}
		o.DeliveryToken = v
	}
	if p.Preview != "" {
		v, err := getSecret(ctx, api, p.Preview)
		if err != nil {
			return err
		}
		o.PreviewToken = v
	}
	return nil
}

func getSecret(ctx context.Context, api SSMGetter, name string) (string, error) {
	out, err := api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get ssm parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("ssm parameter %s has no value", name)
	}
	v := strings.TrimSpace(*out.Parameter.Value)
	if v == "" {
		return "", xerrors.Newf("ssm parameter %s is empty", name)
	}
	return v, nil
}
