package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// tokenSecret returns auth.secret, or fetches it from SSM Parameter Store
// when only auth.secret_ssm_param is set.
func tokenSecret(ctx context.Context) ([]byte, error) {
	if cfg.Auth.Secret != "" {
		return []byte(cfg.Auth.Secret), nil
	}
	if cfg.Auth.SecretSSMParam == "" {
		return nil, errors.New("one of auth.secret or auth.secret_ssm_param must be set")
	}

	awsCfg, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	out, err := ssm.NewFromConfig(awsCfg).GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(cfg.Auth.SecretSSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get token secret from ssm: %w", err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return nil, fmt.Errorf("ssm parameter %q is empty", cfg.Auth.SecretSSMParam)
	}

	return []byte(aws.ToString(out.Parameter.Value)), nil
}
