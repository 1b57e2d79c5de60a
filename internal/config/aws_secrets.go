package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type secretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// loadAWSSecrets copies the key/value pairs of a JSON secret into the
// environment. Existing variables win unless AWS_SECRETS_MANAGER_OVERWRITE=true.
// A nil client is built from the default AWS credential chain.
func loadAWSSecrets(ctx context.Context, client secretGetter) error {
	secretID := strings.TrimSpace(os.Getenv("AWS_SECRETS_MANAGER_SECRET_ID"))
	if secretID == "" {
		return nil
	}

	versionStage := getEnv("AWS_SECRETS_MANAGER_VERSION_STAGE", "AWSCURRENT")
	overwrite := strings.EqualFold(os.Getenv("AWS_SECRETS_MANAGER_OVERWRITE"), "true")

	if client == nil {
		awsCfg, err := loadAWSConfig(ctx, strings.TrimSpace(os.Getenv("AWS_SECRETS_MANAGER_REGION")))
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		client = secretsmanager.NewFromConfig(awsCfg)
	}

	output, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretID),
		VersionStage: aws.String(versionStage),
	})
	if err != nil {
		return fmt.Errorf("fetch secret %s: %w", secretID, err)
	}

	var payload string
	switch {
	case output.SecretString != nil:
		payload = *output.SecretString
	case len(output.SecretBinary) > 0:
		payload = string(output.SecretBinary)
	default:
		return fmt.Errorf("secret %s has no payload", secretID)
	}

	var kv map[string]any
	if err := json.Unmarshal([]byte(payload), &kv); err != nil {
		return fmt.Errorf("parse secret %s as JSON: %w", secretID, err)
	}

	applied := 0
	for key, val := range kv {
		if !overwrite && os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return fmt.Errorf("set env %s from secret: %w", key, err)
		}
		applied++
	}

	slog.Info("loaded env vars from AWS Secrets Manager", "secret", secretID, "applied", applied, "overwrite", overwrite)
	return nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	if region != "" {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx)
}
