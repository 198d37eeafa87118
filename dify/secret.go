package dify

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/secretsmanager"
	"github.com/pulumi/pulumi-random/sdk/v4/go/random"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// AppSecret is the one generated secret seeding every application-level
// credential slot: SECRET_KEY, the sandbox API key, the plugin daemon
// keys, and the knowledge-base bearer token. One value for all slots is a
// deliberate simplification; see DESIGN.md before tightening it.
type AppSecret struct {
	Arn pulumi.StringOutput
}

// NewAppSecret mints the random value and persists it in Secrets Manager.
func NewAppSecret(ctx *pulumi.Context, name string) (*AppSecret, error) {
	value, err := random.NewRandomPassword(ctx, name, &random.RandomPasswordArgs{
		Length:  pulumi.Int(42),
		Special: pulumi.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("app secret value: %w", err)
	}

	secret, err := secretsmanager.NewSecret(ctx, name, &secretsmanager.SecretArgs{
		Description: pulumi.String("Dify application secret"),
	})
	if err != nil {
		return nil, fmt.Errorf("app secret: %w", err)
	}
	_, err = secretsmanager.NewSecretVersion(ctx, name, &secretsmanager.SecretVersionArgs{
		SecretId:     secret.ID(),
		SecretString: value.Result,
	})
	if err != nil {
		return nil, fmt.Errorf("app secret version: %w", err)
	}

	return &AppSecret{Arn: secret.Arn}, nil
}
