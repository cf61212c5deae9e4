package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ResolveAccountKey reads the default account key from Secrets Manager. The
// secret is either the bare key or a JSON object with an "apiKey" member.
func ResolveAccountKey(ctx context.Context, api SecretsAPI, secretID string) (string, error) {
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("reading secret %s: %w", secretID, err)
	}
	raw := strings.TrimSpace(aws.ToString(out.SecretString))
	if raw == "" {
		return "", fmt.Errorf("secret %s has no string value", secretID)
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	var doc struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", fmt.Errorf("parsing secret %s: %w", secretID, err)
	}
	if doc.APIKey == "" {
		return "", fmt.Errorf("secret %s has no apiKey", secretID)
	}
	return doc.APIKey, nil
}
