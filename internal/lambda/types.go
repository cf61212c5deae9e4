// Package lambda provides shared types, initialization and the API Gateway
// handler for the relay Lambda.
package lambda

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/dwsmith1983/actorrelay/internal/relay"
)

// SecretsAPI is the subset of the Secrets Manager client used to read the
// default account key.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, input *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// EventBridgeAPI is the subset of the EventBridge client used for outcome
// events.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, input *eventbridge.PutEventsInput, opts ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Deps holds shared dependencies for the Lambda handler.
type Deps struct {
	Relay  *relay.Service
	Logger *slog.Logger
}

// Clients carries the AWS clients Init would otherwise construct. A nil
// client is built from the default AWS config when its feature is enabled.
type Clients struct {
	Secrets SecretsAPI
	Events  EventBridgeAPI
}
