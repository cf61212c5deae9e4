// relay Lambda serves the relay API behind an API Gateway HTTP API.
package main

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	intlambda "github.com/dwsmith1983/actorrelay/internal/lambda"
	"github.com/dwsmith1983/actorrelay/internal/telemetry"
)

var (
	deps     *intlambda.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*intlambda.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = intlambda.Init(context.Background())
	})
	return deps, depsErr
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	d, err := getDeps()
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return intlambda.HandleHTTP(ctx, d, req)
}

func main() {
	telemetry.SetupLogger()
	awslambda.Start(handler)
}
