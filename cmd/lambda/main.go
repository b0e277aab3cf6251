// Command lambda serves the same routes behind API Gateway HTTP APIs.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"

	"github.com/stevemurr/circular-table-server/app"
	"github.com/stevemurr/circular-table-server/config"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	logger    *zap.Logger
)

// init runs once per cold start. The store stays open for the lifetime of
// the execution environment.
func init() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Store.CheckServerless(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	a, _, err := app.Initialize(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	logger = a.Logger
	chiLambda = chiadapter.NewV2(a.Handler.Router())
}

func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if err != nil {
		logger.Error("proxying request",
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.String("request_id", req.RequestContext.RequestID),
			zap.Error(err))
	}
	return resp, err
}

func main() {
	lambda.Start(Handler)
}
