package lambdaadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"snapbench/internal/bench"
)

// EnvRuntimeAPI is set by the Lambda runtime for every function process.
const EnvRuntimeAPI = "AWS_LAMBDA_RUNTIME_API"

// InLambda reports whether the process runs inside the Lambda runtime.
func InLambda() bool {
	return os.Getenv(EnvRuntimeAPI) != ""
}

// Handler serves API Gateway proxy events with the benchmark.
type Handler struct {
	benchmark *bench.Benchmark
	logger    *zap.Logger
}

// NewHandler creates a new Handler
// Args:
// - benchmark: *bench.Benchmark
// - logger: *zap.Logger
// Returns:
// - *Handler: new Handler instance
func NewHandler(benchmark *bench.Benchmark, logger *zap.Logger) *Handler {
	return &Handler{benchmark: benchmark, logger: logger}
}

// Handle runs one invocation. Failures are reported as proxy responses with
// a nil error, so API Gateway returns them to the caller as is.
func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return errorResponse(http.StatusBadRequest, err), nil
		}
		body = decoded
	}

	limit, err := bench.ResolveIncrementLimit(request.QueryStringParameters["incrementLimit"], body)
	if err != nil {
		h.logger.Warn("Rejected invocation", zap.Error(err))
		return errorResponse(http.StatusBadRequest, err), nil
	}

	var requestID string
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
	}

	result, err := h.benchmark.Invoke(ctx, bench.Invocation{
		IncrementLimit: limit,
		RequestID:      requestID,
	})
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err), nil
	}

	body, err = json.Marshal(result)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err), nil
	}
	return jsonResponse(http.StatusOK, body), nil
}

// Start hands the process over to the Lambda runtime loop. It does not return.
func (h *Handler) Start() {
	h.logger.Info("Starting Lambda runtime loop")
	lambda.Start(h.Handle)
}

func jsonResponse(code int, body []byte) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode:      code,
		Headers:         map[string]string{"Content-Type": "application/json"},
		Body:            string(body),
		IsBase64Encoded: false,
	}
}

func errorResponse(code int, err error) events.APIGatewayProxyResponse {
	if err == nil {
		err = errors.New(http.StatusText(code))
	}
	body, _ := json.Marshal(map[string]string{"error": err.Error()})
	return jsonResponse(code, body)
}
