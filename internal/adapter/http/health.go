package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type HealthOutput struct {
	Body struct {
		Status string `json:"status" enum:"ok" doc:"Always ok when the service can serve requests"`
	}
}

// RegisterHealth adds GET /healthz. Every check must pass for a 200.
func RegisterHealth(api huma.API, checks ...HealthCheck) {
	huma.Register(api, huma.Operation{
		OperationID: "healthz",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness and storage health",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return nil, huma.Error503ServiceUnavailable("unhealthy", err)
			}
		}
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})
}
