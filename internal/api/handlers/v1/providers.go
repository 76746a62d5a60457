package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/eval-hub/eval-hub/internal/providers"
	"github.com/eval-hub/eval-hub/internal/service"
	"github.com/eval-hub/eval-hub/pkg/api"
)

// ProviderDetailInput identifies one evaluation provider.
type ProviderDetailInput struct {
	ProviderID string `path:"providerId" doc:"Evaluation provider identifier" example:"lm-eval"`
}

// RegisterProviderEndpoints registers the read-only provider and
// benchmark catalog endpoints.
func RegisterProviderEndpoints(humaAPI huma.API, catalog *providers.Catalog) {
	tags := []string{"providers"}

	huma.Register(humaAPI, huma.Operation{
		OperationID: "list-providers",
		Method:      http.MethodGet,
		Path:        "/api/v1/evaluations/providers",
		Summary:     "List evaluation providers",
		Tags:        tags,
	}, func(_ context.Context, _ *struct{}) (*Response[api.ProviderResourceList], error) {
		items := catalog.Providers()
		return &Response[api.ProviderResourceList]{Body: api.ProviderResourceList{
			TotalCount: len(items),
			Items:      items,
		}}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "get-provider",
		Method:      http.MethodGet,
		Path:        "/api/v1/evaluations/providers/{providerId}",
		Summary:     "Get an evaluation provider",
		Tags:        tags,
	}, func(_ context.Context, input *ProviderDetailInput) (*Response[api.ProviderResource], error) {
		provider, ok := catalog.Get(input.ProviderID)
		if !ok {
			return nil, serviceError(fmt.Errorf("%w: %s", service.ErrProviderNotFound, input.ProviderID))
		}
		return &Response[api.ProviderResource]{Body: *provider}, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "list-benchmarks",
		Method:      http.MethodGet,
		Path:        "/api/v1/evaluations/benchmarks",
		Summary:     "List benchmarks",
		Description: "List every benchmark across all providers.",
		Tags:        tags,
	}, func(_ context.Context, _ *struct{}) (*Response[api.BenchmarkResourceList], error) {
		items := catalog.Benchmarks()
		return &Response[api.BenchmarkResourceList]{Body: api.BenchmarkResourceList{
			TotalCount: len(items),
			Items:      items,
		}}, nil
	})
}
