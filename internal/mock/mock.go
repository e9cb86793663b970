// Package mock answers operations that have no handler with generated
// responses, so a contract can be served before it is implemented.
package mock

import (
	"context"
	"fmt"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/exchange"
	"github.com/moamenhredeen/oasgate/internal/generator"
	"github.com/moamenhredeen/oasgate/internal/registry"
)

// Handler returns a handler answering op with its lowest declared 2XX
// response. The body comes from the response schema.
func Handler(op *contract.Operation, gen *generator.Generator) (registry.Handler, error) {
	res, status, ok := op.SuccessResponse()
	if !ok {
		return nil, fmt.Errorf("operation %s declares no success response", op.ID)
	}

	return registry.HandlerFunc(func(context.Context, *exchange.Request) (*exchange.Response, error) {
		if !res.HasContent() {
			return exchange.NoContent(status), nil
		}
		if res.Schema == nil {
			return exchange.NewResponse(status, map[string]any{}), nil
		}
		body, err := gen.GenerateValue(res.Schema)
		if err != nil {
			return nil, err
		}
		if !contract.IsJSON(res.MediaType) {
			body = fmt.Sprint(body)
		}
		return exchange.NewResponse(status, body).SetHeader("X-Mock", "true"), nil
	}), nil
}

// Register binds a mock to every operation of c that reg leaves unhandled
// and returns the mocked operation ids. Operations without a success
// response stay unhandled.
func Register(reg *registry.Registry, c *contract.Contract, gen *generator.Generator) ([]registry.OperationID, error) {
	var mocked []registry.OperationID
	for _, id := range reg.Unhandled() {
		op, ok := c.Operation(string(id))
		if !ok {
			continue
		}
		h, err := Handler(op, gen)
		if err != nil {
			continue
		}
		if err := reg.Register(id, h); err != nil {
			return mocked, fmt.Errorf("failed to mock %s: %w", id, err)
		}
		mocked = append(mocked, id)
	}
	return mocked, nil
}
