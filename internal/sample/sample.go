// Package sample implements the sample-gradle-oas-generator API: two
// operations accepting every field type a contract can declare and
// answering {"status":"OK"}.
package sample

import (
	"context"
	"fmt"
	"net/http"

	"github.com/moamenhredeen/oasgate/api"
	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/logger"
	"github.com/moamenhredeen/oasgate/internal/registry"
)

const statusOK = "OK"

// Service handles the sample operations
type Service interface {
	Post(ctx context.Context, req *Request) (*StatusResponse, error)
	PostRequired(ctx context.Context, req *RequiredRequest) (*StatusResponse, error)
}

// DefaultService accepts every valid request
type DefaultService struct{}

func (DefaultService) Post(ctx context.Context, req *Request) (*StatusResponse, error) {
	logger.Ctx(ctx).Debug().
		Bool("int32_present", req.Int32Field.Present).
		Bool("object_present", req.ObjectField.Present).
		Msg("sample request accepted")
	return &StatusResponse{Status: statusOK}, nil
}

func (DefaultService) PostRequired(ctx context.Context, req *RequiredRequest) (*StatusResponse, error) {
	logger.Ctx(ctx).Debug().
		Int32("int32_field", req.Int32Field).
		Str("string_to_enum", string(req.StringToEnum)).
		Msg("sample required request accepted")
	return &StatusResponse{Status: statusOK}, nil
}

// Contract loads the embedded sample contract
func Contract() (*contract.Contract, error) {
	c, err := contract.Load(api.SampleContract)
	if err != nil {
		return nil, fmt.Errorf("failed to load sample contract: %w", err)
	}
	return c, nil
}

// Register binds svc to both sample operations
func Register(reg *registry.Registry, svc Service) error {
	if err := reg.Register(OpPostV1SampleGradleOasGenerator, registry.Typed(http.StatusOK, svc.Post)); err != nil {
		return err
	}
	return reg.Register(OpPostV1SampleGradleOasGeneratorRequired, registry.Typed(http.StatusOK, svc.PostRequired))
}
