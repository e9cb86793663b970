package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/moamenhredeen/oasgate/internal/exchange"
	oasschema "github.com/moamenhredeen/oasgate/internal/schema"
)

var (
	validate     = validator.New()
	paramDecoder = schema.NewDecoder()
)

func init() {
	paramDecoder.IgnoreUnknownKeys(true)
	paramDecoder.SetAliasTag("param")
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return field.Name
		}
		return name
	})
}

type requestKey struct{}

// RequestFromContext returns the request a typed handler is serving
func RequestFromContext(ctx context.Context) (*exchange.Request, bool) {
	req, ok := ctx.Value(requestKey{}).(*exchange.Request)
	return req, ok
}

// Typed adapts a function over Go types to a Handler. The validated JSON
// body is decoded into Req; when Req is a struct (or a pointer to one),
// path and query parameters are decoded into fields tagged `param:"name"`
// and validate tags are checked. The result is answered with status.
func Typed[Req any, Res any](status int, fn func(ctx context.Context, req Req) (Res, error)) Handler {
	return HandlerFunc(func(ctx context.Context, r *exchange.Request) (*exchange.Response, error) {
		req, err := decode[Req](r)
		if err != nil {
			return nil, err
		}

		res, err := fn(context.WithValue(ctx, requestKey{}, r), req)
		if err != nil {
			return nil, err
		}
		if isNil(res) {
			return exchange.NoContent(status), nil
		}
		return exchange.NewResponse(status, res), nil
	})
}

func decode[Req any](r *exchange.Request) (Req, error) {
	var req Req

	target := reflect.ValueOf(&req)
	if t := reflect.TypeOf(req); t != nil && t.Kind() == reflect.Pointer {
		elem := reflect.New(t.Elem())
		target.Elem().Set(elem)
		target = elem
	}

	if len(r.Body) > 0 {
		if err := json.Unmarshal(r.Body, target.Interface()); err != nil {
			return req, bodyError(err)
		}
	}

	if target.Elem().Kind() != reflect.Struct {
		return req, nil
	}

	values := url.Values{}
	for _, name := range paramNames(target.Elem().Type()) {
		if v, ok := r.PathParams[name]; ok {
			values.Set(name, v)
		} else if v, ok := r.Query[name]; ok {
			values[name] = v
		}
	}
	if len(values) > 0 {
		if err := paramDecoder.Decode(target.Interface(), values); err != nil {
			return req, &oasschema.ValidationError{Violations: []oasschema.Violation{{
				Kind:    oasschema.KindType,
				Message: err.Error(),
			}}}
		}
	}

	if err := validate.Struct(target.Interface()); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return req, nil
		}
		return req, structError(err)
	}
	return req, nil
}

// paramNames lists the explicit param tags of a struct, so that body
// fields are never overwritten by same-named query keys
func paramNames(t reflect.Type) []string {
	var names []string
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("param"), ",")
		if name != "" && name != "-" {
			names = append(names, name)
		}
	}
	return names
}

func bodyError(err error) error {
	v := oasschema.Violation{In: oasschema.InBody, Kind: oasschema.KindMalformed, Message: err.Error()}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		v.Field = typeErr.Field
		v.Kind = oasschema.KindType
		v.Message = fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)
	}
	return &oasschema.ValidationError{Violations: []oasschema.Violation{v}}
}

var tagKinds = map[string]oasschema.ViolationKind{
	"required": oasschema.KindRequired,
	"min":      oasschema.KindMinimum,
	"gte":      oasschema.KindMinimum,
	"gt":       oasschema.KindMinimum,
	"max":      oasschema.KindMaximum,
	"lte":      oasschema.KindMaximum,
	"lt":       oasschema.KindMaximum,
	"oneof":    oasschema.KindEnum,
}

func structError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make([]oasschema.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		kind, ok := tagKinds[fe.Tag()]
		if !ok {
			kind = oasschema.KindFormat
		}
		msg := "failed " + fe.Tag() + " validation"
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %s=%s validation", fe.Tag(), fe.Param())
		}
		out = append(out, oasschema.Violation{
			Field:   fieldPath(fe.Namespace()),
			In:      oasschema.InBody,
			Kind:    kind,
			Message: msg,
		})
	}
	return &oasschema.ValidationError{Violations: out}
}

// fieldPath drops the root type name from a validator namespace
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return rest
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
