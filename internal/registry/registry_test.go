package registry

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamenhredeen/oasgate/internal/contract"
	"github.com/moamenhredeen/oasgate/internal/dispatch"
	"github.com/moamenhredeen/oasgate/internal/exchange"
	"github.com/moamenhredeen/oasgate/internal/schema"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	c, err := contract.LoadFile("../../testdata/petstore.yaml")
	require.NoError(t, err)
	return New(c)
}

func ok(status int) Handler {
	return HandlerFunc(func(context.Context, *exchange.Request) (*exchange.Response, error) {
		return exchange.NoContent(status), nil
	})
}

func TestRegisterAndDispatch(t *testing.T) {
	r := newRegistry(t)

	calls := 0
	err := r.RegisterFunc("getPet", func(_ context.Context, req *exchange.Request) (*exchange.Response, error) {
		calls++
		return exchange.NewResponse(200, map[string]any{"id": req.PathParam("id")}), nil
	})
	require.NoError(t, err)
	assert.True(t, r.Has("getPet"))

	req := exchange.NewRequest("1", "GET", "/pets/42", nil)
	req.PathParams = dispatch.Params{"id": "42"}
	res, err := r.Dispatch(context.Background(), "getPet", req)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, map[string]any{"id": "42"}, res.Body)
	assert.Equal(t, 1, calls)
}

func TestRegisterDuplicate(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Register("listPets", ok(200)))

	err := r.Register("listPets", ok(200))
	var dup *DuplicateHandlerError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, OperationID("listPets"), dup.OperationID)
}

func TestRegisterUnknownOperation(t *testing.T) {
	r := newRegistry(t)

	err := r.Register("feedPets", ok(200))
	var unknown *UnknownOperationError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, OperationID("feedPets"), unknown.OperationID)

	assert.Error(t, r.Register("listPets", nil))
}

func TestDispatchUnhandled(t *testing.T) {
	r := newRegistry(t)

	_, err := r.Dispatch(context.Background(), "deletePet", exchange.NewRequest("", "DELETE", "/pets/1", nil))
	var unhandled *UnhandledOperationError
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, []OperationID{"deletePet"}, unhandled.OperationIDs)
	assert.Contains(t, err.Error(), `"deletePet"`)
}

func TestVerifyAndUnhandled(t *testing.T) {
	r := newRegistry(t)
	ids := []OperationID{"listPets", "createPet", "getPet", "deletePet", "listMyPets", "listOwnerPets", "getOwnPet"}
	for _, id := range ids {
		require.NoError(t, r.Register(id, ok(200)))
	}

	assert.Equal(t, []OperationID{"slowReport"}, r.Unhandled())
	err := r.Verify()
	var unhandled *UnhandledOperationError
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, []OperationID{"slowReport"}, unhandled.OperationIDs)

	require.NoError(t, r.Register("slowReport", ok(200)))
	assert.NoError(t, r.Verify())
	assert.Len(t, r.Registered(), 8)
}

func TestSeal(t *testing.T) {
	r := newRegistry(t)
	r.Seal()
	assert.ErrorIs(t, r.Register("listPets", ok(200)), ErrRegistrySealed)
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	r := newRegistry(t)
	boom := errors.New("boom")
	require.NoError(t, r.RegisterFunc("listPets", func(context.Context, *exchange.Request) (*exchange.Response, error) {
		return nil, boom
	}))

	_, err := r.Dispatch(context.Background(), "listPets", exchange.NewRequest("", "GET", "/pets", nil))
	assert.ErrorIs(t, err, boom)
}

type newPet struct {
	ID    string `json:"-" param:"id"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Limit int    `json:"-" param:"limit"`
}

type pet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestTyped(t *testing.T) {
	h := Typed(201, func(ctx context.Context, in newPet) (*pet, error) {
		req, found := RequestFromContext(ctx)
		require.True(t, found)
		assert.Equal(t, "POST", req.Method)
		assert.Equal(t, 5, in.Limit)
		return &pet{ID: in.ID, Name: in.Name}, nil
	})

	req := exchange.NewRequest("", "POST", "/pets/7", nil)
	req.PathParams = dispatch.Params{"id": "7"}
	req.Query = url.Values{"limit": {"5"}, "name": {"ignored"}}
	req.Body = []byte(`{"name":"Rex"}`)

	res, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 201, res.Status)
	assert.Equal(t, &pet{ID: "7", Name: "Rex"}, res.Body)
}

func TestTypedPointerRequest(t *testing.T) {
	h := Typed(200, func(_ context.Context, in *newPet) (pet, error) {
		return pet{Name: in.Name}, nil
	})

	req := exchange.NewRequest("", "POST", "/pets", nil)
	req.Body = []byte(`{"name":"Rex"}`)
	res, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pet{Name: "Rex"}, res.Body)
}

func TestTypedValidation(t *testing.T) {
	h := Typed(201, func(context.Context, newPet) (*pet, error) {
		t.Fatal("handler must not run for invalid input")
		return nil, nil
	})

	req := exchange.NewRequest("", "POST", "/pets", nil)
	req.Body = []byte(`{"email":"not-an-email"}`)
	_, err := h.Handle(context.Background(), req)

	var invalid *schema.ValidationError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Violations, 2)
	assert.Equal(t, "name", invalid.Violations[0].Field)
	assert.Equal(t, schema.KindRequired, invalid.Violations[0].Kind)
	assert.Equal(t, "email", invalid.Violations[1].Field)
	assert.Equal(t, schema.KindFormat, invalid.Violations[1].Kind)
}

func TestTypedBodyTypeMismatch(t *testing.T) {
	h := Typed(201, func(context.Context, newPet) (*pet, error) {
		return nil, nil
	})

	req := exchange.NewRequest("", "POST", "/pets", nil)
	req.Body = []byte(`{"name":12}`)
	_, err := h.Handle(context.Background(), req)

	var invalid *schema.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "name", invalid.Violations[0].Field)
	assert.Equal(t, schema.KindType, invalid.Violations[0].Kind)
}

func TestTypedNilResultHasNoBody(t *testing.T) {
	h := Typed(204, func(context.Context, map[string]any) (*pet, error) {
		return nil, nil
	})

	res, err := h.Handle(context.Background(), exchange.NewRequest("", "DELETE", "/pets/1", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, res.Status)
	assert.Nil(t, res.Body)
}
