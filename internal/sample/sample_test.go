package sample

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamenhredeen/oasgate/internal/apierr"
	"github.com/moamenhredeen/oasgate/internal/config"
	"github.com/moamenhredeen/oasgate/internal/registry"
	"github.com/moamenhredeen/oasgate/internal/server"
)

const (
	apiPath         = "/api/sample-gradle-oas-generator"
	requiredAPIPath = "/api/sample-gradle-oas-generator-required"
)

// recorder keeps the last decoded requests
type recorder struct {
	DefaultService

	mu       sync.Mutex
	last     *Request
	required *RequiredRequest
}

func (r *recorder) Post(ctx context.Context, req *Request) (*StatusResponse, error) {
	r.mu.Lock()
	r.last = req
	r.mu.Unlock()
	return r.DefaultService.Post(ctx, req)
}

func (r *recorder) PostRequired(ctx context.Context, req *RequiredRequest) (*StatusResponse, error) {
	r.mu.Lock()
	r.required = req
	r.mu.Unlock()
	return r.DefaultService.PostRequired(ctx, req)
}

func newHandler(t *testing.T, svc Service) http.Handler {
	t.Helper()
	c, err := Contract()
	require.NoError(t, err)

	reg := registry.New(c)
	require.NoError(t, Register(reg, svc))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Addr:            ":0",
			ShutdownTimeout: time.Second,
			MaxBodyBytes:    1 << 16,
			SystemPrefix:    "/_",
		},
		Dispatch: config.DispatchConfig{DefaultTimeout: time.Second, RequireAllHandlers: true},
	}
	s, err := server.New(cfg, c, reg, zerolog.Nop())
	require.NoError(t, err)
	return s.Handler()
}

func fixture(t *testing.T) map[string]any {
	t.Helper()
	raw, err := os.ReadFile("testdata/ok.json")
	require.NoError(t, err)
	// json.Number keeps int64 bounds exact on the way back out
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	require.NoError(t, dec.Decode(&body))
	return body
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAllFieldsPresent(t *testing.T) {
	svc := &recorder{}
	h := newHandler(t, svc)

	for _, path := range []string{apiPath, requiredAPIPath} {
		t.Run(path, func(t *testing.T) {
			rec := post(t, h, path, fixture(t))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
		})
	}

	req := svc.last
	require.NotNil(t, req)

	v, ok := req.Int32Field.Get()
	assert.True(t, ok)
	assert.Equal(t, int32(2147483647), v)

	i64, _ := req.Int64Field.Get()
	assert.Equal(t, int64(9223372036854775807), i64)

	f, _ := req.FloatField.Get()
	assert.Equal(t, float32(1.2), f)

	ints, _ := req.IntArrayField.Get()
	require.Len(t, ints, 2)
	assert.Equal(t, int32(-2147483648), *ints[1])

	obj, _ := req.ObjectField.Get()
	name, _ := obj.Name.Get()
	assert.Equal(t, "hoge", name)

	strs, _ := req.StringArrayField.Get()
	require.Len(t, strs, 2)
	assert.Equal(t, "にほんご", *strs[1])

	date, _ := req.StringDateFormat.Get()
	assert.Equal(t, "2023-09-01", date.String())

	ts, _ := req.StringDateTimeFormat.Get()
	assert.True(t, ts.Equal(time.Date(2023, 9, 1, 8, 45, 0, 0, time.FixedZone("", 9*60*60))))

	enum, _ := req.StringToEnum.Get()
	assert.Equal(t, StringToEnum1, enum)

	raw, _ := req.StringByteFormat.Get()
	assert.Equal(t, "Swagger rocks", string(raw))

	id, _ := req.StringUUIDFormat.Get()
	assert.Equal(t, "12345678-468b-4ae0-a065-7d7ac70b37a8", id.String())

	required := svc.required
	require.NotNil(t, required)
	assert.Equal(t, int32(2147483647), required.Int32Field)
	assert.Equal(t, "Swagger rocks", string(required.StringByteFormat))
	require.Len(t, required.ObjectArrayField, 1)
	assert.Equal(t, "foo", required.ObjectArrayField[0].InnerName)
}

// setNull replaces the value at a dotted path, where a numeric segment
// indexes an array
func setNull(body map[string]any, path string) {
	parts := strings.Split(path, ".")
	var node any = body
	for i, part := range parts {
		last := i == len(parts)-1
		switch n := node.(type) {
		case map[string]any:
			if last {
				n[part] = nil
				return
			}
			node = n[part]
		case []any:
			idx := int(part[0] - '0')
			if last {
				n[idx] = nil
				return
			}
			node = n[idx]
		}
	}
}

func TestFieldIsNull(t *testing.T) {
	h := newHandler(t, DefaultService{})

	tests := []struct {
		name         string
		path         string
		requiredCode int
	}{
		{"boolean", "booleanField", http.StatusBadRequest},
		{"double", "doubleField", http.StatusBadRequest},
		{"float", "floatField", http.StatusBadRequest},
		{"int32", "int32Field", http.StatusBadRequest},
		{"int64", "int64Field", http.StatusBadRequest},
		{"intArray", "intArrayField", http.StatusBadRequest},
		{"intArrayItem", "intArrayField.0", http.StatusOK},
		{"integer", "integerNoFormat", http.StatusBadRequest},
		{"number", "numberNoFormat", http.StatusBadRequest},
		{"object", "objectField", http.StatusBadRequest},
		{"objectArray", "objectArrayField", http.StatusBadRequest},
		{"objectArrayItem", "objectArrayField.0", http.StatusOK},
		{"objectArrayItemField", "objectArrayField.0.innerId", http.StatusBadRequest},
		{"objectField1", "objectField.id", http.StatusOK},
		{"objectField2", "objectField.name", http.StatusOK},
		{"string", "stringField", http.StatusBadRequest},
		{"stringArray", "stringArrayField", http.StatusBadRequest},
		{"stringArrayItem", "stringArrayField.1", http.StatusOK},
		{"stringDateTimeFormat", "stringDateTimeFormat", http.StatusBadRequest},
		{"stringDateFormat", "stringDateFormat", http.StatusBadRequest},
		{"stringToEnum", "stringToEnum", http.StatusBadRequest},
		{"stringBinaryFormat", "stringBinaryFormat", http.StatusBadRequest},
		{"stringByteFormat", "stringByteFormat", http.StatusOK},
		{"stringEmailFormat", "stringEmailFormat", http.StatusBadRequest},
		{"stringHostnameFormat", "stringHostnameFormat", http.StatusBadRequest},
		{"stringIpv4Format", "stringIpv4Format", http.StatusBadRequest},
		{"stringIpv6Format", "stringIpv6Format", http.StatusBadRequest},
		{"stringPasswordFormat", "stringPasswordFormat", http.StatusBadRequest},
		{"stringUriFormat", "stringUriFormat", http.StatusBadRequest},
		{"stringUuidFormat", "stringUuidFormat", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fixture(t)
			setNull(body, tt.path)

			rec := post(t, h, apiPath, body)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())

			rec = post(t, h, requiredAPIPath, body)
			require.Equal(t, tt.requiredCode, rec.Code, rec.Body.String())
			if tt.requiredCode != http.StatusBadRequest {
				return
			}
			var e apierr.Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			require.Len(t, e.Violations, 1)
			assert.Equal(t, tt.path, strings.ReplaceAll(strings.ReplaceAll(e.Violations[0].Field, "[", "."), "]", ""))
			assert.EqualValues(t, "null", e.Violations[0].Kind)
		})
	}
}

func TestNullIsNotAbsent(t *testing.T) {
	svc := &recorder{}
	h := newHandler(t, svc)

	body := fixture(t)
	setNull(body, "int32Field")
	delete(body, "int64Field")
	require.Equal(t, http.StatusOK, post(t, h, apiPath, body).Code)

	assert.True(t, svc.last.Int32Field.Present)
	assert.True(t, svc.last.Int32Field.Null)
	assert.False(t, svc.last.Int64Field.Present)
}

func TestEmptyBody(t *testing.T) {
	h := newHandler(t, DefaultService{})

	rec := post(t, h, apiPath, map[string]any{})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, h, requiredAPIPath, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e apierr.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Len(t, e.Violations, 24)
	for _, v := range e.Violations {
		assert.EqualValues(t, "required", v.Kind, v.Field)
	}
}

func TestInvalidValues(t *testing.T) {
	h := newHandler(t, DefaultService{})

	tests := []struct {
		name  string
		field string
		value any
		kind  string
	}{
		{"number for enum", "stringToEnum", 1, "type"},
		{"unknown enum", "stringToEnum", "4", "enum"},
		{"int32 overflow", "int32Field", 2147483648, "range"},
		{"fractional integer", "integerNoFormat", 1.5, "type"},
		{"ipv4", "stringIpv4Format", "256.1.1.1", "format"},
		{"uuid", "stringUuidFormat", "not-a-uuid", "format"},
		{"date", "stringDateFormat", "2023-13-01", "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{apiPath, requiredAPIPath} {
				body := fixture(t)
				body[tt.field] = tt.value

				rec := post(t, h, path, body)
				require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
				var e apierr.Error
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
				require.Len(t, e.Violations, 1)
				assert.Equal(t, tt.field, e.Violations[0].Field)
				assert.EqualValues(t, tt.kind, e.Violations[0].Kind)
			}
		})
	}
}
