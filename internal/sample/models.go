package sample

import (
	"time"

	"github.com/google/uuid"
)

// StringToEnum is the enumerated string field of both requests
type StringToEnum string

const (
	StringToEnum1 StringToEnum = "1"
	StringToEnum2 StringToEnum = "2"
	StringToEnum3 StringToEnum = "3"
)

type ObjectField struct {
	ID   Nullable[int32]  `json:"id"`
	Name Nullable[string] `json:"name"`
}

type ObjectArrayFieldInner struct {
	InnerID   Nullable[int32]  `json:"innerId"`
	InnerName Nullable[string] `json:"innerName"`
}

type RequiredObjectArrayFieldInner struct {
	InnerID   int32  `json:"innerId"`
	InnerName string `json:"innerName"`
}

// Request has every field optional and nullable
type Request struct {
	Int32Field           Nullable[int32]                    `json:"int32Field"`
	Int64Field           Nullable[int64]                    `json:"int64Field"`
	IntegerNoFormat      Nullable[int]                      `json:"integerNoFormat"`
	FloatField           Nullable[float32]                  `json:"floatField"`
	DoubleField          Nullable[float64]                  `json:"doubleField"`
	NumberNoFormat       Nullable[float64]                  `json:"numberNoFormat"`
	BooleanField         Nullable[bool]                     `json:"booleanField"`
	IntArrayField        Nullable[[]*int32]                 `json:"intArrayField"`
	ObjectField          Nullable[ObjectField]              `json:"objectField"`
	ObjectArrayField     Nullable[[]*ObjectArrayFieldInner] `json:"objectArrayField"`
	StringField          Nullable[string]                   `json:"stringField"`
	StringArrayField     Nullable[[]*string]                `json:"stringArrayField"`
	StringDateFormat     Nullable[Date]                     `json:"stringDateFormat"`
	StringDateTimeFormat Nullable[time.Time]                `json:"stringDateTimeFormat"`
	StringToEnum         Nullable[StringToEnum]             `json:"stringToEnum"`
	StringBinaryFormat   Nullable[string]                   `json:"stringBinaryFormat"`
	StringByteFormat     Nullable[[]byte]                   `json:"stringByteFormat"`
	StringEmailFormat    Nullable[string]                   `json:"stringEmailFormat"`
	StringHostnameFormat Nullable[string]                   `json:"stringHostnameFormat"`
	StringIpv4Format     Nullable[string]                   `json:"stringIpv4Format"`
	StringIpv6Format     Nullable[string]                   `json:"stringIpv6Format"`
	StringPasswordFormat Nullable[string]                   `json:"stringPasswordFormat"`
	StringURIFormat      Nullable[string]                   `json:"stringUriFormat"`
	StringUUIDFormat     Nullable[uuid.UUID]                `json:"stringUuidFormat"`
}

// RequiredRequest has every field required. Only the byte field and the
// array items may be null.
type RequiredRequest struct {
	Int32Field           int32                            `json:"int32Field"`
	Int64Field           int64                            `json:"int64Field"`
	IntegerNoFormat      int                              `json:"integerNoFormat"`
	FloatField           float32                          `json:"floatField"`
	DoubleField          float64                          `json:"doubleField"`
	NumberNoFormat       float64                          `json:"numberNoFormat"`
	BooleanField         bool                             `json:"booleanField"`
	IntArrayField        []*int32                         `json:"intArrayField" validate:"required"`
	ObjectField          ObjectField                      `json:"objectField"`
	ObjectArrayField     []*RequiredObjectArrayFieldInner `json:"objectArrayField" validate:"required"`
	StringField          string                           `json:"stringField"`
	StringArrayField     []*string                        `json:"stringArrayField" validate:"required"`
	StringDateFormat     Date                             `json:"stringDateFormat"`
	StringDateTimeFormat time.Time                        `json:"stringDateTimeFormat"`
	StringToEnum         StringToEnum                     `json:"stringToEnum" validate:"oneof=1 2 3"`
	StringBinaryFormat   string                           `json:"stringBinaryFormat"`
	StringByteFormat     []byte                           `json:"stringByteFormat"`
	StringEmailFormat    string                           `json:"stringEmailFormat" validate:"email"`
	StringHostnameFormat string                           `json:"stringHostnameFormat"`
	StringIpv4Format     string                           `json:"stringIpv4Format" validate:"ipv4"`
	StringIpv6Format     string                           `json:"stringIpv6Format" validate:"ipv6"`
	StringPasswordFormat string                           `json:"stringPasswordFormat"`
	StringURIFormat      string                           `json:"stringUriFormat" validate:"uri"`
	StringUUIDFormat     uuid.UUID                        `json:"stringUuidFormat"`
}

// StatusResponse is the body of every successful sample response
type StatusResponse struct {
	Status string `json:"status"`
}
