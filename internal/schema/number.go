package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// number is a numeric value seen through both its float value and, where it
// has one, its exact integer value.
type number struct {
	f float64
	i int64

	intOK      bool // i holds the exact value
	lexicalInt bool // written without fraction or exponent
}

func (n number) equal(o number) bool {
	if n.intOK && o.intOK {
		return n.i == o.i
	}
	return n.f == o.f
}

func toNumber(value any) (number, bool) {
	switch v := value.(type) {
	case json.Number:
		return parseNumber(string(v))
	case float64:
		return fromFloat(v), true
	case float32:
		return fromFloat(float64(v)), true
	case int:
		return fromInt(int64(v)), true
	case int8:
		return fromInt(int64(v)), true
	case int16:
		return fromInt(int64(v)), true
	case int32:
		return fromInt(int64(v)), true
	case int64:
		return fromInt(v), true
	case uint:
		return fromUint(uint64(v)), true
	case uint8:
		return fromInt(int64(v)), true
	case uint16:
		return fromInt(int64(v)), true
	case uint32:
		return fromInt(int64(v)), true
	case uint64:
		return fromUint(v), true
	}
	return number{}, false
}

func parseNumber(text string) (number, bool) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !isRangeErr(err) {
		return number{}, false
	}
	n := number{f: f}
	if !strings.ContainsAny(text, ".eE") {
		n.lexicalInt = true
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			n.i = i
			n.intOK = true
		}
	}
	return n, true
}

func isRangeErr(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}

func fromFloat(f float64) number {
	n := number{f: f}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
		n.lexicalInt = true
		if f >= math.MinInt64 && f < math.MaxInt64 {
			n.i = int64(f)
			n.intOK = true
		}
	}
	return n
}

func fromInt(i int64) number {
	return number{f: float64(i), i: i, intOK: true, lexicalInt: true}
}

func fromUint(u uint64) number {
	if u > math.MaxInt64 {
		return number{f: float64(u), lexicalInt: true}
	}
	return fromInt(int64(u))
}
