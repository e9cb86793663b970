package sample

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

var null = []byte("null")

// Nullable tells an absent field apart from an explicit null
type Nullable[T any] struct {
	Value   T
	Present bool
	Null    bool
}

// Of returns a present, non-null value
func Of[T any](v T) Nullable[T] {
	return Nullable[T]{Value: v, Present: true}
}

// Get returns the value and whether it is present and not null
func (n Nullable[T]) Get() (T, bool) {
	return n.Value, n.Present && !n.Null
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Present = true
	if bytes.Equal(bytes.TrimSpace(data), null) {
		var zero T
		n.Value, n.Null = zero, true
		return nil
	}
	n.Null = false
	return json.Unmarshal(data, &n.Value)
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Present || n.Null {
		return null, nil
	}
	return json.Marshal(n.Value)
}

// Date is a calendar date in the 2006-01-02 layout
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d Date) String() string {
	return d.Format(dateLayout)
}
