// Package domain holds the record types that flow through the report pipeline.
package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Rank is a search position that may be absent.
type Rank struct {
	Value float64
	Valid bool
}

// NewRank returns a present rank.
func NewRank(v float64) Rank { return Rank{Value: v, Valid: true} }

// ParseRank reads a rank cell; blank and unparseable cells are absent.
func ParseRank(s string) Rank {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rank{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Rank{}
	}
	return NewRank(v)
}

// String renders the rank for delimited output; absent ranks are blank.
func (r Rank) String() string {
	if !r.Valid {
		return ""
	}
	return FormatNumber(r.Value)
}

// Equal reports whether both ranks are absent, or present with the same
// value.
func (r Rank) Equal(o Rank) bool {
	if !r.Valid || !o.Valid {
		return r.Valid == o.Valid
	}
	return r.Value == o.Value
}

// Ptr returns nil for an absent rank.
func (r Rank) Ptr() *float64 {
	if !r.Valid {
		return nil
	}
	v := r.Value
	return &v
}

// MarshalJSON encodes absent ranks as null.
func (r Rank) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts a number or null.
func (r *Rank) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Rank{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = NewRank(v)
	return nil
}

// FormatNumber prints integral values without a fractional part.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
