package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Points is an optional number of points. The zero value is Ungraded,
// which is distinct from a graded value of 0.
type Points struct {
	value float64
	set   bool
}

// Graded returns Points holding v.
func Graded(v float64) Points { return Points{value: v, set: true} }

// Ungraded returns absent Points.
func Ungraded() Points { return Points{} }

// Value returns the points and whether they are present.
func (p Points) Value() (float64, bool) { return p.value, p.set }

// IsSet reports whether the points are present.
func (p Points) IsSet() bool { return p.set }

// OrZero returns the value, or 0 when absent.
func (p Points) OrZero() float64 {
	if !p.set {
		return 0
	}
	return p.value
}

// Add sums two optional values. The result is absent only when both
// operands are absent.
func (p Points) Add(q Points) Points {
	switch {
	case p.set && q.set:
		return Graded(p.value + q.value)
	case p.set:
		return p
	default:
		return q
	}
}

// String renders the value, or "-" when absent.
func (p Points) String() string {
	if !p.set {
		return "-"
	}
	return strconv.FormatFloat(p.value, 'f', -1, 64)
}

// MarshalJSON encodes absent points as null.
func (p Points) MarshalJSON() ([]byte, error) {
	if !p.set {
		return []byte("null"), nil
	}
	return json.Marshal(p.value)
}

// UnmarshalJSON decodes null as absent points.
func (p *Points) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Ungraded()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Graded(v)
	return nil
}

// MarshalYAML encodes absent points as null.
func (p Points) MarshalYAML() (any, error) {
	if !p.set {
		return nil, nil
	}
	return p.value, nil
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Percentage returns round1(100 * obtained / max), or 0 when max is not
// positive.
func Percentage(obtained, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return Round1(100 * obtained / max)
}
