package domain

import (
	"sort"
	"strconv"
)

// Parameter names understood by the job-creation endpoint.
const (
	ParamOutputFormat = "output_format"
	ParamQuality      = "quality"
	ParamLossless     = "lossless"
	ParamImageDPI     = "image_dpi"
	ParamImageQuality = "image_quality"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
)

// Value is a primitive parameter value: an int, a bool or a string.
type Value struct {
	kind valueKind
	s    string
	i    int
	b    bool
}

func StringValue(s string) Value { return Value{kind: kindString, s: s} }
func IntValue(i int) Value       { return Value{kind: kindInt, i: i} }
func BoolValue(b bool) Value     { return Value{kind: kindBool, b: b} }

// Int returns the integer held by v, if any.
func (v Value) Int() (int, bool) {
	return v.i, v.kind == kindInt
}

// Bool returns the boolean held by v, if any.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == kindBool
}

// String renders the value the way a form field carries it.
func (v Value) String() string {
	switch v.kind {
	case kindInt:
		return strconv.Itoa(v.i)
	case kindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// ParameterBag holds the user-tunable settings submitted with a file.
type ParameterBag map[string]Value

// Keys returns the parameter names in a stable order.
func (p ParameterBag) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
