package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind names the variant a Value holds.
type Kind uint8

const (
	KindInteger Kind = iota
	KindFloat
	KindComplex
	KindBool
	KindNone
	KindString
	KindDateTime
	KindList
	KindMapping
	KindNested
)

var kindNames = map[Kind]string{
	KindInteger:  "integer",
	KindFloat:    "float",
	KindComplex:  "complex",
	KindBool:     "bool",
	KindNone:     "none",
	KindString:   "string",
	KindDateTime: "datetime",
	KindList:     "list",
	KindMapping:  "mapping",
	KindNested:   "nested config",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Value is a fully-evaluated configuration result. Internal, AST-backed
// variants (mapWrapper, seqWrapper) implement evaluation lazily but are
// never returned across this boundary - unwrap converts them to one of
// the concrete types below first.
type Value interface {
	Kind() Kind
}

// IntegerValue is a 64-bit signed integer.
type IntegerValue int64

func (IntegerValue) Kind() Kind { return KindInteger }

// FloatValue is a 64-bit IEEE-754 float.
type FloatValue float64

func (FloatValue) Kind() Kind { return KindFloat }

// ComplexValue is a pair of 64-bit floats.
type ComplexValue complex128

func (ComplexValue) Kind() Kind { return KindComplex }

// BoolValue is a boolean.
type BoolValue bool

func (BoolValue) Kind() Kind { return KindBool }

// NoneValue is the null literal.
type NoneValue struct{}

func (NoneValue) Kind() Kind { return KindNone }

// StringValue is a Unicode scalar sequence.
type StringValue string

func (StringValue) Kind() Kind { return KindString }

// DateTimeValue is a date-time parsed from a back-tick literal. It carries
// whatever zone information (or lack of it) the literal supplied.
type DateTimeValue time.Time

func (DateTimeValue) Kind() Kind { return KindDateTime }

// ListValue is an ordered, fully-evaluated sequence.
type ListValue []Value

func (ListValue) Kind() Kind { return KindList }

// MappingValue is an ordered, fully-evaluated key/value table. Iteration
// order matches source insertion order.
type MappingValue struct {
	keys   []string
	values map[string]Value
}

func (*MappingValue) Kind() Kind { return KindMapping }

// NewMapping returns an empty, ordered MappingValue.
func NewMapping() *MappingValue {
	return &MappingValue{values: make(map[string]Value)}
}

// Set inserts or overwrites key, preserving first-insertion order.
func (m *MappingValue) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value at key and whether it was present.
func (m *MappingValue) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *MappingValue) Keys() []string {
	return m.keys
}

func (m *MappingValue) clone() *MappingValue {
	out := NewMapping()
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// NestedValue wraps a Config produced by an `@"path"` include whose root
// is itself a mapping.
type NestedValue struct {
	Config *Config
}

func (*NestedValue) Kind() Kind { return KindNested }

// stringify renders v the way back-tick interpolation does: numbers and
// bools in their natural textual form, strings verbatim, lists as
// "[e1, e2, ...]", mappings as "{k1: v1, k2: v2, ...}".
func stringify(v Value) string {
	switch vv := v.(type) {
	case IntegerValue:
		return strconv.FormatInt(int64(vv), 10)
	case FloatValue:
		return strconv.FormatFloat(float64(vv), 'g', -1, 64)
	case ComplexValue:
		return fmt.Sprintf("%v", complex128(vv))
	case BoolValue:
		if bool(vv) {
			return "true"
		}
		return "false"
	case NoneValue:
		return "null"
	case StringValue:
		return string(vv)
	case DateTimeValue:
		return time.Time(vv).Format(time.RFC3339)
	case ListValue:
		parts := make([]string, len(vv))
		for i, e := range vv {
			parts[i] = stringify(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *MappingValue:
		parts := make([]string, 0, len(vv.keys))
		for _, k := range vv.keys {
			val, _ := vv.Get(k)
			parts = append(parts, k+": "+stringify(val))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}
