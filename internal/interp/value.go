package interp

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "nil"
	}
}

// Value is a runtime value. The zero Value is nil.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
}

var Nil = Value{}

func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func List(elems []Value) Value { return Value{kind: KindList, list: elems} }

func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsNil() bool      { return v.kind == KindNil }
func (v Value) AsBool() bool     { return v.b }
func (v Value) AsInt() int64     { return v.i }
func (v Value) AsString() string { return v.s }

// AsFloat returns the numeric value as a float, widening ints.
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Elems returns the list elements. The slice must not be modified.
func (v Value) Elems() []Value { return v.list }

func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// String returns the display text used by output and by channel sends.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, el := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			if el.kind == KindString {
				sb.WriteString("'" + el.s + "'")
			} else {
				sb.WriteString(el.String())
			}
		}
		sb.WriteByte(']')
		return sb.String()
	default:
		return "nil"
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// Equal compares two values. Ints and floats compare numerically.
func Equal(a, b Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		if a.kind == KindInt && b.kind == KindInt {
			return a.i == b.i
		}
		return a.AsFloat() == b.AsFloat()
	}
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// compare orders two numbers or two strings. ok is false for any other pair.
func compare(a, b Value) (cmp int, ok bool) {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return cmpOrdered(a.i, b.i), true
	case a.IsNumeric() && b.IsNumeric():
		return cmpOrdered(a.AsFloat(), b.AsFloat()), true
	case a.kind == KindString && b.kind == KindString:
		return strings.Compare(a.s, b.s), true
	}
	return 0, false
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
