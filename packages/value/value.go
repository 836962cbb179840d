package value

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindCharacter
	KindInteger
	KindLong
	KindFloat
	KindDouble
	KindBoolean
	KindList
	KindMap
)

var kindNames = map[Kind]string{
	KindNull:      "null",
	KindString:    "string",
	KindCharacter: "character",
	KindInteger:   "integer",
	KindLong:      "long",
	KindFloat:     "float",
	KindDouble:    "double",
	KindBoolean:   "boolean",
	KindList:      "list",
	KindMap:       "map",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Value is an immutable typed value. The zero Value is null.
type Value struct {
	kind  Kind
	str   string
	char  rune
	num   int64
	float float64
	flag  bool
	items []Value
	dict  map[string]Value
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Character(r rune) Value { return Value{kind: KindCharacter, char: r} }

func Integer(i int32) Value { return Value{kind: KindInteger, num: int64(i)} }

func Long(i int64) Value { return Value{kind: KindLong, num: i} }

func Float(f float32) Value { return Value{kind: KindFloat, float: float64(f)} }

func Double(f float64) Value { return Value{kind: KindDouble, float: f} }

func Boolean(b bool) Value { return Value{kind: KindBoolean, flag: b} }

// List returns a list value. The slice is copied.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, items: cp}
}

// Map returns a map value. The map is copied.
func Map(entries map[string]Value) Value {
	cp := make(map[string]Value, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return Value{kind: KindMap, dict: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsCharacter() (rune, bool) {
	if v.kind != KindCharacter {
		return 0, false
	}
	return v.char, true
}

func (v Value) AsInteger() (int32, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return int32(v.num), true
}

func (v Value) AsLong() (int64, bool) {
	if v.kind != KindLong {
		return 0, false
	}
	return v.num, true
}

func (v Value) AsFloat() (float32, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return float32(v.float), true
}

func (v Value) AsDouble() (float64, bool) {
	if v.kind != KindDouble {
		return 0, false
	}
	return v.float, true
}

func (v Value) AsBoolean() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.flag, true
}

// AsList returns a copy of the list items.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	cp := make([]Value, len(v.items))
	copy(cp, v.items)
	return cp, true
}

// AsMap returns a copy of the map entries.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	cp := make(map[string]Value, len(v.dict))
	for k, e := range v.dict {
		cp[k] = e
	}
	return cp, true
}

// String returns the textual form used when substituting the value into
// placeholders. Feeding it back through Convert with the same declared type
// yields an equal value.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindCharacter:
		return string(v.char)
	case KindInteger, KindLong:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.float, 'f', -1, 32)
	case KindDouble:
		return strconv.FormatFloat(v.float, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.flag)
	case KindList:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.sortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + v.dict[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "null"
	}
}

// Interface returns the value as a plain Go value suitable for encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindCharacter:
		return string(v.char)
	case KindInteger:
		return int32(v.num)
	case KindLong:
		return v.num
	case KindFloat:
		return float32(v.float)
	case KindDouble:
		return v.float
	case KindBoolean:
		return v.flag
	case KindList:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.dict))
		for k, e := range v.dict {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether both values hold the same variant and contents.
// NaN floats compare equal to themselves.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindCharacter:
		return v.char == other.char
	case KindInteger, KindLong:
		return v.num == other.num
	case KindFloat, KindDouble:
		if math.IsNaN(v.float) && math.IsNaN(other.float) {
			return true
		}
		return v.float == other.float
	case KindBoolean:
		return v.flag == other.flag
	case KindList:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.dict) != len(other.dict) {
			return false
		}
		for k, e := range v.dict {
			o, ok := other.dict[k]
			if !ok || !e.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) sortedKeys() []string {
	keys := make([]string, 0, len(v.dict))
	for k := range v.dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
