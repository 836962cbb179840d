package value

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidFormat is returned when a raw token cannot be parsed as the declared type.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrUnsupportedType is returned for declared types outside the vocabulary.
	ErrUnsupportedType = errors.New("unsupported type")
)

// ConversionError describes a failed conversion of Raw into Type.
type ConversionError struct {
	Raw   string
	Type  string
	Err   error // ErrInvalidFormat or ErrUnsupportedType
	Cause error
}

func (e *ConversionError) Error() string {
	if errors.Is(e.Err, ErrUnsupportedType) {
		return fmt.Sprintf("unsupported type: %q", e.Type)
	}
	if e.Cause != nil {
		return fmt.Sprintf("cannot convert %q to %s: %v", e.Raw, e.Type, e.Cause)
	}
	return fmt.Sprintf("cannot convert %q to %s: %v", e.Raw, e.Type, e.Err)
}

func (e *ConversionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// DefaultType is applied when a compound key carries no type.
const DefaultType = "string"

// Type is a parsed declared type: a scalar kind, optionally wrapped in list<>.
type Type struct {
	Scalar Kind
	List   bool
}

var scalarTypes = map[string]Kind{
	"string":    KindString,
	"character": KindCharacter,
	"integer":   KindInteger,
	"long":      KindLong,
	"float":     KindFloat,
	"double":    KindDouble,
	"boolean":   KindBoolean,
}

// ParseType parses a declared type such as "integer" or "list<double>".
func ParseType(s string) (Type, error) {
	name := strings.TrimSpace(s)
	if strings.HasPrefix(name, "list<") && strings.HasSuffix(name, ">") {
		inner := strings.TrimSpace(name[len("list<") : len(name)-1])
		kind, ok := scalarTypes[inner]
		if !ok {
			return Type{}, &ConversionError{Type: s, Err: ErrUnsupportedType}
		}
		return Type{Scalar: kind, List: true}, nil
	}
	kind, ok := scalarTypes[name]
	if !ok {
		return Type{}, &ConversionError{Type: s, Err: ErrUnsupportedType}
	}
	return Type{Scalar: kind}, nil
}

func (t Type) String() string {
	if t.List {
		return "list<" + t.Scalar.String() + ">"
	}
	return t.Scalar.String()
}

// Convert coerces raw into the declared scalar type. A nil raw yields a null
// Value for any type, without validating the type name.
func Convert(raw *string, typ string) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	return ConvertString(*raw, typ)
}

// ConvertString is Convert for a non-nil token.
func ConvertString(raw, typ string) (Value, error) {
	t, err := ParseType(typ)
	if err != nil {
		return Value{}, err
	}
	return ConvertType(&raw, t)
}

// ConvertType converts raw into an already parsed scalar type. List types
// are rejected: the list wrapper only applies to extraction targets.
func ConvertType(raw *string, t Type) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	if t.List {
		return Value{}, &ConversionError{Raw: *raw, Type: t.String(), Err: ErrUnsupportedType}
	}
	s := *raw
	invalid := func(cause error) error {
		return &ConversionError{Raw: s, Type: t.Scalar.String(), Err: ErrInvalidFormat, Cause: cause}
	}

	switch t.Scalar {
	case KindString:
		return String(s), nil
	case KindCharacter:
		if utf8.RuneCountInString(s) != 1 {
			return Value{}, invalid(errors.New("character type requires single character"))
		}
		r, _ := utf8.DecodeRuneInString(s)
		return Character(r), nil
	case KindInteger:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, invalid(numError(err))
		}
		return Integer(int32(n)), nil
	case KindLong:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, invalid(numError(err))
		}
		return Long(n), nil
	case KindFloat:
		f, err := parseFloat(s, 32)
		if err != nil {
			return Value{}, invalid(err)
		}
		return Float(float32(f)), nil
	case KindDouble:
		f, err := parseFloat(s, 64)
		if err != nil {
			return Value{}, invalid(err)
		}
		return Double(f), nil
	case KindBoolean:
		return Boolean(strings.EqualFold(s, "true")), nil
	}
	return Value{}, &ConversionError{Raw: s, Type: t.String(), Err: ErrUnsupportedType}
}

// parseFloat parses a decimal. Well-formed input beyond the range of the
// type saturates to ±Inf instead of failing.
func parseFloat(s string, bitSize int) (float64, error) {
	f, err := strconv.ParseFloat(s, bitSize)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, numError(err)
	}
	return f, nil
}

// numError strips the strconv wrapper so messages do not repeat the input.
func numError(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}
