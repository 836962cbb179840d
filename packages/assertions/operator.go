package assertions

import (
	"fmt"
	"sort"
	"strings"
)

type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpExists
	OpNotExists
	OpLength
	OpType
)

var operatorNames = map[Operator]string{
	OpEquals:         "equal",
	OpNotEquals:      "not equal",
	OpGreaterThan:    "be greater than",
	OpGreaterOrEqual: "be at least",
	OpLessThan:       "be less than",
	OpLessOrEqual:    "be at most",
	OpContains:       "contain",
	OpNotContains:    "not contain",
	OpStartsWith:     "start with",
	OpEndsWith:       "end with",
	OpMatches:        "match",
	OpExists:         "exist",
	OpNotExists:      "not exist",
	OpLength:         "have length",
	OpType:           "have type",
}

var operatorAliases = map[string]Operator{
	"==": OpEquals,
	"!=": OpNotEquals,
	">":  OpGreaterThan,
	">=": OpGreaterOrEqual,
	"<":  OpLessThan,
	"<=": OpLessOrEqual,
	"be": OpEquals,
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// NeedsOperand reports whether the operator compares against an expected value.
func (o Operator) NeedsOperand() bool {
	return o != OpExists && o != OpNotExists
}

// ParseOperator accepts the phrase used in steps ("equal", "be greater than",
// "not contain") or a symbolic alias ("==", ">=").
func ParseOperator(s string) (Operator, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	for op, name := range operatorNames {
		if name == normalized {
			return op, nil
		}
	}
	if op, ok := operatorAliases[normalized]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// Phrases lists every operator phrase, longest first, for building step patterns.
func Phrases() []string {
	phrases := make([]string, 0, len(operatorNames))
	for _, name := range operatorNames {
		phrases = append(phrases, name)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i]) != len(phrases[j]) {
			return len(phrases[i]) > len(phrases[j])
		}
		return phrases[i] < phrases[j]
	})
	return phrases
}
