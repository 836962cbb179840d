package assertions

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/hitstep/packages/http"
	"github.com/abdul-hamid-achik/hitstep/packages/value"
	"github.com/xeipuuv/gojsonschema"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

// Err converts a failed result into an error. Passed results yield nil.
func (r *Result) Err() error {
	if r.Passed {
		return nil
	}
	if r.Subject == "" {
		return fmt.Errorf("assertion failed: %s", r.Message)
	}
	return fmt.Errorf("assertion on %s failed: %s", r.Subject, r.Message)
}

// Status checks the response status code.
func Status(resp *http.Response, expected int) *Result {
	result := &Result{
		Subject:  "status",
		Operator: OpEquals.String(),
		Expected: expected,
	}
	if resp == nil {
		result.Message = "no response received"
		return result
	}
	result.Actual = resp.StatusCode
	if resp.StatusCode == expected {
		result.Passed = true
		return result
	}
	result.Message = fmt.Sprintf("expected status %d, got %d", expected, resp.StatusCode)
	return result
}

// Evaluate compares a typed actual value against the textual expected value.
func Evaluate(subject string, actual value.Value, op Operator, expected string) *Result {
	result := &Result{
		Subject:  subject,
		Operator: op.String(),
		Expected: expected,
		Actual:   actual.Interface(),
	}

	var passed bool
	var msg string
	switch op {
	case OpEquals:
		passed, msg = equals(actual, expected)
	case OpNotEquals:
		passed, _ = equals(actual, expected)
		passed = !passed
		if !passed {
			msg = fmt.Sprintf("expected not to equal %v", expected)
		}
	case OpGreaterThan:
		passed, msg = compareNumeric(actual, expected, ">")
	case OpGreaterOrEqual:
		passed, msg = compareNumeric(actual, expected, ">=")
	case OpLessThan:
		passed, msg = compareNumeric(actual, expected, "<")
	case OpLessOrEqual:
		passed, msg = compareNumeric(actual, expected, "<=")
	case OpContains:
		passed, msg = contains(actual, expected)
	case OpNotContains:
		passed, _ = contains(actual, expected)
		passed = !passed
		if !passed {
			msg = fmt.Sprintf("expected not to contain %v", expected)
		}
	case OpStartsWith:
		passed = strings.HasPrefix(actual.String(), expected)
		if !passed {
			msg = fmt.Sprintf("expected '%v' to start with '%v'", actual, expected)
		}
	case OpEndsWith:
		passed = strings.HasSuffix(actual.String(), expected)
		if !passed {
			msg = fmt.Sprintf("expected '%v' to end with '%v'", actual, expected)
		}
	case OpMatches:
		passed, msg = matches(actual, expected)
	case OpExists:
		passed = !actual.IsNull()
		if !passed {
			msg = "expected to exist"
		}
	case OpNotExists:
		passed = actual.IsNull()
		if !passed {
			msg = "expected not to exist"
		}
	case OpLength:
		passed, msg = length(actual, expected)
		result.Actual = computeLength(actual)
	case OpType:
		passed, msg = typeCheck(actual, expected)
	default:
		msg = fmt.Sprintf("unknown operator: %v", op)
	}

	result.Passed = passed
	result.Message = msg
	return result
}

func equals(actual value.Value, expected string) (bool, string) {
	if actual.String() == expected {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := parseFloat(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if b, ok := actual.AsBoolean(); ok && strings.EqualFold(strconv.FormatBool(b), expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func compareNumeric(actual value.Value, expected, op string) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := parseFloat(expected)

	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case ">":
		passed = actualNum > expectedNum
	case ">=":
		passed = actualNum >= expectedNum
	case "<":
		passed = actualNum < expectedNum
	case "<=":
		passed = actualNum <= expectedNum
	}

	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

// contains checks list membership for lists and substring otherwise.
func contains(actual value.Value, expected string) (bool, string) {
	if items, ok := actual.AsList(); ok {
		for _, item := range items {
			if passed, _ := equals(item, expected); passed {
				return true, ""
			}
		}
		return false, fmt.Sprintf("expected list to include %v", expected)
	}
	if strings.Contains(actual.String(), expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to contain '%v'", actual, expected)
}

func matches(actual value.Value, expected string) (bool, string) {
	pattern := strings.TrimPrefix(expected, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}

	if re.MatchString(actual.String()) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

// computeLength returns the length of a value, or -1 if length cannot be computed
func computeLength(actual value.Value) int {
	switch actual.Kind() {
	case value.KindString:
		s, _ := actual.AsString()
		return utf8.RuneCountInString(s)
	case value.KindList:
		items, _ := actual.AsList()
		return len(items)
	case value.KindMap:
		m, _ := actual.AsMap()
		return len(m)
	default:
		return -1
	}
}

func length(actual value.Value, expected string) (bool, string) {
	expectedLen, err := strconv.Atoi(strings.TrimSpace(expected))
	if err != nil {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %s", actual.Kind())
	}

	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

// typeCheck accepts either a declared type name ("long") or "number" for
// any numeric kind.
func typeCheck(actual value.Value, expected string) (bool, string) {
	expectedType := strings.ToLower(strings.TrimSpace(expected))
	actualType := actual.Kind().String()

	if actualType == expectedType {
		return true, ""
	}
	if expectedType == "number" && actual.Kind() != value.KindString {
		if _, ok := toFloat64(actual); ok {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected type %s, got %s", expectedType, actualType)
}

func toFloat64(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KindInteger:
		i, _ := v.AsInteger()
		return float64(i), true
	case value.KindLong:
		n, _ := v.AsLong()
		return float64(n), true
	case value.KindFloat:
		f, _ := v.AsFloat()
		return float64(f), true
	case value.KindDouble:
		f, _ := v.AsDouble()
		return f, true
	case value.KindString:
		return parseFloat(v.String())
	}
	return 0, false
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ResolveSchemaPath joins name onto schemaDir and rejects paths that would
// escape it.
func ResolveSchemaPath(schemaDir, name string) (string, error) {
	schemaPath := name
	if !filepath.IsAbs(schemaPath) && schemaDir != "" {
		schemaPath = filepath.Join(schemaDir, schemaPath)
	}
	if err := validatePathWithinBase(schemaPath, schemaDir); err != nil {
		return "", err
	}
	return schemaPath, nil
}

// validatePathWithinBase checks that the resolved path stays within the base directory
// to prevent path traversal attacks
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

// Schema validates body against the JSON schema stored at schemaPath.
func Schema(body []byte, schemaPath string) *Result {
	result := &Result{
		Subject:  "body",
		Operator: "match schema",
		Expected: schemaPath,
	}

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		result.Message = fmt.Sprintf("failed to read schema file: %v", err)
		return result
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaData)
	documentLoader := gojsonschema.NewBytesLoader(body)

	validation, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		result.Message = fmt.Sprintf("schema validation error: %v", err)
		return result
	}

	if validation.Valid() {
		result.Passed = true
		return result
	}

	lines := []string{"JSON Schema Validation Failed:"}
	for _, desc := range validation.Errors() {
		lines = append(lines, fmt.Sprintf("- [%s] %s", desc.Field(), desc.Description()))
	}
	result.Message = strings.Join(lines, "\n")
	return result
}
