package env

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitstep/packages/value"
)

// LoadDotEnv parses a .env file and returns its key-value pairs.
// Supports: KEY=value, export KEY=value, KEY="quoted value", KEY='single quoted', # comments.
// Nothing is exported to the OS environment.
func LoadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, val, ok := parseDotEnvLine(scanner.Text())
		if ok {
			result[key] = val
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return result, nil
}

func parseDotEnvLine(raw string) (string, string, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, val, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	return key, unquote(strings.TrimSpace(val)), true
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' || first == '\'') && first == last {
		return s[1 : len(s)-1]
	}
	return s
}

// Seed stores every variable in ctx as a string value without overwriting
// existing entries.
func Seed(ctx *Context, vars map[string]string) {
	for k, v := range vars {
		if _, exists := ctx.Get(k); exists {
			continue
		}
		ctx.Set(k, value.String(v))
	}
}
