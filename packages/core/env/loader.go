package env

import (
	"fmt"
	"os"
	"strings"
)

// Environment is a named set of variables seeded into every scenario.
type Environment struct {
	Name      string
	Variables map[string]string
}

// LoadEnvironment picks envName out of the configured environments and, if
// dotEnvPath is set, layers the .env file on top of it.
func LoadEnvironment(envName string, configEnvs map[string]map[string]any, dotEnvPath string) (*Environment, error) {
	env := &Environment{
		Name:      envName,
		Variables: make(map[string]string),
	}

	if vars, ok := configEnvs[envName]; ok {
		for k, v := range vars {
			env.Variables[k] = fmt.Sprintf("%v", v)
		}
	}

	if dotEnvPath != "" {
		vars, err := LoadDotEnv(dotEnvPath)
		if err != nil {
			return nil, err
		}
		env.Variables = MergeVariables(env.Variables, vars)
	}

	return env, nil
}

// MergeVariables merges sources left to right; later sources win.
func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns OS environment variables starting with prefix, with
// the prefix stripped. An empty prefix returns everything.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, val, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = val
		} else if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = val
		}
	}
	return result
}
