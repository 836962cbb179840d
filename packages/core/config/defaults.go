package config

const (
	DefaultTimeoutMs    = 30000
	DefaultMaxRedirects = 10
	DefaultConcurrency  = 5
	DefaultSchemaDir    = "schemas"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "dev",
		Timeout:            DefaultTimeoutMs,
		FollowRedirects:    BoolPtr(true),
		MaxRedirects:       DefaultMaxRedirects,
		ValidateSSL:        BoolPtr(true),
		SchemaDir:          DefaultSchemaDir,
		PreserveCase:       BoolPtr(false),
		Reporters:          []string{"console"},
		LogFormat:          "text",
		Parallel:           BoolPtr(false),
		Concurrency:        DefaultConcurrency,
		Bail:               BoolPtr(false),
		Verbose:            BoolPtr(false),
		NoColor:            BoolPtr(false),
	}
}
