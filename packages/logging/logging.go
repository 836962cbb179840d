package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	// Redacted replaces the value of sensitive attributes and headers.
	Redacted = "[REDACTED]"
)

var sensitiveKeys = map[string]bool{
	"authorization":      true,
	"proxyauthorization": true,
	"cookie":             true,
	"setcookie":          true,
	"xapikey":            true,
	"apikey":             true,
	"password":           true,
	"token":              true,
	"secret":             true,
	"accesstoken":        true,
	"refreshtoken":       true,
	"clientsecret":       true,
}

// IsSensitive reports whether key names a credential-bearing attribute or
// header. Case, '-' and '_' are ignored.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(key)
	normalized = strings.NewReplacer("-", "", "_", "").Replace(normalized)
	return sensitiveKeys[normalized]
}

// NewHandler returns a text or JSON handler writing to w at level. Sensitive
// attributes are redacted.
func NewHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	}
	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.NewTextHandler(w, opts), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected text or json)", format)
	}
}

// New is NewHandler wrapped in a logger.
func New(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	h, err := NewHandler(w, format, level)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

// Level maps the CLI verbosity flags to a level.
func Level(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RedactHeaders copies headers, masking sensitive values.
func RedactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if IsSensitive(k) {
			out[k] = Redacted
			continue
		}
		out[k] = v
	}
	return out
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if IsSensitive(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	return a
}
