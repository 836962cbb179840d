package http

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// Request is an HTTP call assembled from scenario state. The endpoint may
// carry {name} path parameters that BuildURL fills in.
type Request struct {
	Method      string
	BaseURL     string
	Endpoint    string
	Headers     map[string]string
	PathParams  map[string]string
	QueryParams map[string]string
	FormParams  map[string]string
	Body        []byte
	Timeout     time.Duration
}

func NewRequest(method, baseURL, endpoint string) *Request {
	return &Request{
		Method:      strings.ToUpper(method),
		BaseURL:     baseURL,
		Endpoint:    endpoint,
		Headers:     make(map[string]string),
		PathParams:  make(map[string]string),
		QueryParams: make(map[string]string),
		FormParams:  make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetPathParam(key, value string) *Request {
	r.PathParams[key] = value
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

func (r *Request) SetFormParam(key, value string) *Request {
	r.FormParams[key] = value
	return r
}

func (r *Request) SetBody(body []byte) *Request {
	r.Body = body
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// Header returns the request header matching key case-insensitively.
func (r *Request) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// BuildURL joins base URL and endpoint, substitutes path parameters
// (path-escaped) and appends the query parameters sorted by name.
func (r *Request) BuildURL() (string, error) {
	raw := joinURL(r.BaseURL, r.Endpoint)

	for _, name := range sortedKeys(r.PathParams) {
		raw = strings.ReplaceAll(raw, "{"+name+"}", url.PathEscape(r.PathParams[name]))
	}

	if err := ValidateURL(raw); err != nil {
		return "", err
	}
	if len(r.QueryParams) == 0 {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// body returns the payload and the content type it implies. Form
// parameters take precedence over a raw body.
func (r *Request) body() (io.Reader, string) {
	if len(r.FormParams) > 0 {
		form := url.Values{}
		for k, v := range r.FormParams {
			form.Set(k, v)
		}
		return strings.NewReader(form.Encode()), ContentTypeForm
	}
	if len(r.Body) == 0 {
		return nil, ""
	}
	contentType := ""
	if gjson.ValidBytes(r.Body) {
		contentType = ContentTypeJSON
	}
	return strings.NewReader(string(r.Body)), contentType
}

func joinURL(base, endpoint string) string {
	if endpoint == "" {
		return base
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if base == "" {
		return endpoint
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseFormBody decodes an application/x-www-form-urlencoded body.
func ParseFormBody(body string) map[string]string {
	result := make(map[string]string)
	pairs := strings.Split(body, "&")
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			key, _ := url.QueryUnescape(kv[0])
			value, _ := url.QueryUnescape(kv[1])
			result[key] = value
		}
	}
	return result
}
