package env

import (
	"sort"
	"sync"

	"github.com/abdul-hamid-achik/hitstep/packages/value"
)

// Well-known context keys written by the built-in steps.
const (
	KeyBaseURL         = "baseUrl"
	KeyEndpoint        = "endpoint"
	KeyHeaders         = "headers"
	KeyPathParameters  = "pathParameters"
	KeyQueryParameters = "queryParameters"
	KeyFormParameters  = "formParameters"
	KeyBody            = "body"
)

// Context is the key/value store shared by the steps of one scenario.
// Every scenario gets its own Context; Reset clears it when the scenario ends.
type Context struct {
	mu     sync.RWMutex
	values map[string]value.Value
}

func NewContext() *Context {
	return &Context{
		values: make(map[string]value.Value),
	}
}

func (c *Context) Set(key string, v value.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = v
}

func (c *Context) Get(key string) (value.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// Reset removes every entry.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]value.Value)
}

func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Keys returns the stored keys in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the current entries.
func (c *Context) Snapshot() map[string]value.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]value.Value, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// GetString returns the entry for key when it holds a string.
func (c *Context) GetString(key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// GetTable returns the entry for key when it holds a map, or an empty map.
func (c *Context) GetTable(key string) map[string]value.Value {
	v, ok := c.Get(key)
	if !ok {
		return map[string]value.Value{}
	}
	m, ok := v.AsMap()
	if !ok {
		return map[string]value.Value{}
	}
	return m
}

// Lookup exposes the context as a placeholder lookup. Null entries count as
// absent.
func (c *Context) Lookup(key string) (value.Value, bool) {
	v, ok := c.Get(key)
	if !ok || v.IsNull() {
		return value.Value{}, false
	}
	return v, true
}
