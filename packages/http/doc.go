// Package http sends the requests built up by scenario steps.
//
// It wraps the standard library's http package with:
//   - Configurable timeouts, redirects, proxy and TLS verification
//   - A shared rate limit across parallel scenarios
//   - Path parameter substitution and sorted query strings
//   - Form and JSON bodies
//   - Debug logging with credentials redacted
package http
