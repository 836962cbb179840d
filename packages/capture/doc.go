// Package capture extracts typed values from HTTP responses into the
// scenario context.
//
// Each row maps a source to a "key:type" target. Sources are:
//   - JSON body paths such as data.users.id or items[0].sku
//   - @header.<name> for a response header
//   - @status for the status code
//   - @duration for the round-trip time in milliseconds
//
// Captured values can be used in later steps via the {key} placeholder syntax,
// enabling request chaining and dependent scenarios.
package capture
