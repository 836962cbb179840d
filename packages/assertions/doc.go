// Package assertions checks HTTP responses and captured values.
//
// Supported checks:
//   - Status codes (validate status code of 200)
//   - JSON Schema validation against files under the schema directory
//   - Value comparisons on response paths or context values: equal,
//     not equal, greater/less than, contain, start/end with, match,
//     exist, have length, have type
package assertions
