// Package builtin provides the placeholder functions and random data
// generation used by hitstep scenarios.
//
// Functions are called with the {name(args)} placeholder syntax and return
// typed values:
//   - uuid(), now([layout]), date([layout], [offset])   strings
//   - timestamp(), timestampMs()                         longs
//   - random([min, max])                                 long, inclusive
//   - randomDouble([min, max]), randomBoolean()          double, boolean
//   - randomString([n]), randomAlphanumeric([n]), randomEmail()
//   - regex(pattern)                                     a string matching pattern
//
// Placeholders cannot contain braces, so regex() patterns repeat with * + ?
// rather than {n}. The "generate random values" step has no such limit.
//   - upper(s), base64(s), md5(s), sha256(s), urlEncode(s)
//
// Names match case-insensitively. Table values are lower-cased before
// resolution, so upper() restores case where a value needs it.
//
// Generator backs regex() and the "generate random values" step.
package builtin
