// Package extract pulls typed values out of a parsed JSON document using
// dotted paths.
//
// Supported path syntax:
//   - optional "$." prefix
//   - dot separated field names (user.address.city)
//   - explicit indexing of an array field (users[0].name)
//
// Arrays met where a field is expected are fanned out: every element is
// traversed independently and the surviving matches are collected in
// document order. A path ending on an array yields every element of it.
//
// This is not a JSONPath implementation: there are no filters, slices,
// wildcards or recursive descent.
package extract
