// Package params builds typed parameter tables from "key:type | value" rows.
//
// Tables back the headers, path, query and form parameters and the body of
// a request. Building is additive: each call merges new rows over the table
// accumulated so far.
package params
