// Package value defines the typed values that flow between hitstep steps.
//
// A Value is a closed tagged union over the declared type vocabulary:
//   - string, character
//   - integer (32-bit), long (64-bit)
//   - float (32-bit), double (64-bit)
//   - boolean
//   - list of values (extraction targets declared as list<T>)
//   - map of values (parameter tables such as headers or query parameters)
//
// Convert coerces a raw string token into a Value of a declared type. It is a
// pure function and may be called concurrently.
package value
