// Package steps binds feature-file step text to Go handlers.
//
// A Registry holds pattern/handler pairs; RegisterBuiltins installs the
// step library used by hitstep scenarios:
//
//	set base url to <url>
//	set endpoint to <path>
//	add to headers | path parameters | query parameters | form parameters | body   (table)
//	set body to                                                                    (doc string)
//	generate random values                                                         (table: key:type | regex)
//	send a <METHOD> request
//	validate status code of <code>
//	the response body should match schema: <file>
//	the response body should match snapshot <name>
//	extract values from response                                                   (table: path | key:type)
//	set database to <connection string>
//	run query                                                                      (doc string)
//	extract values from query                                                      (table: column | key:type)
//	execute on database                                                            (doc string)
//	store <key:type> as <value>
//	print context
//	the value <key> should <operator> [expected]
//	the response <source[:type]> should <operator> [expected]
//
// Handlers share a World that lives for one scenario.
package steps
