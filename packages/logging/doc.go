// Package logging builds the slog handlers used across hitstep and keeps
// credentials such as Authorization headers and tokens out of the logs.
package logging
