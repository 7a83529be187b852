// Package utils holds small helpers shared by the providers and the command:
// a JSON POST round trip with tracing, string truncation for logs and a
// generic pointer helper.
package utils
