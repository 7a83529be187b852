// Package gemini implements [ai.Provider] over the REST generateContent
// endpoint of Google's Gemini API.
//
// The response body is decoded twice: into typed wire structs for the
// [ai.ChatResponse] fields, and into a generic map kept in
// [ai.ChatResponse.Raw] so nothing the typed view ignores is lost.
package gemini
