// Package genaisdk implements [ai.Provider] on top of the official
// google.golang.org/genai client.
//
// Unlike the REST provider in package gemini, the raw response kept in
// [ai.ChatResponse.Raw] is the SDK's typed *genai.GenerateContentResponse,
// whose inline data is already decoded to bytes.
package genaisdk
