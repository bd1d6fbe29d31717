// Package gemini implements [banter.Provider] and [banter.Uploader] for the
// Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating between banter's
// domain types and the Gemini API types. Streaming uses the SDK's iter.Seq2
// iterator, wrapped into the pull-based [banter.Stream] interface.
package gemini

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 8192
)
