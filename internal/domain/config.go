package domain

// KeyPrefix namespaces every key pdfqa writes to a shared key-value store.
const KeyPrefix = "pdfqa:"

// Pipeline defaults. Config overrides all of them.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultBatchSize      = 100
	DefaultTopK           = 5
	DefaultMaxTokens      = 1024
	DefaultMaxPromptChars = 48000
	DefaultExcerptRunes   = 300

	DefaultNoDocumentsMessage = "Sorry, no relevant documents were found."
)
