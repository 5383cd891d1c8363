// Package llmclient provides a narrow capability interface over chat-style
// LLM providers so the Decision Kernel and Review service depend on neither
// provider's SDK directly.
package llmclient

import "context"

// Message is one turn of a chat-style conversation.
type Message struct {
	Role    string
	Content string
}

// Client is the minimal capability both the Decision Kernel and the Review
// service need: turn a message list into a single text reply.
type Client interface {
	Chat(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error)
}
