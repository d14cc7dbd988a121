// Package llm answers free-form prompts for the askgpt command.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyAnswer is returned when a provider answers with no text.
var ErrEmptyAnswer = errors.New("llm: empty answer")

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// Ask sends a single prompt under a system instruction and returns the
// trimmed answer.
func Ask(ctx context.Context, c Client, system, prompt string) (Response, error) {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: prompt})

	resp, err := c.Generate(ctx, msgs)
	if err != nil {
		return Response{}, err
	}
	resp.Content = strings.TrimSpace(resp.Content)
	if resp.Content == "" {
		return Response{}, ErrEmptyAnswer
	}
	return resp, nil
}
