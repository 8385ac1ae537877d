package provider

import (
	"context"
	"fmt"
	"strings"
)

// Complete sends a single system+user exchange and collects the streamed reply.
// Thinking output is dropped and any leftover <think> block is stripped.
func Complete(ctx context.Context, p Provider, system, user string) (string, error) {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})

	stream, err := p.Chat(ctx, msgs)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for chunk := range stream {
		if chunk.Error != nil {
			return "", fmt.Errorf("%s stream: %w", p.Name(), chunk.Error)
		}
		b.WriteString(chunk.Delta)
		if chunk.Done {
			break
		}
	}
	return StripThinking(b.String()), nil
}

// StripThinking removes <think>...</think> blocks. An unterminated block
// swallows the rest of the text.
func StripThinking(s string) string {
	for {
		start := strings.Index(s, thinkOpen)
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], thinkClose)
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len(thinkClose):]
	}
	return strings.TrimSpace(s)
}
