// Package chat implements the conversation engine: prompt selection per
// session mode, transcript-aware reply generation, reasoning-markup
// stripping, and terminal mood extraction. It talks to the language model
// through the Generator interface and to persistence through the
// TranscriptStore interface, so it carries no vendor or storage specifics.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hearu/hearu-backend/internal/domain"
)

// Message roles as sent to the language model.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in the prompt sent to the model.
type Message struct {
	Role    string
	Content string
}

// Generator produces an assistant reply for an assembled conversation.
// Implemented by llm.GroqClient; tests use in-memory fakes.
type Generator interface {
	Generate(ctx context.Context, msgs []Message) (string, error)
}

// TranscriptStore is the narrow persistence contract the engine needs:
// append one turn, read the whole ordered transcript.
type TranscriptStore interface {
	Append(ctx context.Context, sessionID, role, content string) error
	ReadAll(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error)
}

// ErrGenerationUnavailable is returned when the model call fails or yields
// an empty reply. The transcript is left untouched in that case, so the
// caller can retry the same turn.
var ErrGenerationUnavailable = errors.New("chat: generation unavailable")

// thinkMarkup matches reasoning blocks some models leak into their output.
var thinkMarkup = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripReasoning removes <think>...</think> blocks and trims whitespace.
func StripReasoning(s string) string {
	return strings.TrimSpace(thinkMarkup.ReplaceAllString(s, ""))
}

// Engine advances conversations one turn at a time.
type Engine struct {
	Store   TranscriptStore
	Gen     Generator
	Timeout time.Duration
}

// Advance processes one user turn for a session: it reads the stored
// transcript, sends system prompt + history + input to the model, strips
// reasoning markup, and only then appends both the user turn and the reply
// to the transcript. On any generation failure nothing is persisted and
// ErrGenerationUnavailable is returned.
func (e *Engine) Advance(ctx context.Context, sessionID, mode, input string) (string, error) {
	history, err := e.Store.ReadAll(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("chat: read transcript: %w", err)
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: TemplateFor(mode)})
	for _, entry := range history {
		msgs = append(msgs, Message{Role: entry.Role, Content: entry.Content})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: input})

	genCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	raw, err := e.Gen.Generate(genCtx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	reply := StripReasoning(raw)
	if reply == "" {
		return "", ErrGenerationUnavailable
	}

	// Persist the turn only after a usable reply exists, user turn first so
	// transcript order mirrors the exchange.
	if err := e.Store.Append(ctx, sessionID, domain.RoleUser, input); err != nil {
		return "", fmt.Errorf("chat: append user turn: %w", err)
	}
	if err := e.Store.Append(ctx, sessionID, domain.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("chat: append assistant turn: %w", err)
	}

	return reply, nil
}
