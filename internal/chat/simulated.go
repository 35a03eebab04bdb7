package chat

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/starford/notebot/internal/models"
)

// Canned replies for the simulated responder. The branch is chosen by
// keyword match on the lowercased user message.
const (
	simulatedSummary = "Simulated summary: this note contains key points and recommended next steps."
	simulatedActions = "Simulated action items:\n- Item 1\n- Item 2\n- Item 3"
	simulatedRewrite = "Simulated rewrite: a more professional version would tighten language and clarify intent."
	simulatedDefault = "Simulated response: switch to serverless mode in settings to use real models."
)

// Simulated is a local responder that needs no network. Replies are
// deterministic per keyword branch; only the artificial delay varies.
type Simulated struct {
	delayMin time.Duration
	delayMax time.Duration
	rand     *rand.Rand
}

// NewSimulated creates a simulated responder with a bounded artificial
// delay in [min, max].
func NewSimulated(min, max time.Duration) *Simulated {
	if max < min {
		max = min
	}
	return &Simulated{
		delayMin: min,
		delayMax: max,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Reply returns a canned response for the last user message.
func (s *Simulated) Reply(ctx context.Context, history []models.ChatMessage) (string, error) {
	delay := s.delayMin
	if span := s.delayMax - s.delayMin; span > 0 {
		delay += time.Duration(s.rand.Int63n(int64(span)))
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	var latest string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			latest = history[i].Content
			break
		}
	}
	return simulatedReply(latest), nil
}

func simulatedReply(latest string) string {
	s := strings.ToLower(latest)
	switch {
	case strings.Contains(s, "summarize"):
		return simulatedSummary
	case strings.Contains(s, "action"):
		return simulatedActions
	case strings.Contains(s, "rewrite"):
		return simulatedRewrite
	default:
		return simulatedDefault
	}
}
