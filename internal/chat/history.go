package chat

import (
	"strings"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/domain"
)

// Trim keeps at most 2×maxTurns most-recent messages (one user/assistant
// pair per turn). A non-positive maxTurns clears the history entirely. The
// result is always a suffix of the input.
func Trim(messages []domain.Message, maxTurns int) []domain.Message {
	maxMessages := maxTurns * 2
	if maxMessages <= 0 {
		return nil
	}
	if len(messages) <= maxMessages {
		return messages
	}
	return messages[len(messages)-maxMessages:]
}

// Condense reduces a full turn transcript to the user prompts and final
// assistant replies. Each user message pairs with the first following
// assistant message that carries content; tool calls, tool results, and
// empty assistant planning messages are dropped so stored history never
// leaks tool plumbing. Assistant messages with no preceding unanswered user
// message are kept standalone, and a trailing unanswered user message is
// preserved. The result is trimmed to maxTurns.
func Condense(messages []domain.Message, maxTurns int) []domain.Message {
	var condensed []domain.Message
	var pendingUser *domain.Message

	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleUser:
			u := domain.User(msg.Content)
			pendingUser = &u
		case domain.RoleAssistant:
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			a := domain.Assistant(msg.Content)
			if pendingUser != nil {
				condensed = append(condensed, *pendingUser, a)
				pendingUser = nil
			} else {
				condensed = append(condensed, a)
			}
		}
	}
	if pendingUser != nil {
		condensed = append(condensed, *pendingUser)
	}
	return Trim(condensed, maxTurns)
}
