package chat

import "errors"

var (
	// ErrInvalidInput rejects empty prompts before any model call.
	ErrInvalidInput = errors.New("prompt must not be empty")

	// ErrToolLoopExceeded terminates a turn whose tool-call cycle never
	// reached a final answer within the configured iteration ceiling.
	ErrToolLoopExceeded = errors.New("tool-calling loop exceeded iteration limit")
)
