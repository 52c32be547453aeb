package core

import "context"

// Turn roles passed to a generation backend.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Turn is one prior message handed to the generation backend as context.
type Turn struct {
	Role string
	Text string
}

// TextGenerationBackend produces a reply to message given the prior turns,
// oldest first. Backends map RoleUser/RoleBot to their own role names.
type TextGenerationBackend interface {
	Reply(ctx context.Context, history []Turn, message string) (string, error)
}
