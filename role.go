package banter

// Role represents the author of a turn or request message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)
