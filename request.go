package banter

import "fmt"

// ChatRequest carries model selection and the ordered request messages.
// The provider uses its own default model when Model is empty.
type ChatRequest struct {
	Model    string
	Messages []Message
	// FreeTier asks the backend to serve the request on its free tier.
	FreeTier bool
	Stream   bool
}

// Validate checks universal constraints on ChatRequest.
// Provider implementations may apply additional provider-specific validation.
func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("request has no messages: %w", ErrValidation)
	}
	for i, m := range r.Messages {
		if err := ValidateMessage(m); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ValidateMessage checks that a message has a known role and well-formed content.
func ValidateMessage(m Message) error {
	switch m.Role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("unknown role %q: %w", m.Role, ErrValidation)
	}
	for _, item := range m.Content {
		switch it := item.(type) {
		case TextItem:
		case FileItem:
			if it.Path == "" {
				return fmt.Errorf("file item without path in %s message: %w", m.Role, ErrValidation)
			}
			if m.Role != RoleUser {
				return fmt.Errorf("file item not allowed in %s message: %w", m.Role, ErrValidation)
			}
		default:
			return fmt.Errorf("unknown content item type %T in %s message: %w", item, m.Role, ErrValidation)
		}
	}
	return nil
}
