package banter

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrProviderUnavailable indicates the AI backend is not configured or
	// could not be constructed.
	ErrProviderUnavailable = errors.New("AI provider is not available yet, please try again in a moment")

	// ErrUsageLimited indicates the backend refused the request because the
	// account exhausted its usage quota.
	ErrUsageLimited = errors.New("usage limit exceeded")

	// ErrNotSignedIn indicates a submit was attempted without a session.
	ErrNotSignedIn = errors.New("sign in required")

	// ErrBusy indicates a submit was attempted while another turn is in flight.
	ErrBusy = errors.New("a reply is already in progress")

	// ErrEmptyInput indicates a submit with neither text nor attachments.
	ErrEmptyInput = errors.New("nothing to send")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrFlagNotFound indicates the local storage has no value for a key.
	ErrFlagNotFound = errors.New("flag not found")
)

// UsageLimitedText is shown in place of the error detail when the backend
// reports an exhausted usage quota.
const UsageLimitedText = "лимит исчерпан возвращайтесь завтра"

// errorPrefix marks assistant turns that carry an error detail.
const errorPrefix = "AI error: "

var usageLimitedPattern = regexp.MustCompile("(?i)delegate `usage-limited-chat`.*Permission denied")

// RemoteError carries the error detail reported by a remote backend.
type RemoteError struct {
	Code    int    `json:"code,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

func (e *RemoteError) Error() string {
	switch {
	case e.Status != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	case e.Message != "":
		return e.Message
	case e.Status != "":
		return e.Status
	default:
		return fmt.Sprintf("remote error %d", e.Code)
	}
}

// Unwrap returns the wrapped classification error, if any.
func (e *RemoteError) Unwrap() error { return e.Err }

// ErrorDetail extracts the most specific human-readable detail from err:
// a remote message, then the error text, then a serialisation of the remote
// error, then a fixed fallback.
func ErrorDetail(err error) string {
	if err == nil {
		return "Unknown error"
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		if remote.Message != "" {
			return remote.Message
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	if remote != nil {
		if data, jerr := json.MarshalIndent(remote, "", "  "); jerr == nil {
			return string(data)
		}
	}
	return "Unknown error"
}

// IsUsageLimited reports whether err signals an exhausted usage quota.
func IsUsageLimited(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUsageLimited) || usageLimitedPattern.MatchString(ErrorDetail(err))
}

// ClassifyError maps a failed turn's error to the text shown in its place.
func ClassifyError(err error) string {
	if IsUsageLimited(err) {
		return UsageLimitedText
	}
	return errorPrefix + ErrorDetail(err)
}
