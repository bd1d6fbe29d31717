package banter

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme. Negative values mean no color.
type Theme struct {
	UserMsg int // User message accent
	Error   int // Error turns and status errors
	Success int // Signed-in indicator
	Muted   int // Status bar, timestamps, placeholders
	Accent  int // Headings, links, selected model
	Math    int // Typeset math spans
	CodeBg  int // Code block gutter
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg: 4,
		Error:   1,
		Success: 2,
		Muted:   8,
		Accent:  5,
		Math:    6,
		CodeBg:  0,
	}
}
