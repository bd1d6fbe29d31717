package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// InPicker reports whether the file picker is open.
func InPicker(m Model) bool {
	return m.mode == modePicker
}

// InSignIn reports whether the credential prompt is open.
func InSignIn(m Model) bool {
	return m.mode == modeSignIn
}

// AttachPath exports attachPath for testing.
func AttachPath(m Model, path string) Model {
	return m.attachPath(path)
}
