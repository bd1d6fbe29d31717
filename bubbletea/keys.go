package bubbletea

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Submit  key.Binding
	Stop    key.Binding
	Quit    key.Binding
	NewChat key.Binding
	Attach  key.Binding
	Detach  key.Binding
	Auth    key.Binding
	Model   key.Binding
	Suggest key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Stop:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		NewChat: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		Attach:  key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "attach")),
		Detach:  key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "drop attachment")),
		Auth:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "sign in/out")),
		Model:   key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "model")),
		Suggest: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "suggestion")),
	}
}
