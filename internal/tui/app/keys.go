package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the menu.
type KeyMap struct {
	Host  key.Binding
	Join  key.Binding
	Leave key.Binding
	Help  key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Host: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "host"),
		),
		Join: key.NewBinding(
			key.WithKeys("j"),
			key.WithHelp("j", "join"),
		),
		Leave: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "leave"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Host, k.Join, k.Leave, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
