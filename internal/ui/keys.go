package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the section shortcuts that work from any shopping screen.
// Screen-local keys are matched inline by each screen's handler.
type keyMap struct {
	Cart     key.Binding
	Wishlist key.Binding
	Orders   key.Binding
	Profile  key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Cart: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cart"),
		),
		Wishlist: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "wishlist"),
		),
		Orders: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "orders"),
		),
		Profile: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "profile"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
