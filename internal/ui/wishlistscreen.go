package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/gateway"
)

type wishState struct {
	products []gateway.Product
	cursor   int
}

func (m Model) handleWishlistKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenHome
		return m, nil

	case "j", "down":
		if m.wish.cursor < len(m.wish.products)-1 {
			m.wish.cursor++
		}
		return m, nil

	case "k", "up":
		if m.wish.cursor > 0 {
			m.wish.cursor--
		}
		return m, nil

	case "enter":
		if p, ok := m.selectedWish(); ok {
			return m.gotoProduct(p)
		}
		return m, nil

	case "f":
		if p, ok := m.selectedWish(); ok {
			return m, toggleWishlist(m.ctx, m.wishlist, p)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) selectedWish() (gateway.Product, bool) {
	if m.wish.cursor < 0 || m.wish.cursor >= len(m.wish.products) {
		return gateway.Product{}, false
	}
	return m.wish.products[m.wish.cursor], true
}

func (m Model) renderWishlist() string {
	var b strings.Builder
	b.WriteString(m.styles.AccentText.Render("Wishlist"))
	b.WriteString("\n\n")

	if len(m.wish.products) == 0 {
		b.WriteString(m.styles.MutedText.Render("Nothing saved yet"))
		return b.String()
	}

	for i, p := range m.wish.products {
		line := fmt.Sprintf("%-40s %8.2f", truncate(p.Name, 40), p.Price)
		if i == m.wish.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
