package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/gateway"
	"github.com/betza/betza/internal/toast"
)

// productState is the product detail screen. simCursor of -1 means the
// product itself is focused; 0..n-1 highlights a similar product.
type productState struct {
	product    gateway.Product
	similar    []gateway.Product
	qty        int
	inWishlist bool
	simCursor  int
}

func (m Model) handleProductKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenHome
		m.detail = productState{}
		return m, nil

	case "+", "=":
		m.detail.qty++
		return m, nil

	case "-", "_":
		if m.detail.qty > 1 {
			m.detail.qty--
		}
		return m, nil

	case "j", "down":
		if m.detail.simCursor < len(m.detail.similar)-1 {
			m.detail.simCursor++
		}
		return m, nil

	case "k", "up":
		if m.detail.simCursor >= 0 {
			m.detail.simCursor--
		}
		return m, nil

	case "f":
		return m, toggleWishlist(m.ctx, m.wishlist, m.detail.product)

	case "enter":
		if m.detail.simCursor >= 0 && m.detail.simCursor < len(m.detail.similar) {
			return m.gotoProduct(m.detail.similar[m.detail.simCursor])
		}
		if err := m.cart.Add(m.detail.product, m.detail.qty); err != nil {
			return m, m.showToast("Could not add to cart", toast.Error)
		}
		return m, m.showToast(fmt.Sprintf("Added %d × %s to cart", m.detail.qty, m.detail.product.Name), toast.Success)
	}
	return m, nil
}

func (m Model) renderProduct() string {
	p := m.detail.product
	var b strings.Builder

	name := p.Name
	if m.detail.inWishlist {
		name += " ♥"
	}
	b.WriteString(m.styles.AccentText.Render(name))
	b.WriteString("\n")
	b.WriteString(m.styles.Text.Render(fmt.Sprintf("%.2f", p.Price)))
	if p.Rating > 0 {
		b.WriteString(m.styles.MutedText.Render(fmt.Sprintf("   %.1f★ (%d reviews)", p.Rating, p.ReviewCount)))
	}
	b.WriteString("\n")
	if p.Category != "" {
		b.WriteString(m.styles.MutedText.Render(p.Category))
		b.WriteString("\n")
	}
	if p.Description != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Text.Render(p.Description))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	qtyLine := fmt.Sprintf("Quantity: %d  (+/- to change, enter to add)", m.detail.qty)
	if line, ok := m.cart.Line(p.ID); ok {
		qtyLine += m.styles.MutedText.Render(fmt.Sprintf("   %d in cart", line.Quantity))
	}
	if m.detail.simCursor < 0 {
		b.WriteString(m.styles.Selected.Render(qtyLine))
	} else {
		b.WriteString(m.styles.Text.Render(qtyLine))
	}
	b.WriteString("\n")

	if len(m.detail.similar) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.MutedText.Render("You may also like"))
		b.WriteString("\n")
		for i, s := range m.detail.similar {
			line := fmt.Sprintf("%-36s %8.2f", truncate(s.Name, 36), s.Price)
			if i == m.detail.simCursor {
				b.WriteString(m.styles.Selected.Render("> " + line))
			} else {
				b.WriteString(m.styles.Text.Render("  " + line))
			}
			b.WriteString("\n")
		}
	}
	return m.styles.Panel.Render(b.String())
}
