package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/cart"
	"github.com/betza/betza/internal/session"
	"github.com/betza/betza/internal/shop"
	"github.com/betza/betza/internal/toast"
)

func (m Model) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lines := m.cart.Lines()

	switch msg.String() {
	case "esc":
		m.screen = screenHome
		return m, nil

	case "j", "down":
		if m.cartCursor < len(lines)-1 {
			m.cartCursor++
		}
		return m, nil

	case "k", "up":
		if m.cartCursor > 0 {
			m.cartCursor--
		}
		return m, nil

	case "+", "=":
		if l, ok := m.selectedCartLine(lines); ok {
			m.cart.SetQuantity(l.Product.ID, l.Quantity+1)
		}
		return m, nil

	case "-", "_":
		if l, ok := m.selectedCartLine(lines); ok {
			// Dropping to zero removes the line.
			m.cart.SetQuantity(l.Product.ID, l.Quantity-1)
			m.clampCartCursor()
		}
		return m, nil

	case "x", "delete":
		if l, ok := m.selectedCartLine(lines); ok {
			m.cart.Remove(l.Product.ID)
			m.clampCartCursor()
			return m, m.showToast("Removed "+l.Product.Name, toast.Info)
		}
		return m, nil

	case "enter":
		return m.checkout()
	}
	return m, nil
}

func (m Model) selectedCartLine(lines []cart.Line) (cart.Line, bool) {
	if m.cartCursor < 0 || m.cartCursor >= len(lines) {
		return cart.Line{}, false
	}
	return lines[m.cartCursor], true
}

func (m *Model) clampCartCursor() {
	if n := m.cart.Len(); m.cartCursor >= n && m.cartCursor > 0 {
		m.cartCursor = n - 1
	}
}

func (m Model) checkout() (tea.Model, tea.Cmd) {
	if m.cart.Len() == 0 {
		return m, m.showToast("Your cart is empty", toast.Info)
	}
	if m.session.State() != session.StateAuthenticated {
		return m, m.showToast("Sign in to check out", toast.Error)
	}
	m.loading = true
	reference := shop.NewPaymentReference()
	return m, verifyPayment(m.ctx, m.shop, reference)
}

func (m Model) renderConfirmTotal() string {
	return fmt.Sprintf("%d items, total %.2f", m.cart.TotalItems(), m.cart.Total())
}

func (m Model) renderCart() string {
	lines := m.cart.Lines()
	var b strings.Builder

	b.WriteString(m.styles.AccentText.Render("Cart"))
	b.WriteString("\n\n")

	if len(lines) == 0 {
		b.WriteString(m.styles.MutedText.Render("Your cart is empty"))
		return b.String()
	}

	for i, l := range lines {
		line := fmt.Sprintf("%-36s  ×%-3d %8.2f  %10.2f",
			truncate(l.Product.Name, 36), l.Quantity, l.Product.Price, l.Subtotal())
		if i == m.cartCursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.SuccessText.Render(m.renderConfirmTotal()))
	b.WriteString("\n")
	b.WriteString(m.styles.MutedText.Render("enter to check out"))
	return b.String()
}
