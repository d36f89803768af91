package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/gateway"
)

type ordersState struct {
	orders []gateway.Order
	cursor int
}

func (m Model) handleOrdersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenHome
		return m, nil

	case "j", "down":
		if m.orders.cursor < len(m.orders.orders)-1 {
			m.orders.cursor++
		}
		return m, nil

	case "k", "up":
		if m.orders.cursor > 0 {
			m.orders.cursor--
		}
		return m, nil

	case "enter":
		if m.orders.cursor >= 0 && m.orders.cursor < len(m.orders.orders) {
			return m.gotoOrderDetail(m.orders.orders[m.orders.cursor].ID)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleOrderDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		next, cmd := m.gotoOrders()
		return next, cmd
	}
	return m, nil
}

func (m Model) renderOrders() string {
	var b strings.Builder
	b.WriteString(m.styles.AccentText.Render("Orders"))
	b.WriteString("\n\n")

	if len(m.orders.orders) == 0 {
		b.WriteString(m.styles.MutedText.Render("No orders yet"))
		return b.String()
	}

	for i, o := range m.orders.orders {
		line := fmt.Sprintf("#%-6d %-12s %10.2f  %s", o.ID, o.Status, o.Total, o.CreatedAt)
		if i == m.orders.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderOrderDetail() string {
	o := m.order
	var b strings.Builder
	b.WriteString(m.styles.AccentText.Render(fmt.Sprintf("Order #%d", o.ID)))
	b.WriteString("\n")
	b.WriteString(m.styles.Text.Render(o.Status + "  " + o.CreatedAt))
	b.WriteString("\n\n")

	for _, item := range o.Items {
		name := fmt.Sprintf("product %d", item.ProductID)
		if item.Products != nil {
			name = item.Products.Name
		}
		b.WriteString(m.styles.Text.Render(fmt.Sprintf("  %-36s ×%-3d %8.2f",
			truncate(name, 36), item.Quantity, item.UnitPrice)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.SuccessText.Render(fmt.Sprintf("Total %.2f", o.Total)))
	return m.styles.Panel.Render(b.String())
}
