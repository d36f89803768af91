package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/gateway"
)

// homeState is the catalog screen: category tabs, the product list, and
// the search box.
type homeState struct {
	categories []gateway.Category
	products   []gateway.Product
	cursor     int

	// catCursor indexes the tab bar, where 0 is the synthetic "All" tab.
	catCursor      int
	activeCategory int64

	searching bool
	search    textinput.Model
	term      string
}

func newHomeState() homeState {
	search := textinput.New()
	search.Placeholder = "search products"
	search.CharLimit = 80
	return homeState{search: search}
}

func (m Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.home.cursor < len(m.home.products)-1 {
			m.home.cursor++
		}
		return m, nil

	case "k", "up":
		if m.home.cursor > 0 {
			m.home.cursor--
		}
		return m, nil

	case "g", "home":
		m.home.cursor = 0
		return m, nil

	case "G", "end":
		if n := len(m.home.products); n > 0 {
			m.home.cursor = n - 1
		}
		return m, nil

	case "h", "left":
		return m.shiftCategory(-1)

	case "l", "right":
		return m.shiftCategory(1)

	case "/":
		m.home.searching = true
		m.home.search.SetValue(m.home.term)
		m.home.search.Focus()
		return m, textinput.Blink

	case "enter":
		if p, ok := m.selectedProduct(); ok {
			return m.gotoProduct(p)
		}
		return m, nil

	case "f":
		if p, ok := m.selectedProduct(); ok {
			return m, toggleWishlist(m.ctx, m.wishlist, p)
		}
		return m, nil

	case "r":
		m.loading = true
		return m, tea.Batch(m.loadHome()...)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.home.searching = false
		m.home.search.Blur()
		if m.home.term != "" {
			m.home.term = ""
			m.home.cursor = 0
			m.loading = true
			return m, tea.Batch(m.loadHome()...)
		}
		return m, nil

	case "enter":
		m.home.searching = false
		m.home.search.Blur()
		m.home.term = strings.TrimSpace(m.home.search.Value())
		m.home.cursor = 0
		m.loading = true
		return m, tea.Batch(m.loadHome()...)
	}

	var cmd tea.Cmd
	m.home.search, cmd = m.home.search.Update(msg)
	return m, cmd
}

// shiftCategory moves the category tab selection and reloads the list.
// A search term pins the list to search results, so tabs are inert then.
func (m Model) shiftCategory(delta int) (tea.Model, tea.Cmd) {
	if m.home.term != "" {
		return m, nil
	}
	count := len(m.home.categories) + 1
	next := m.home.catCursor + delta
	if next < 0 || next >= count {
		return m, nil
	}
	m.home.catCursor = next
	if next == 0 {
		m.home.activeCategory = 0
	} else {
		m.home.activeCategory = m.home.categories[next-1].ID
	}
	m.home.cursor = 0
	m.loading = true
	return m, tea.Batch(m.loadHome()...)
}

func (m Model) selectedProduct() (gateway.Product, bool) {
	if m.home.cursor < 0 || m.home.cursor >= len(m.home.products) {
		return gateway.Product{}, false
	}
	return m.home.products[m.home.cursor], true
}

func (m Model) renderHome() string {
	var b strings.Builder

	b.WriteString(m.renderCategoryBar())
	b.WriteString("\n")

	if m.home.searching {
		b.WriteString(m.home.search.View())
		b.WriteString("\n")
	} else if m.home.term != "" {
		b.WriteString(m.styles.MutedText.Render("search: " + m.home.term + " (/ to change, esc to clear)"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.home.products) == 0 {
		b.WriteString(m.styles.MutedText.Render("No products found"))
		return b.String()
	}

	for i, p := range m.home.products {
		line := fmt.Sprintf("%-40s %8.2f", truncate(p.Name, 40), p.Price)
		if p.Rating > 0 {
			line += fmt.Sprintf("  %.1f★ (%d)", p.Rating, p.ReviewCount)
		}
		if m.wishlist.Contains(p.ID) {
			line += "  ♥"
		}
		if i == m.home.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Text.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCategoryBar() string {
	tabs := make([]string, 0, len(m.home.categories)+1)
	names := append([]string{"All"}, categoryNames(m.home.categories)...)
	for i, name := range names {
		if i == m.home.catCursor {
			tabs = append(tabs, m.styles.Selected.Render(" "+name+" "))
		} else {
			tabs = append(tabs, m.styles.MutedText.Render(" "+name+" "))
		}
	}
	return strings.Join(tabs, " ")
}

func categoryNames(categories []gateway.Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
