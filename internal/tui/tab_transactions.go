package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/tui/components"
	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

type txListState struct {
	cursor    int
	offset    int
	searching bool
	input     textinput.Model
	query     string
	viewRows  int
}

func (s *txListState) move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

func (s *txListState) clamp(n int) {
	s.cursor = max(0, min(s.cursor, n-1))
	rows := max(1, s.viewRows)
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+rows {
		s.offset = s.cursor - rows + 1
	}
	s.offset = max(0, s.offset)
}

// visibleTransactions applies the search query to the loaded ledger.
func (a App) visibleTransactions() []model.Transaction {
	q := strings.ToLower(strings.TrimSpace(a.txState.query))
	if q == "" {
		return a.data.txs
	}
	var out []model.Transaction
	for _, tx := range a.data.txs {
		if strings.Contains(strings.ToLower(tx.Description), q) ||
			strings.Contains(strings.ToLower(tx.Merchant), q) ||
			strings.Contains(strings.ToLower(a.data.category(tx.CategoryID)), q) {
			out = append(out, tx)
		}
	}
	return out
}

func (a App) updateTransactionsKey(key string) (tea.Model, tea.Cmd, bool) {
	n := len(a.visibleTransactions())
	switch key {
	case "j", "down":
		a.txState.move(1, n)
	case "k", "up":
		a.txState.move(-1, n)
	case "g", "home":
		a.txState.move(-n, n)
	case "G", "end":
		a.txState.move(n, n)
	case "pgdown", "ctrl+d":
		a.txState.move(max(1, a.txState.viewRows/2), n)
	case "pgup", "ctrl+u":
		a.txState.move(-max(1, a.txState.viewRows/2), n)
	case "/":
		ti := textinput.New()
		ti.Placeholder = "description, merchant or category"
		ti.CharLimit = 64
		ti.SetValue(a.txState.query)
		ti.Focus()
		a.txState.input = ti
		a.txState.searching = true
		return a, textinput.Blink, true
	case "esc":
		if a.txState.query == "" {
			return a, nil, false
		}
		a.txState.query = ""
		a.txState.cursor, a.txState.offset = 0, 0
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) updateTxSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.txState.searching = false
		a.txState.input.Blur()
		return a, nil
	case "esc":
		a.txState.searching = false
		a.txState.query = ""
		a.txState.cursor, a.txState.offset = 0, 0
		return a, nil
	}
	var cmd tea.Cmd
	a.txState.input, cmd = a.txState.input.Update(msg)
	a.txState.query = a.txState.input.Value()
	a.txState.cursor, a.txState.offset = 0, 0
	return a, cmd
}

func (a App) renderTransactionsTab(cw, h int) string {
	t := theme.Active
	cur := a.currency()
	txs := a.visibleTransactions()

	inner := components.CardInnerWidth(cw)
	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)

	// Card border, title, search line and header take 6 rows.
	rows := max(1, h-6)
	st := a.txState
	st.viewRows = rows
	st.clamp(len(txs))

	const dateW, amountW = 12, 14
	catW := min(18, max(10, inner/6))
	descW := max(10, inner-dateW-amountW-catW-3)

	var b strings.Builder
	switch {
	case st.searching:
		b.WriteString(dim.Render("/") + st.input.View())
	case st.query != "":
		b.WriteString(dim.Render(fmt.Sprintf("filter %q  %d of %d  [esc] clear", st.query, len(txs), len(a.data.txs))))
	default:
		b.WriteString(dim.Render(fmt.Sprintf("%d transactions in the last %d months  [/] search", len(txs), historyMonths)))
	}
	b.WriteString("\n")
	b.WriteString(headStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %*s", dateW, "Date", descW, "Description", catW, "Category", amountW, "Amount")))

	if len(txs) == 0 {
		b.WriteString("\n" + dim.Render("Nothing to show"))
	}
	end := min(len(txs), st.offset+rows)
	for i := st.offset; i < end; i++ {
		tx := txs[i]
		desc := tx.Description
		if tx.Merchant != "" && !strings.EqualFold(tx.Merchant, tx.Description) {
			desc = tx.Merchant + " · " + desc
		}
		line := fmt.Sprintf("%-*s %-*s %-*s ",
			dateW, tx.OccurredAt.Local().Format("Jan 02 2006"),
			descW, truncStr(desc, descW),
			catW, truncStr(a.data.category(tx.CategoryID), catW))
		amount := fmt.Sprintf("%*s", amountW, cli.FormatSignedMoney(tx.Signed(), cur))

		b.WriteString("\n")
		if i == st.cursor {
			b.WriteString(selStyle.Render(line + amount))
			continue
		}
		amtColor := t.Expense
		if tx.Kind == model.Income {
			amtColor = t.Income
		}
		b.WriteString(rowStyle.Render(line) + lipgloss.NewStyle().Foreground(amtColor).Background(t.Surface).Render(amount))
	}

	return components.ContentCard("Transactions", b.String(), cw)
}
