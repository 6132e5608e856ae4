package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/fintrack/internal/cli"
	"github.com/theirongolddev/fintrack/internal/tui/components"
	"github.com/theirongolddev/fintrack/internal/tui/theme"
)

// leaderboardRows is how many ranks the leaderboard shows around the user.
const leaderboardRows = 10

func (a App) renderSocialTab(cw int) string {
	t := theme.Active
	d := a.data
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	text := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	head := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	mine := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright).Bold(true)

	var b strings.Builder

	rankValue, rankDelta := "-", "not ranked yet"
	if d.myRank != nil {
		rankValue = fmt.Sprintf("#%d", d.myRank.Rank)
		rankDelta = fmt.Sprintf("of %d savers", len(d.rankings))
	}
	b.WriteString(components.MetricCardRow([]struct{ Label, Value, Delta string }{
		{"Rank " + d.month, rankValue, rankDelta},
		{"Badges", cli.FormatWhole(int64(len(d.badges))), ""},
		{"Friend requests", cli.FormatWhole(int64(len(d.incoming))), fmt.Sprintf("%d sent, awaiting reply", d.outgoing)},
	}, cw))
	b.WriteString("\n")

	// Leaderboard window around the user's own position.
	var lb strings.Builder
	if len(d.rankings) == 0 {
		lb.WriteString(dim.Render("No rankings for " + d.month + " yet. Run `fintrack rank` to compute them."))
	} else {
		inner := components.CardInnerWidth(cw)
		nameW := max(10, inner-38)
		lb.WriteString(head.Render(fmt.Sprintf("%5s  %-*s %8s %10s %10s", "Rank", nameW, "Saver", "Score", "Savings", "Net")))
		start := 0
		if d.myRank != nil {
			start = max(0, min(d.myRank.Rank-1-leaderboardRows/2, len(d.rankings)-leaderboardRows))
		}
		end := min(len(d.rankings), start+leaderboardRows)
		for _, r := range d.rankings[start:end] {
			name := r.DisplayName
			if name == "" {
				name = r.UserID
			}
			line := fmt.Sprintf("%5d  %-*s %8.1f %10s %10s", r.Rank, nameW, truncStr(name, nameW), r.Score,
				cli.FormatPercent(r.SavingsRate), cli.FormatCompact(r.Income.Sub(r.Expense).Round(0).IntPart()))
			lb.WriteString("\n")
			if r.UserID == a.userID {
				lb.WriteString(mine.Render(line))
			} else {
				lb.WriteString(text.Render(line))
			}
		}
	}
	b.WriteString(components.ContentCard("Leaderboard", lb.String(), cw))
	b.WriteString("\n")

	halves := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		halves = []int{cw, cw}
	}

	var badges strings.Builder
	if len(d.badges) == 0 {
		badges.WriteString(dim.Render("No badges yet"))
	}
	star := lipgloss.NewStyle().Foreground(t.Yellow).Background(t.Surface).Render("★ ")
	for i, bd := range d.badges {
		if i > 0 {
			badges.WriteString("\n")
		}
		badges.WriteString(star + text.Render(bd.Name) + dim.Render("  "+cli.FormatDate(bd.AwardedAt)))
	}

	var reqs strings.Builder
	if len(d.incoming) == 0 {
		reqs.WriteString(dim.Render("No pending requests"))
	}
	for i, f := range d.incoming {
		if i > 0 {
			reqs.WriteString("\n")
		}
		reqs.WriteString(text.Render(truncStr(f.RequesterID, 24)) + dim.Render("  "+cli.FormatAgo(f.CreatedAt)))
	}

	left := components.ContentCard("Badges", badges.String(), halves[0])
	right := components.ContentCard("Friend Requests", reqs.String(), halves[1])
	if a.isCompactLayout() {
		b.WriteString(left + "\n" + right)
	} else {
		b.WriteString(components.CardRow([]string{left, right}))
	}
	return b.String()
}
