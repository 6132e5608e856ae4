// Package theme defines color themes for the fintrack dashboard.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds the color roles the dashboard renders with. The money roles
// (Income, Expense, Saved, Invested) are derived from the palette so every
// theme reads the same way: money in is green, money out is red.
type Theme struct {
	Name string

	Background    lipgloss.Color
	Surface       lipgloss.Color // cards and bars
	SurfaceHover  lipgloss.Color // active tab
	SurfaceBright lipgloss.Color // selected row
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color

	TextDim     lipgloss.Color
	TextMuted   lipgloss.Color
	TextPrimary lipgloss.Color

	Accent       lipgloss.Color
	AccentBright lipgloss.Color

	Green       lipgloss.Color
	GreenBright lipgloss.Color
	Orange      lipgloss.Color
	Red         lipgloss.Color
	Blue        lipgloss.Color
	Yellow      lipgloss.Color
	Cyan        lipgloss.Color

	Income   lipgloss.Color
	Expense  lipgloss.Color
	Saved    lipgloss.Color
	Invested lipgloss.Color
}

// palette is the raw set of colors a theme is built from.
type palette struct {
	bg, surface, hover, bright, border string
	dim, muted, text                   string
	accent, accentBright               string
	green, greenBright, orange, red    string
	blue, yellow, cyan                 string
}

func build(name string, p palette) Theme {
	c := func(s string) lipgloss.Color { return lipgloss.Color(s) }
	return Theme{
		Name:          name,
		Background:    c(p.bg),
		Surface:       c(p.surface),
		SurfaceHover:  c(p.hover),
		SurfaceBright: c(p.bright),
		Border:        c(p.border),
		BorderAccent:  c(p.accent),
		TextDim:       c(p.dim),
		TextMuted:     c(p.muted),
		TextPrimary:   c(p.text),
		Accent:        c(p.accent),
		AccentBright:  c(p.accentBright),
		Green:         c(p.green),
		GreenBright:   c(p.greenBright),
		Orange:        c(p.orange),
		Red:           c(p.red),
		Blue:          c(p.blue),
		Yellow:        c(p.yellow),
		Cyan:          c(p.cyan),
		Income:        c(p.green),
		Expense:       c(p.red),
		Saved:         c(p.blue),
		Invested:      c(p.greenBright),
	}
}

// FlexokiDark is the default: warm, paper-like dark.
var FlexokiDark = build("flexoki-dark", palette{
	bg: "#100F0F", surface: "#1C1B1A", hover: "#282726", bright: "#343331", border: "#403E3C",
	dim: "#575653", muted: "#878580", text: "#FFFCF0",
	accent: "#3AA99F", accentBright: "#5BC8BE",
	green: "#879A39", greenBright: "#A3B859", orange: "#DA702C", red: "#D14D41",
	blue: "#4385BE", yellow: "#D0A215", cyan: "#24837B",
})

// CatppuccinMocha is a soft pastel theme.
var CatppuccinMocha = build("catppuccin-mocha", palette{
	bg: "#1E1E2E", surface: "#313244", hover: "#45475A", bright: "#585B70", border: "#585B70",
	dim: "#6C7086", muted: "#A6ADC8", text: "#CDD6F4",
	accent: "#89B4FA", accentBright: "#B4D0FB",
	green: "#A6E3A1", greenBright: "#C6F6C1", orange: "#FAB387", red: "#F38BA8",
	blue: "#89B4FA", yellow: "#F9E2AF", cyan: "#94E2D5",
})

// TokyoNight is a cool blue theme.
var TokyoNight = build("tokyo-night", palette{
	bg: "#1A1B26", surface: "#24283B", hover: "#343A52", bright: "#414868", border: "#565F89",
	dim: "#565F89", muted: "#A9B1D6", text: "#C0CAF5",
	accent: "#7AA2F7", accentBright: "#A9C1FF",
	green: "#9ECE6A", greenBright: "#B9E87A", orange: "#FF9E64", red: "#F7768E",
	blue: "#7AA2F7", yellow: "#E0AF68", cyan: "#7DCFFF",
})

// Ledger is a light theme for bright terminals.
var Ledger = build("ledger-light", palette{
	bg: "#FAF8F2", surface: "#F0EDE4", hover: "#E4E0D4", bright: "#D8D3C4", border: "#C9C3B2",
	dim: "#A39E91", muted: "#6F6A5F", text: "#1F1D1A",
	accent: "#1F6F8B", accentBright: "#2A8DB0",
	green: "#3C7A2B", greenBright: "#4E9A38", orange: "#B8621B", red: "#B3261E",
	blue: "#2F5FA7", yellow: "#9A7B00", cyan: "#1B7F79",
})

// Terminal sticks to the 16 ANSI colors.
var Terminal = build("terminal", palette{
	bg: "0", surface: "0", hover: "8", bright: "8", border: "8",
	dim: "8", muted: "7", text: "15",
	accent: "6", accentBright: "14",
	green: "2", greenBright: "10", orange: "3", red: "1",
	blue: "4", yellow: "3", cyan: "6",
})

// All lists the selectable themes.
var All = []Theme{FlexokiDark, CatppuccinMocha, TokyoNight, Ledger, Terminal}

// Active is the theme every component renders with.
var Active = FlexokiDark

// ByName returns the named theme, or FlexokiDark when unknown.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// Names lists the theme names in display order.
func Names() []string {
	out := make([]string, len(All))
	for i, t := range All {
		out[i] = t.Name
	}
	return out
}

// SetActive switches the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}
