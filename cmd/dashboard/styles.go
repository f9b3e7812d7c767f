package main

import (
	"fmt"

	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// cell style indices used by the chart grid renderer
const (
	stylePlain = iota
	styleBullish
	styleBearish
	styleGreen
	styleRed
	styleBlue
	styleYellow
	styleGray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	tooltipStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	emptyChartStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Italic(true)

	bullishStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	bearishStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF87"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	blueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
	yellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	grayStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

// styleForColor maps a marker color to a cell style index.
func styleForColor(color types.MarkColor) int {
	switch color {
	case types.MarkColorGreen:
		return styleGreen
	case types.MarkColorRed:
		return styleRed
	case types.MarkColorBlue:
		return styleBlue
	case types.MarkColorYellow:
		return styleYellow
	case types.MarkColorGray:
		return styleGray
	default:
		return stylePlain
	}
}

// renderCell styles a single chart cell.
func renderCell(glyph string, style int) string {
	switch style {
	case styleBullish:
		return bullishStyle.Render(glyph)
	case styleBearish:
		return bearishStyle.Render(glyph)
	case styleGreen:
		return greenStyle.Render(glyph)
	case styleRed:
		return redStyle.Render(glyph)
	case styleBlue:
		return blueStyle.Render(glyph)
	case styleYellow:
		return yellowStyle.Render(glyph)
	case styleGray:
		return grayStyle.Render(glyph)
	default:
		return glyph
	}
}

// formatPnL renders a profit value with a direction arrow and color.
func formatPnL(value decimal.Decimal, unit string) string {
	text := fmt.Sprintf("%s%s", value.StringFixed(2), unit)

	switch {
	case value.IsPositive():
		return greenStyle.Render("▲ " + text)
	case value.IsNegative():
		return redStyle.Render("▼ " + text)
	default:
		return grayStyle.Render("- " + text)
	}
}
