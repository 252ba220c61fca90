package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/pixil98/go-pulse/internal/display"
	"github.com/pixil98/go-pulse/internal/node"
)

const (
	fieldWidth  = 60
	fieldHeight = 15
	gaugeWidth  = 30
)

// renderBoard draws the play area with each live target at its position. Positions are
// percentages, so the field is scaled to width by height cells.
func renderBoard(v node.View, width, height int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s | %s", display.Label(v.Role.String()), display.Label(v.Status.String()))
	if v.LocalID != "" {
		fmt.Fprintf(&b, " | id %s", v.LocalID)
	}
	b.WriteString("\n")

	switch {
	case v.State.Running:
		fmt.Fprintf(&b, "Health [%s] %5.1f   Score %d\n",
			display.Bar(v.State.Health, v.State.HealthLimit(), gaugeWidth), v.State.Health, v.State.Score)
	case v.State.Over:
		fmt.Fprintf(&b, "Game over. Final score: %d\n", v.FinalScore)
	default:
		b.WriteString("No game running.\n")
	}

	for _, row := range field(v, width, height) {
		b.WriteString(row)
		b.WriteString("\n")
	}

	if len(v.Peers) > 0 {
		fmt.Fprintf(&b, "Peers: %s\n", strings.Join(v.Peers, ", "))
	}
	if v.LastError != "" {
		fmt.Fprintf(&b, "! %s\n", v.LastError)
	}
	return b.String()
}

func field(v node.View, width, height int) []string {
	cells := make([][]rune, height)
	for y := range cells {
		cells[y] = []rune(strings.Repeat(" ", width))
	}

	for _, t := range v.State.Targets {
		label := []rune(fmt.Sprintf("%d", t.ID))
		x := cellIndex(t.X, width-len(label)+1)
		y := cellIndex(t.Y, height)
		copy(cells[y][x:], label)
	}

	border := "+" + strings.Repeat("-", width) + "+"
	rows := make([]string, 0, height+2)
	rows = append(rows, border)
	for _, r := range cells {
		rows = append(rows, "|"+string(r)+"|")
	}
	rows = append(rows, border)
	return rows
}

// cellIndex maps a percentage onto one of n cells.
func cellIndex(pct float64, n int) int {
	if n <= 1 {
		return 0
	}
	i := int(math.Floor(pct / 100 * float64(n)))
	return min(max(i, 0), n-1)
}
