package visualizer

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	barScale    = 2.5
	heightScale = 0.8
	shades      = 8
	idleColor   = "#d1d5db"
)

var eighths = []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇"}

// Gradient runs from the top of a bar to the bottom of the panel.
type Gradient struct {
	styles [shades + 1]lipgloss.Style
}

func NewGradient(top, bottom string) Gradient {
	t, _ := colorful.Hex(top)
	b, _ := colorful.Hex(bottom)
	var g Gradient
	for i := range g.styles {
		c := t.BlendRgb(b, float64(i)/shades).Clamped()
		g.styles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex()))
	}
	return g
}

func (g Gradient) at(t float64) lipgloss.Style {
	i := int(math.Round(t * shades))
	return g.styles[max(0, min(shades, i))]
}

var (
	SimulatedGradient = NewGradient("#ef4444", "#b91c1c")
	PlaybackGradient  = NewGradient("#3b82f6", "#1d4ed8")

	idleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(idleColor))
)

// barColumns maps panel columns to bar indices; -1 marks a gap. Each bar
// is (width/bins)*2.5 columns wide less a one-column gutter, so only the
// low bins fit.
func barColumns(width, bins int) []int {
	cols := make([]int, width)
	for i := range cols {
		cols[i] = -1
	}
	if bins == 0 {
		return cols
	}
	bw := float64(width) / float64(bins) * barScale
	x := 0.0
	for i := 0; i < bins && int(math.Round(x)) < width; i++ {
		start := int(math.Round(x))
		end := max(start+1, int(math.Round(x+bw-1)))
		for c := start; c < end && c < width; c++ {
			cols[c] = i
		}
		x += bw
	}
	return cols
}

// RenderBars draws values (0..255) as bottom-anchored bars in a
// width x height block of cells.
func RenderBars(values []uint8, width, height int, g Gradient) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	cols := barColumns(width, len(values))
	heights := make([]float64, len(values))
	for i, v := range values {
		heights[i] = float64(v) / 255 * float64(height) * heightScale
	}

	var sb strings.Builder
	for row := 0; row < height; row++ {
		level := float64(height - 1 - row)
		for _, bar := range cols {
			if bar < 0 {
				sb.WriteByte(' ')
				continue
			}
			h := heights[bar]
			full := math.Floor(h)
			var glyph string
			switch {
			case level < full:
				glyph = "█"
			case level == full:
				if e := int(math.Round((h - full) * 8)); e > 0 && e < 8 {
					glyph = eighths[e-1]
				} else if e == 8 {
					glyph = "█"
				}
			}
			if glyph == "" {
				sb.WriteByte(' ')
				continue
			}
			t := max(0, min(1, 1-(level+0.5)/h))
			sb.WriteString(g.at(t).Render(glyph))
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// RenderIdle draws a flat line across the middle row.
func RenderIdle(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	blank := strings.Repeat(" ", width)
	rows := make([]string, height)
	for i := range rows {
		rows[i] = blank
	}
	rows[height/2] = idleStyle.Render(strings.Repeat("─", width))
	return strings.Join(rows, "\n")
}
