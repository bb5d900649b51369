package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	eyeCharsW = 44
	eyeCharsH = 15
)

type eyeMood int

const (
	moodIdle eyeMood = iota
	moodListening
	moodSpeaking
)

// Palette index 0 is transparent; 14 and 15 are glass highlights.
var eyePalettes = map[eyeMood][]string{
	moodIdle:      {"", "231", "224", "217", "210", "160", "124", "88", "52", "236", "236", "236", "236", "236", "255", "249"},
	moodListening: {"", "226", "220", "214", "208", "196", "160", "124", "88", "52", "236", "236", "236", "236", "255", "249"},
	moodSpeaking:  {"", "195", "159", "123", "87", "45", "39", "33", "27", "17", "236", "236", "236", "236", "255", "249"},
}

type eyeStyles struct {
	fg [16]lipgloss.Style
	bg [16][16]lipgloss.Style
}

// Built once; rendering runs every animation frame.
var eyeStyleSets = map[eyeMood]*eyeStyles{}

func init() {
	for mood, colors := range eyePalettes {
		s := &eyeStyles{}
		for i, fg := range colors {
			if fg == "" {
				continue
			}
			s.fg[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
			for j, bg := range colors {
				if bg != "" {
					s.bg[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
				}
			}
		}
		eyeStyleSets[mood] = s
	}
}

type eyeRing struct {
	radius     float64
	breatheAmt float64
	color      int
}

var eyeRings = []eyeRing{
	{0.6, 0.10, 1},
	{1.3, 0.12, 2},
	{2.0, 0.15, 3},
	{2.8, 0.35, 4},
	{3.5, 0.40, 5},
	{4.2, 0.38, 6},
	{5.0, 0.30, 7},
	{5.8, 0.15, 8},
	{6.5, 0.03, 9},
	{7.2, 0.0, 10},
	{8.0, 0.0, 11},
	{10.0, 0.0, 12},
	{12.0, 0.0, 13},
}

type eyeSpot struct {
	ox, oy, radius float64
	color          int
}

var eyeSpots = []eyeSpot{
	{-9 * 0.707, -9 * 0.707, 0.7, 14},
	{-7.2 * 0.707, -7.2 * 0.707, 0.4, 15},
	{0, -10, 0.8, 14},
	{0, -8.2, 0.6, 15},
	{9 * 0.707, -9 * 0.707, 0.7, 14},
	{7.2 * 0.707, -7.2 * 0.707, 0.4, 15},
	{0, -2, 0.6, 14},
}

// breathing returns how far the rings swell this frame. While listening
// the mic level drives it; while speaking it pulses faster.
func breathing(frame int, level float64, mood eyeMood) float64 {
	f := float64(frame)
	switch mood {
	case moodListening:
		return math.Sin(f*0.10)*0.03 + level*10 - 0.05
	case moodSpeaking:
		return math.Sin(f*0.35)*0.08 - 0.02
	default:
		return math.Sin(f*0.08)*0.02 - 0.05
	}
}

func renderEye(frame int, level float64, mood eyeMood) string {
	const pixW, pixH = eyeCharsW, eyeCharsH * 2
	cx, cy := float64(pixW)/2, float64(pixH)/2
	swell := breathing(frame, level, mood)

	pixels := make([][]int, pixH)
	for y := range pixels {
		pixels[y] = make([]int, pixW)
		for x := range pixels[y] {
			dx, dy := float64(x)-cx, float64(y)-cy
			dist := math.Sqrt(dx*dx + dy*dy)
			for _, r := range eyeRings {
				if dist < min(r.radius+swell*r.breatheAmt*20, 10) {
					pixels[y][x] = r.color
					break
				}
			}
			for _, s := range eyeSpots {
				sx, sy := dx-s.ox, dy-s.oy
				rLen := math.Sqrt(s.ox*s.ox + s.oy*s.oy)
				if rLen < 0.001 {
					rLen = 1
				}
				tx, ty := -s.oy/rLen, s.ox/rLen
				along := sx*tx + sy*ty
				across := sx*(-ty) + sy*tx
				if along*along/9+across*across < s.radius*s.radius {
					pixels[y][x] = s.color
				}
			}
		}
	}

	st := eyeStyleSets[mood]
	var b strings.Builder
	for row := 0; row < eyeCharsH; row++ {
		for col := 0; col < eyeCharsW; col++ {
			top, bot := pixels[row*2][col], pixels[row*2+1][col]
			switch {
			case top == 0 && bot == 0:
				b.WriteString(" ")
			case top == bot:
				b.WriteString(st.fg[top].Render("█"))
			case bot == 0:
				b.WriteString(st.fg[top].Render("▀"))
			case top == 0:
				b.WriteString(st.fg[bot].Render("▄"))
			default:
				b.WriteString(st.bg[top][bot].Render("▀"))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
