package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mrdg/segenv/envelope"
	"golang.org/x/term"
)

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
)

func colorize(text string, color int) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, text)
}

var stageColors = map[envelope.Stage]int{
	envelope.StageAttack:  colorRed,
	envelope.StageDecay:   colorYellow,
	envelope.StageSustain: colorGreen,
	envelope.StageRelease: colorBlue,
	envelope.StageIdle:    colorMagenta,
}

// envShape holds the settings of one envelope, as read from a device.
type envShape struct {
	attack, decay, sustain, release, overshoot float64
}

type point struct {
	value float64
	stage envelope.Stage
}

// traceShape runs an envelope through a full cycle and returns one point per
// column. The note is held for as long as attack and decay take, but at least
// a quarter of the total width.
func traceShape(shape envShape, columns int) ([]point, error) {
	if columns < 1 {
		return nil, fmt.Errorf("plot: need at least one column, got %d", columns)
	}
	hold := math.Max(shape.attack+shape.decay, 0.25*(shape.attack+shape.decay+shape.release))
	total := hold + shape.release
	if total <= 0 {
		total = 1
	}
	const samplesPerColumn = 64
	rate := float64(columns*samplesPerColumn) / total

	env, err := envelope.NewEnvelope(rate)
	if err != nil {
		return nil, err
	}
	env.SetAttackTime(shape.attack)
	env.SetDecayTime(shape.decay)
	env.SetSustainLevel(shape.sustain)
	env.SetReleaseTime(shape.release)
	env.SetOvershoot(shape.overshoot)
	env.Trigger()

	releaseAt := int(math.Round(hold * rate))
	points := make([]point, columns)
	for n := 0; n < columns*samplesPerColumn; n++ {
		if n == releaseAt {
			env.Release()
		}
		v := env.Process()
		if (n+1)%samplesPerColumn == 0 {
			points[n/samplesPerColumn] = point{value: v, stage: env.Stage()}
		}
	}
	return points, nil
}

// plotShape draws the points as rows of text, top row first.
func plotShape(w io.Writer, points []point, height int, color bool) {
	if height < 2 {
		height = 2
	}
	rows := make([][]string, height)
	for r := range rows {
		rows[r] = make([]string, len(points))
		for c := range rows[r] {
			rows[r][c] = " "
		}
	}
	for c, p := range points {
		level := math.Max(0, math.Min(1, p.value))
		r := height - 1 - int(math.Round(level*float64(height-1)))
		mark := "•"
		if color {
			mark = colorize(mark, stageColors[p.stage])
		}
		rows[r][c] = mark
	}
	for r, row := range rows {
		label := "    "
		switch r {
		case 0:
			label = "1.0 "
		case height - 1:
			label = "0.0 "
		}
		fmt.Fprintf(w, "%s│%s\n", label, strings.Join(row, ""))
	}
	fmt.Fprintf(w, "    └%s\n", strings.Repeat("─", len(points)))
	if color {
		var legend []string
		for _, s := range []envelope.Stage{envelope.StageAttack, envelope.StageDecay,
			envelope.StageSustain, envelope.StageRelease} {
			legend = append(legend, colorize(s.String(), stageColors[s]))
		}
		fmt.Fprintf(w, "     %s\n", strings.Join(legend, " "))
	}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// plotWidth returns the number of columns available for a plot on w.
func plotWidth(w io.Writer) int {
	const fallback = 72
	file, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width < 20 {
		return fallback
	}
	return min(width-8, 160)
}
