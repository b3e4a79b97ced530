package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mrdg/segenv/envelope"
)

func TestTraceShape(t *testing.T) {
	shape := envShape{attack: 0.01, decay: 0.05, sustain: 0.3, release: 0.2, overshoot: envelope.DefaultOvershoot}
	points, err := traceShape(shape, 100)
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 100, len(points); want != got {
		t.Fatalf("want %v points, got %v", want, got)
	}
	if want, got := envelope.StageAttack, points[0].stage; want != got {
		t.Errorf("first column: want %v, got %v", want, got)
	}
	stages := map[envelope.Stage]bool{}
	for _, p := range points {
		stages[p.stage] = true
		if p.value < -0.01 || p.value > 1.01 {
			t.Fatalf("value out of range: %v", p.value)
		}
	}
	for _, s := range []envelope.Stage{envelope.StageDecay, envelope.StageSustain, envelope.StageRelease} {
		if !stages[s] {
			t.Errorf("no column in %v", s)
		}
	}
	if last := points[len(points)-1]; last.value > 0.01 {
		t.Errorf("want release to end near 0, got %v", last.value)
	}
	if _, err := traceShape(shape, 0); err == nil {
		t.Error("expected error for zero columns")
	}
}

func TestPlotShape(t *testing.T) {
	points := []point{
		{value: 0, stage: envelope.StageAttack},
		{value: 1, stage: envelope.StageAttack},
		{value: 0.5, stage: envelope.StageDecay},
	}
	var buf bytes.Buffer
	plotShape(&buf, points, 3, false)
	want := "1.0 │ • \n" +
		"    │  •\n" +
		"0.0 │•  \n" +
		"    └───\n"
	if got := buf.String(); want != got {
		t.Errorf("want\n%s\ngot\n%s", want, got)
	}

	buf.Reset()
	plotShape(&buf, points, 3, true)
	if !strings.Contains(buf.String(), colorize("•", colorRed)) {
		t.Errorf("attack not coloured: %q", buf.String())
	}
}

func TestPlotCommand(t *testing.T) {
	e, out := newTestEnv(t)
	if _, err := e.eval("plot synth fenv"); err != nil {
		t.Fatal(err)
	}
	if want, got := 13, strings.Count(out.String(), "\n"); want != got {
		t.Errorf("want %v lines, got %v:\n%s", want, got, out.String())
	}
	if shouldColorize(out) {
		t.Error("buffer should not be coloured")
	}
}
