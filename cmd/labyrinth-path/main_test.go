package main

import (
	"bytes"
	"strings"
	"testing"

	"labyrinth-server/maze"
)

func room(t *testing.T) maze.Level {
	t.Helper()
	g, err := maze.NewGrid("room", [][]int{
		{1, 1, 1, 1, 1},
		{1, 0, 0, 0, 1},
		{1, 1, 1, 0, 1},
		{1, 1, 1, 1, 1},
	}, 2)
	if err != nil {
		t.Fatal(err)
	}
	return maze.Level{Name: "room", Grid: g}
}

func TestParseCell(t *testing.T) {
	p, err := parseCell(" 3, 7")
	if err != nil || p != (maze.PointI{X: 3, Z: 7}) {
		t.Errorf("Expected (3, 7), got %v %v", p, err)
	}
	for _, bad := range []string{"3", "a,1", "1,b", "1,2,3"} {
		if _, err := parseCell(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestRunPrintsPath(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, room(t), maze.PointI{X: 1, Z: 1}, maze.PointI{X: 3, Z: 2}, false, 0)
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, out.String())
	}
	text := out.String()
	if !strings.Contains(text, "# S + + # ") {
		t.Errorf("Expected trail along row 1, got:\n%s", text)
	}
	if !strings.Contains(text, "Total path length: 3 steps.") {
		t.Errorf("Expected 3 steps, got:\n%s", text)
	}
}

func TestRunReportsNoPath(t *testing.T) {
	var out bytes.Buffer
	if code := run(&out, room(t), maze.PointI{X: 1, Z: 1}, maze.PointI{X: 0, Z: 0}, false, 0); code != 1 {
		t.Errorf("Expected exit 1 for a wall goal, got %d", code)
	}
}
