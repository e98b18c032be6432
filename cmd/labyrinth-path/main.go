package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"labyrinth-server/maze"
	"labyrinth-server/pathfinding"
)

// render draws the grid with the path walked up to step. S and E mark the ends; with walker
// set, X marks the cell reached at step.
func render(w io.Writer, g *maze.Grid, start, end maze.PointI, path []maze.PointI, step int, walker bool) {
	trail := make(map[maze.PointI]bool, step+1)
	for i := 0; i <= step && i < len(path); i++ {
		trail[path[i]] = true
	}
	current := start
	if step >= 0 && step < len(path) {
		current = path[step]
	}
	walker = walker && step >= 0

	var b strings.Builder
	for z := 0; z < g.Height(); z++ {
		for x := 0; x < g.Width(); x++ {
			p := maze.PointI{X: x, Z: z}
			switch {
			case walker && p == current:
				b.WriteString("X ")
			case p == start:
				b.WriteString("S ")
			case p == end:
				b.WriteString("E ")
			case g.IsWallCell(x, z):
				b.WriteString("# ")
			case trail[p]:
				b.WriteString("+ ")
			default:
				b.WriteString(". ")
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprint(w, b.String())
}

func parseCell(s string) (maze.PointI, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return maze.PointI{}, fmt.Errorf("cell %q must be col,row", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return maze.PointI{}, fmt.Errorf("cell %q: %w", s, err)
	}
	z, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return maze.PointI{}, fmt.Errorf("cell %q: %w", s, err)
	}
	return maze.PointI{X: x, Z: z}, nil
}

func main() {
	level := flag.Int("level", 0, "level index")
	mazeDir := flag.String("mazes", "", "directory of extra YAML maze files")
	animate := flag.Bool("animate", false, "animate the walk step by step")
	delay := flag.Duration("delay", 50*time.Millisecond, "animation frame delay")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: labyrinth-path [flags] <start col,row> <end col,row>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	registry, err := maze.BuildRegistry(*mazeDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load mazes: %v\n", err)
		os.Exit(1)
	}
	lvl, ok := registry.Level(*level)
	if !ok {
		fmt.Fprintf(os.Stderr, "Level %d out of range (0..%d)\n", *level, registry.Len()-1)
		os.Exit(1)
	}
	start, err := parseCell(flag.Arg(0))
	if err == nil {
		var end maze.PointI
		end, err = parseCell(flag.Arg(1))
		if err == nil {
			os.Exit(run(os.Stdout, lvl, start, end, *animate, *delay))
		}
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func run(w io.Writer, lvl maze.Level, start, end maze.PointI, animate bool, delay time.Duration) int {
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "  Maze: %s (%dx%d)\n", lvl.Name, lvl.Grid.Width(), lvl.Grid.Height())
	fmt.Fprintf(w, "  Start: (%d, %d)  End: (%d, %d)\n", start.X, start.Z, end.X, end.Z)
	fmt.Fprintln(w, "--------------------------------------------------")

	path, err := pathfinding.FindCellPath(lvl.Grid, start, end)
	if err != nil {
		fmt.Fprintf(w, "No path: %v\n", err)
		return 1
	}

	if animate {
		for i := range path {
			// ANSI escape codes to clear the screen and move the cursor home
			fmt.Fprint(w, "\033[2J\033[H")
			fmt.Fprintf(w, "Step %d of %d\n", i+1, len(path))
			render(w, lvl.Grid, start, end, path, i, true)
			time.Sleep(delay)
		}
	} else {
		render(w, lvl.Grid, start, end, path, len(path)-1, false)
		for _, p := range path {
			fmt.Fprintf(w, "(%d, %d) ", p.X, p.Z)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintln(w, "Total path length:", len(path), "steps.")
	return 0
}
