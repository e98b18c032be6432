package main

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"labyrinth-server/config"
	"labyrinth-server/maze"
	"labyrinth-server/pursuit"
	"labyrinth-server/round"
)

// Each maze cell is drawn two columns wide so cells look roughly square.
const cellCols = 2

var (
	wallStyle  = tcell.StyleDefault.Background(tcell.NewRGBColor(40, 60, 40))
	floorStyle = tcell.StyleDefault.Background(tcell.ColorBlack)
	hudStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

func colorStyle(c config.Color) tcell.Style {
	return floorStyle.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))).Bold(true)
}

// glyph is the letter an agent is drawn with.
func glyph(k pursuit.Kind) rune {
	return []rune(strings.ToUpper(k.String()))[0]
}

// screenCell maps a world point to a screen column and row inside the maze view.
func screenCell(g *maze.Grid, p maze.Point) (int, int) {
	c := g.WorldToCell(p.X, p.Z)
	return c.X * cellCols, c.Z + 1
}

func (g *Game) draw() {
	g.screen.Clear()
	grid := g.controller.Grid()

	for z := 0; z < grid.Height(); z++ {
		for x := 0; x < grid.Width(); x++ {
			style := floorStyle
			if grid.IsWallCell(x, z) {
				style = wallStyle
			}
			for i := 0; i < cellCols; i++ {
				g.screen.SetContent(x*cellCols+i, z+1, ' ', nil, style)
			}
		}
	}

	for _, a := range g.controller.Agents() {
		sx, sy := screenCell(grid, a.Pos)
		g.screen.SetContent(sx, sy, glyph(a.Kind), nil, colorStyle(config.AgentColors[a.Kind.String()]))
	}
	px, py := screenCell(grid, g.controller.Player())
	g.screen.SetContent(px, py, '@', nil, colorStyle(config.PlayerColor).Foreground(tcell.ColorWhite))

	g.drawText(0, 0, hudLine(g.controller.Snapshot()))
	g.drawText(0, grid.Height()+1, g.message)
	g.drawText(0, grid.Height()+2, "WASD/arrows move  SPACE start  F fire  P pause  R restart  Q quit")
	g.screen.Show()
}

func (g *Game) drawText(x, y int, text string) {
	for i, r := range []rune(text) {
		g.screen.SetContent(x+i, y, r, nil, hudStyle)
	}
}

func hudLine(s round.Snapshot) string {
	status := s.State.String()
	if s.Paused {
		status = "paused"
	}
	return fmt.Sprintf("Level %d/%d %s | %s | time %4.1fs | agents %d | elapsed %.1fs",
		s.Level+1, s.Levels, s.LevelName, status, s.Remaining, len(s.Agents), s.Elapsed)
}
