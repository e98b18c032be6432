package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"labyrinth-server/config"
	"labyrinth-server/leaderboard"
	"labyrinth-server/maze"
	"labyrinth-server/physics"
	"labyrinth-server/round"
)

// keyHold is how long a key press keeps the player walking; terminals report no key release.
const keyHold = 180 * time.Millisecond

type Game struct {
	screen     tcell.Screen
	controller *round.Controller
	world      *physics.World
	board      *leaderboard.Board
	audio      *cues
	name       string

	intentX, intentZ float64
	intentAt         time.Time
	message          string
}

func NewGame(registry *maze.Registry, board *leaderboard.Board, name string) (*Game, error) {
	controller, err := round.NewController(registry)
	if err != nil {
		return nil, err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	g := &Game{
		screen:     screen,
		controller: controller,
		board:      board,
		name:       name,
		message:    "Press SPACE to enter the labyrinth.",
	}
	g.resetWorld()

	audio, err := newCues()
	if err != nil {
		// Non-fatal, the game runs without sound
		log.Printf("Audio initialization failed: %v", err)
	}
	g.audio = audio
	return g, nil
}

func (g *Game) resetWorld() {
	g.world = physics.NewWorld(g.controller.Grid(), g.controller.Player())
	g.intentX, g.intentZ = 0, 0
}

// handleInput returns false when the player quits.
func (g *Game) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			g.walk(0, -1)
		case tcell.KeyDown:
			g.walk(0, 1)
		case tcell.KeyLeft:
			g.walk(-1, 0)
		case tcell.KeyRight:
			g.walk(1, 0)
		case tcell.KeyRune:
			return g.handleRune(ev.Rune())
		}
	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

func (g *Game) handleRune(r rune) bool {
	switch r {
	case 'q':
		return false
	case 'w', 'W':
		g.walk(0, -1)
	case 's', 'S':
		g.walk(0, 1)
	case 'a', 'A':
		g.walk(-1, 0)
	case 'd', 'D':
		g.walk(1, 0)
	case ' ':
		events, err := g.controller.Start()
		g.report(err)
		g.handleEvents(events)
	case 'p', 'P':
		g.report(g.controller.TogglePause())
	case 'r', 'R':
		g.controller.Restart()
		g.resetWorld()
		g.message = "Press SPACE to enter the labyrinth."
	case 'f', 'F':
		g.fire()
	}
	return true
}

func (g *Game) walk(dx, dz float64) {
	g.intentX, g.intentZ = dx, dz
	g.intentAt = time.Now()
}

func (g *Game) fire() {
	target, ok := g.controller.NearestVisibleAgent(config.FireRange)
	if !ok {
		if g.controller.State() == round.Playing {
			g.message = "No target in sight."
		}
		return
	}
	events, err := g.controller.Hit(target.ID, config.DefaultHitDamage)
	g.report(err)
	if err == nil && len(events) == 0 {
		g.message = fmt.Sprintf("Hit the %s.", target.Kind)
		g.audio.play(cueHit)
	}
	g.handleEvents(events)
}

func (g *Game) report(err error) {
	if err != nil {
		g.message = err.Error()
	}
}

func (g *Game) tick(dt float64) {
	if g.controller.State() != round.Playing || g.controller.Paused() {
		return
	}
	if time.Since(g.intentAt) > keyHold {
		g.intentX, g.intentZ = 0, 0
	}
	g.world.SetIntent(g.intentX, g.intentZ)
	g.world.Step(dt)
	g.controller.SetPlayer(g.world.Position())

	events, err := g.controller.Tick(dt)
	g.report(err)
	g.handleEvents(events)
}

func (g *Game) handleEvents(events []round.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case round.EventLevelStarted:
			g.resetWorld()
			g.message = fmt.Sprintf("Level %d: %s", ev.Level+1, ev.LevelName)
		case round.EventEscaped:
			g.audio.play(cueEscape)
		case round.EventCaught:
			g.message = fmt.Sprintf("Caught by a %s. Press R to restart.", ev.Agent.Kind)
			g.audio.play(cueCaught)
		case round.EventTimedOut:
			g.message = "Time is up. Press R to restart."
			g.audio.play(cueCaught)
		case round.EventEliminated:
			g.message = fmt.Sprintf("The %s falls.", ev.Agent.Kind)
			g.audio.play(cueHit)
		case round.EventWon:
			g.message = g.recordWin(ev.Time)
			g.audio.play(cueWin)
		}
	}
}

func (g *Game) recordWin(t float64) string {
	rank, err := g.board.Insert(leaderboard.Entry{Name: g.name, Time: t})
	switch {
	case err != nil:
		return fmt.Sprintf("Escaped in %.2fs (score not saved: %v)", t, err)
	case rank > 0:
		return fmt.Sprintf("Escaped in %.2fs. Rank %d on the leaderboard!", t, rank)
	default:
		return fmt.Sprintf("Escaped in %.2fs.", t)
	}
}

func (g *Game) run() {
	ticker := time.NewTicker(config.TICK_INTERVAL)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			eventChan <- g.screen.PollEvent()
		}
	}()

	last := time.Now()
	for {
		select {
		case ev := <-eventChan:
			if ev == nil || !g.handleInput(ev) {
				return
			}
		case now := <-ticker.C:
			g.tick(now.Sub(last).Seconds())
			last = now
			g.draw()
		}
	}
}

func (g *Game) cleanup() {
	g.audio.close()
	g.screen.Fini()
}

func main() {
	mazeDir := flag.String("mazes", "", "directory of extra YAML maze files")
	scores := flag.String("scores", "labyrinth_scores.json", "leaderboard file")
	name := flag.String("name", config.DefaultPlayerName, "name recorded with a winning run")
	flag.Parse()

	registry, err := maze.BuildRegistry(*mazeDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load mazes: %v\n", err)
		os.Exit(1)
	}
	board, err := leaderboard.Open(leaderboard.NewFileStore(*scores), config.LeaderboardSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load leaderboard: %v\n", err)
		os.Exit(1)
	}

	game, err := NewGame(registry, board, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer game.cleanup()

	game.run()
}
