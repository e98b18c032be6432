package maze

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"labyrinth-server/config"
)

// LevelSpec is the on-disk YAML form of a level.
type LevelSpec struct {
	Name        string    `yaml:"name"`
	CellSize    float64   `yaml:"cell_size"`
	Roster      []string  `yaml:"roster"`
	PlayerStart PointSpec `yaml:"player_start"`
	Rows        [][]int   `yaml:"rows"`
}

type PointSpec struct {
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`
}

// ParseLevel decodes a YAML level document.
func ParseLevel(data []byte) (Level, error) {
	var spec LevelSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Level{}, fmt.Errorf("maze: unmarshal level: %w", err)
	}
	if spec.CellSize == 0 {
		spec.CellSize = config.MAZE_CELL_WORLD_SIZE
	}
	grid, err := NewGrid(spec.Name, spec.Rows, spec.CellSize)
	if err != nil {
		return Level{}, err
	}
	return Level{
		Name:        spec.Name,
		Grid:        grid,
		Roster:      spec.Roster,
		PlayerStart: Point{X: spec.PlayerStart.X, Z: spec.PlayerStart.Z},
	}, nil
}

// LoadFile reads a single YAML level file. A level without a name is named after its file.
func LoadFile(filename string) (Level, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Level{}, fmt.Errorf("maze: load %s: %w", filename, err)
	}
	lvl, err := ParseLevel(data)
	if err != nil {
		return Level{}, fmt.Errorf("maze: %s: %w", filename, err)
	}
	if lvl.Name == "" {
		lvl.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return lvl, nil
}

// LoadDir reads every .yaml/.yml file in dir, ordered by file name.
func LoadDir(dir string) ([]Level, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("maze: read dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isLevelFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	levels := make([]Level, 0, len(names))
	for _, name := range names {
		lvl, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

// BuildRegistry returns the shipped levels followed by any levels found in dir.
func BuildRegistry(dir string) (*Registry, error) {
	levels := DefaultRegistry().Levels()
	if dir == "" {
		return NewRegistry(levels...)
	}
	extra, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(append(levels, extra...)...)
}

func isLevelFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
