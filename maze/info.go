package maze

// LevelInfo is the wire description of a level sent to clients.
type LevelInfo struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	CellSize    float64  `json:"cell_size"`
	Roster      []string `json:"roster"`
	PlayerStart Point    `json:"player_start"`
	Rows        [][]int  `json:"rows"`
}

// Info describes level i, or reports false when i is out of range.
func (r *Registry) Info(i int) (LevelInfo, bool) {
	lvl, ok := r.Level(i)
	if !ok {
		return LevelInfo{}, false
	}
	return LevelInfo{
		Index:       i,
		Name:        lvl.Name,
		Width:       lvl.Grid.Width(),
		Height:      lvl.Grid.Height(),
		CellSize:    lvl.Grid.CellSize(),
		Roster:      lvl.Roster,
		PlayerStart: lvl.PlayerStart,
		Rows:        lvl.Grid.Rows(),
	}, true
}

// Infos describes every level in order.
func (r *Registry) Infos() []LevelInfo {
	out := make([]LevelInfo, 0, r.Len())
	for i := 0; i < r.Len(); i++ {
		info, _ := r.Info(i)
		out = append(out, info)
	}
	return out
}
