package games

import (
	"fmt"
	"math/rand/v2"

	"calm-stress-backend/internal/models"
)

const ZenName = "zen"

const (
	ToolStone = "stone"
	ToolRake  = "rake"

	PatternCircle = "circle"
	PatternLine   = "line"
)

// Bounds on what one garden may keep
const (
	MaxStones   = 200
	MaxPatterns = 500
)

var stoneColors = []string{"#6B7280", "#4B5563", "#374151", "#1F2937"}

type Stone struct {
	ID    int64   `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
}

type SandPattern struct {
	ID   int64   `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Kind string  `json:"kind"`
}

type ZenState struct {
	Tool     string        `json:"tool"`
	Stones   []Stone       `json:"stones"`
	Patterns []SandPattern `json:"patterns"`
}

// ZenGarden places stones and rakes sand patterns on a 0-100 grid.
type ZenGarden struct {
	rng      *rand.Rand
	tool     string
	stones   []Stone
	patterns []SandPattern
	nextID   int64
}

func NewZenGarden(rng *rand.Rand) *ZenGarden {
	g := &ZenGarden{rng: rng}
	g.Reset()
	return g
}

func (g *ZenGarden) Name() string { return ZenName }

func (g *ZenGarden) Reset() {
	g.tool = ToolStone
	g.stones = nil
	g.patterns = nil
}

func (g *ZenGarden) Tick() bool { return false }

func (g *ZenGarden) Apply(action models.GameAction) error {
	switch action.Type {
	case models.ActionTool:
		if action.Value != ToolStone && action.Value != ToolRake {
			return fmt.Errorf("%w: tool %q", ErrInvalidAction, action.Value)
		}
		g.tool = action.Value
	case models.ActionPlace:
		return g.place(clamp(action.X, 0, 100), clamp(action.Y, 0, 100))
	case models.ActionMove:
		g.moveStone(action.ID, action.DX, action.DY)
	case models.ActionClear:
		g.stones = nil
		g.patterns = nil
	case models.ActionReset:
		g.Reset()
	default:
		return unknownAction(ZenName, action.Type)
	}
	return nil
}

func (g *ZenGarden) place(x, y float64) error {
	if g.tool == ToolStone && len(g.stones) >= MaxStones {
		return fmt.Errorf("%w: garden holds at most %d stones", ErrInvalidAction, MaxStones)
	}
	if g.tool == ToolRake && len(g.patterns) >= MaxPatterns {
		return fmt.Errorf("%w: garden holds at most %d patterns", ErrInvalidAction, MaxPatterns)
	}

	g.nextID++
	if g.tool == ToolStone {
		g.stones = append(g.stones, Stone{
			ID:    g.nextID,
			X:     x,
			Y:     y,
			Size:  g.rng.Float64()*30 + 20,
			Color: stoneColors[g.rng.IntN(len(stoneColors))],
		})
		return nil
	}

	kind := PatternLine
	if g.rng.Float64() > 0.5 {
		kind = PatternCircle
	}
	g.patterns = append(g.patterns, SandPattern{ID: g.nextID, X: x, Y: y, Kind: kind})
	return nil
}

func (g *ZenGarden) moveStone(id int64, dx, dy float64) {
	for i := range g.stones {
		if g.stones[i].ID == id {
			g.stones[i].X = clamp(g.stones[i].X+dx, 0, 100)
			g.stones[i].Y = clamp(g.stones[i].Y+dy, 0, 100)
			return
		}
	}
}

func (g *ZenGarden) Snapshot() interface{} {
	stones := make([]Stone, len(g.stones))
	copy(stones, g.stones)
	patterns := make([]SandPattern, len(g.patterns))
	copy(patterns, g.patterns)
	return ZenState{Tool: g.tool, Stones: stones, Patterns: patterns}
}
