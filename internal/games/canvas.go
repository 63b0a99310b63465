package games

import (
	"fmt"
	"slices"
	"strings"

	"calm-stress-backend/internal/models"
)

const CanvasName = "canvas"

const (
	minBrushSize     = 2
	maxBrushSize     = 30
	defaultBrushSize = 10

	// Bounds on what one session may keep
	MaxStrokes         = 500
	MaxPointsPerStroke = 2000
)

// Palette is the fixed set of colors the canvas accepts.
var Palette = []string{
	"#3B82F6", // Blue
	"#10B981", // Emerald
	"#8B5CF6", // Violet
	"#F59E0B", // Amber
	"#EF4444", // Red
	"#EC4899", // Pink
	"#6366F1", // Indigo
	"#14B8A6", // Teal
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stroke struct {
	Color  string  `json:"color"`
	Size   int     `json:"size"`
	Eraser bool    `json:"eraser"`
	Points []Point `json:"points"`
}

type CanvasState struct {
	Color     string   `json:"color"`
	BrushSize int      `json:"brush_size"`
	Eraser    bool     `json:"eraser"`
	Drawing   bool     `json:"drawing"`
	Palette   []string `json:"palette"`
	Strokes   []Stroke `json:"strokes"`
}

// CanvasGame records free-hand strokes. It has no timer.
type CanvasGame struct {
	color   string
	brush   int
	eraser  bool
	drawing bool
	strokes []Stroke
}

func NewCanvasGame() *CanvasGame {
	g := &CanvasGame{}
	g.Reset()
	return g
}

func (g *CanvasGame) Name() string { return CanvasName }

func (g *CanvasGame) Reset() {
	g.color = Palette[0]
	g.brush = defaultBrushSize
	g.eraser = false
	g.drawing = false
	g.strokes = nil
}

func (g *CanvasGame) Tick() bool { return false }

func (g *CanvasGame) Apply(action models.GameAction) error {
	switch action.Type {
	case models.ActionColor:
		color := strings.ToUpper(action.Value)
		if !slices.Contains(Palette, color) {
			return fmt.Errorf("%w: color %q is not in the palette", ErrInvalidAction, action.Value)
		}
		g.color = color
		g.eraser = false
	case models.ActionBrush:
		g.brush = int(clamp(action.Size, minBrushSize, maxBrushSize))
	case models.ActionEraser:
		g.eraser = action.Enabled
	case models.ActionStrokeStart:
		if len(g.strokes) >= MaxStrokes {
			g.drawing = false
			return fmt.Errorf("%w: canvas holds at most %d strokes, clear it to keep drawing", ErrInvalidAction, MaxStrokes)
		}
		g.drawing = true
		g.strokes = append(g.strokes, Stroke{
			Color:  g.color,
			Size:   g.brush,
			Eraser: g.eraser,
			Points: []Point{{X: action.X, Y: action.Y}},
		})
	case models.ActionStrokeMove:
		if !g.drawing {
			return nil
		}
		last := &g.strokes[len(g.strokes)-1]
		if len(last.Points) >= MaxPointsPerStroke {
			return fmt.Errorf("%w: a stroke holds at most %d points", ErrInvalidAction, MaxPointsPerStroke)
		}
		last.Points = append(last.Points, Point{X: action.X, Y: action.Y})
	case models.ActionStrokeEnd:
		g.drawing = false
	case models.ActionClear:
		g.strokes = nil
		g.drawing = false
	case models.ActionReset:
		g.Reset()
	default:
		return unknownAction(CanvasName, action.Type)
	}
	return nil
}

func (g *CanvasGame) Snapshot() interface{} {
	strokes := make([]Stroke, len(g.strokes))
	for i, s := range g.strokes {
		strokes[i] = s
		strokes[i].Points = slices.Clone(s.Points)
	}
	return CanvasState{
		Color:     g.color,
		BrushSize: g.brush,
		Eraser:    g.eraser,
		Drawing:   g.drawing,
		Palette:   slices.Clone(Palette),
		Strokes:   strokes,
	}
}
