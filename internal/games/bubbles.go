package games

import (
	"math/rand/v2"

	"calm-stress-backend/internal/models"
)

const BubblesName = "bubbles"

const (
	bubbleSpawnChance = 0.3
	bubblePoints      = 10
	bubbleStartY      = 100.0
	bubbleOffscreenY  = -10.0
	bubbleTicksPerSec = 10
)

var bubbleColors = []string{"blue", "teal", "purple", "pink", "indigo", "cyan"}

type Bubble struct {
	ID    int64   `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
	Speed float64 `json:"speed"`
}

type BubbleState struct {
	Playing bool     `json:"playing"`
	Score   int      `json:"score"`
	Elapsed int      `json:"elapsed"`
	Seconds int      `json:"seconds"`
	Bubbles []Bubble `json:"bubbles"`
}

// BubbleGame spawns bubbles at the bottom that rise until popped or gone.
type BubbleGame struct {
	rng     *rand.Rand
	playing bool
	score   int
	elapsed int
	bubbles []Bubble
	nextID  int64
}

func NewBubbleGame(rng *rand.Rand) *BubbleGame {
	return &BubbleGame{rng: rng}
}

func (g *BubbleGame) Name() string { return BubblesName }

func (g *BubbleGame) Reset() {
	g.playing = false
	g.score = 0
	g.elapsed = 0
	g.bubbles = nil
}

func (g *BubbleGame) Tick() bool {
	if !g.playing {
		return false
	}
	g.elapsed++

	kept := g.bubbles[:0]
	for _, b := range g.bubbles {
		b.Y -= b.Speed
		if b.Y > bubbleOffscreenY {
			kept = append(kept, b)
		}
	}
	g.bubbles = kept

	if g.rng.Float64() < bubbleSpawnChance {
		g.bubbles = append(g.bubbles, g.newBubble())
	}
	return true
}

func (g *BubbleGame) newBubble() Bubble {
	g.nextID++
	return Bubble{
		ID:    g.nextID,
		X:     g.rng.Float64()*80 + 10,
		Y:     bubbleStartY,
		Size:  g.rng.Float64()*40 + 30,
		Color: bubbleColors[g.rng.IntN(len(bubbleColors))],
		Speed: g.rng.Float64()*2 + 1,
	}
}

func (g *BubbleGame) Apply(action models.GameAction) error {
	switch action.Type {
	case models.ActionToggle:
		g.playing = !g.playing
	case models.ActionPop:
		g.pop(action.ID)
	case models.ActionReset:
		g.Reset()
	default:
		return unknownAction(BubblesName, action.Type)
	}
	return nil
}

func (g *BubbleGame) pop(id int64) {
	for i, b := range g.bubbles {
		if b.ID == id {
			g.bubbles = append(g.bubbles[:i], g.bubbles[i+1:]...)
			g.score += bubblePoints
			return
		}
	}
}

func (g *BubbleGame) Snapshot() interface{} {
	bubbles := make([]Bubble, len(g.bubbles))
	copy(bubbles, g.bubbles)
	return BubbleState{
		Playing: g.playing,
		Score:   g.score,
		Elapsed: g.elapsed,
		Seconds: g.elapsed / bubbleTicksPerSec,
		Bubbles: bubbles,
	}
}
