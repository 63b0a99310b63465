package games

import (
	"math"
	"math/rand/v2"

	"calm-stress-backend/internal/models"
)

const FocusName = "focus"

const (
	focusDuration     = 30 // seconds
	focusStartSpeed   = 2.0
	focusMaxSpeed     = 5.0
	focusSpeedStep    = 0.1
	focusPointsPerHit = 10
	focusFollowRadius = 8.0
	focusTicksPerSec  = 10
)

type FocusState struct {
	Playing   bool    `json:"playing"`
	Score     int     `json:"score"`
	TimeLeft  int     `json:"time_left"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Following bool    `json:"following"`
	Speed     float64 `json:"speed"`
}

// FocusGame keeps the pointer on a wandering circle. Score grows every tick
// the pointer stays close, and the circle speeds up as it does.
type FocusGame struct {
	rng   *rand.Rand
	state FocusState
	ticks int
}

func NewFocusGame(rng *rand.Rand) *FocusGame {
	g := &FocusGame{rng: rng}
	g.Reset()
	return g
}

func (g *FocusGame) Name() string { return FocusName }

func (g *FocusGame) Reset() {
	g.state = FocusState{
		TimeLeft: focusDuration,
		X:        50,
		Y:        50,
		Speed:    focusStartSpeed,
	}
	g.ticks = 0
}

func (g *FocusGame) Tick() bool {
	if !g.state.Playing {
		return false
	}
	g.ticks++
	changed := false

	if g.state.Following {
		g.state.Score += focusPointsPerHit
		g.state.Speed = math.Min(g.state.Speed+focusSpeedStep, focusMaxSpeed)
		changed = true
	}

	if g.ticks%focusTicksPerSec == 0 {
		g.state.TimeLeft--
		if g.state.TimeLeft <= 0 {
			g.state.TimeLeft = 0
			g.state.Playing = false
		} else {
			g.moveCircle()
		}
		changed = true
	}

	return changed
}

// moveCircle random-walks the circle, keeping it inside the play area.
func (g *FocusGame) moveCircle() {
	g.state.X = clamp(g.state.X+(g.rng.Float64()-0.5)*g.state.Speed*2, 10, 90)
	g.state.Y = clamp(g.state.Y+(g.rng.Float64()-0.5)*g.state.Speed*2, 10, 90)
}

func (g *FocusGame) Apply(action models.GameAction) error {
	switch action.Type {
	case models.ActionToggle:
		if g.state.TimeLeft == 0 {
			return ErrGameOver
		}
		g.state.Playing = !g.state.Playing
	case models.ActionPointer:
		if !g.state.Playing {
			return nil
		}
		g.state.Following = math.Hypot(action.X-g.state.X, action.Y-g.state.Y) < focusFollowRadius
	case models.ActionReset:
		g.Reset()
	default:
		return unknownAction(FocusName, action.Type)
	}
	return nil
}

func (g *FocusGame) Snapshot() interface{} {
	return g.state
}
