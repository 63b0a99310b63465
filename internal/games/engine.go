// Package games holds the state machines behind the wellness mini-games.
// Engines are not safe for concurrent use; a session owns one engine and
// drives it from a single goroutine.
package games

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"calm-stress-backend/internal/models"
)

var (
	ErrUnknownGame   = errors.New("unknown game")
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidAction = errors.New("invalid action")
	ErrGameOver      = errors.New("game is over, reset to play again")
)

type Engine interface {
	Name() string
	// Tick advances the game by one step and reports whether state changed.
	Tick() bool
	Apply(action models.GameAction) error
	Reset()
	Snapshot() interface{}
}

var factories = map[string]func(rng *rand.Rand) Engine{
	FocusName:   func(rng *rand.Rand) Engine { return NewFocusGame(rng) },
	BubblesName: func(rng *rand.Rand) Engine { return NewBubbleGame(rng) },
	CanvasName:  func(rng *rand.Rand) Engine { return NewCanvasGame() },
	ZenName:     func(rng *rand.Rand) Engine { return NewZenGarden(rng) },
}

// New returns a fresh engine for the named game. A nil rng gets a randomly
// seeded source.
func New(name string, rng *rand.Rand) (Engine, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, name)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return factory(rng), nil
}

// Names lists the available games in a stable order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func unknownAction(game, action string) error {
	return fmt.Errorf("%w: %s does not support %q", ErrUnknownAction, game, action)
}
