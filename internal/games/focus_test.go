package games

import (
	"errors"
	"testing"

	"calm-stress-backend/internal/models"
)

func focusState(g *FocusGame) FocusState {
	return g.Snapshot().(FocusState)
}

func TestFocusGame_InitialState(t *testing.T) {
	s := focusState(NewFocusGame(newTestRand()))

	if s.Playing || s.Score != 0 || s.TimeLeft != 30 || s.X != 50 || s.Y != 50 || s.Speed != 2 {
		t.Fatalf("unexpected initial state %+v", s)
	}
}

func TestFocusGame_PausedTickDoesNothing(t *testing.T) {
	g := NewFocusGame(newTestRand())
	if g.Tick() {
		t.Fatal("expected no change while paused")
	}
}

func TestFocusGame_FollowingScores(t *testing.T) {
	g := NewFocusGame(newTestRand())
	g.Apply(models.GameAction{Type: models.ActionToggle})

	g.Apply(models.GameAction{Type: models.ActionPointer, X: 52, Y: 53})
	if !focusState(g).Following {
		t.Fatal("expected pointer within radius to follow")
	}

	for i := 0; i < 5; i++ {
		if !g.Tick() {
			t.Fatalf("tick %d: expected change while following", i)
		}
	}

	s := focusState(g)
	if s.Score != 50 {
		t.Errorf("expected score 50, got %d", s.Score)
	}
	if s.Speed < 2.49 || s.Speed > 2.51 {
		t.Errorf("expected speed around 2.5, got %f", s.Speed)
	}

	g.Apply(models.GameAction{Type: models.ActionPointer, X: 90, Y: 90})
	if focusState(g).Following {
		t.Fatal("expected pointer far away to stop following")
	}
}

func TestFocusGame_PointerIgnoredWhilePaused(t *testing.T) {
	g := NewFocusGame(newTestRand())
	g.Apply(models.GameAction{Type: models.ActionPointer, X: 50, Y: 50})
	if focusState(g).Following {
		t.Fatal("expected pointer to be ignored while paused")
	}
}

func TestFocusGame_SpeedCapped(t *testing.T) {
	g := NewFocusGame(newTestRand())
	g.Apply(models.GameAction{Type: models.ActionToggle})
	g.state.Following = true

	for i := 0; i < 100; i++ {
		g.Tick()
	}

	if s := focusState(g); s.Speed != focusMaxSpeed {
		t.Fatalf("expected speed capped at %v, got %v", focusMaxSpeed, s.Speed)
	}
}

func TestFocusGame_CircleStaysInBounds(t *testing.T) {
	g := NewFocusGame(newTestRand())
	g.Apply(models.GameAction{Type: models.ActionToggle})
	g.state.Speed = focusMaxSpeed

	for i := 0; i < 29*focusTicksPerSec; i++ {
		g.Tick()
		s := focusState(g)
		if s.X < 10 || s.X > 90 || s.Y < 10 || s.Y > 90 {
			t.Fatalf("circle left the play area at tick %d: %+v", i, s)
		}
	}
}

func TestFocusGame_TimerEndsGame(t *testing.T) {
	g := NewFocusGame(newTestRand())
	g.Apply(models.GameAction{Type: models.ActionToggle})

	for i := 0; i < focusDuration*focusTicksPerSec; i++ {
		g.Tick()
	}

	s := focusState(g)
	if s.Playing || s.TimeLeft != 0 {
		t.Fatalf("expected game over, got %+v", s)
	}
	if err := g.Apply(models.GameAction{Type: models.ActionToggle}); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}

	g.Apply(models.GameAction{Type: models.ActionReset})
	if s := focusState(g); s.TimeLeft != focusDuration || s.Score != 0 {
		t.Fatalf("expected reset state, got %+v", s)
	}
}
