package taskstate

import "testing"

func TestCanTransition_LegalMoves(t *testing.T) {
	legal := [][2]Status{
		{StatusPending, StatusRunning},
		{StatusRunning, StatusWaiting},
		{StatusWaiting, StatusRunning},
		{StatusRunning, StatusPaused},
		{StatusPaused, StatusRunning},
		{StatusRunning, StatusFinished},
		{StatusPaused, StatusFinished},
		{StatusRunning, StatusFailed},
		{StatusWaiting, StatusFailed},
		{StatusPending, StatusFinished},
		{StatusPending, StatusFailed},
	}
	for _, pair := range legal {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be legal", pair[0], pair[1])
		}
	}
}

func TestCanTransition_IllegalMoves(t *testing.T) {
	illegal := [][2]Status{
		{StatusPending, StatusPaused},
		{StatusPending, StatusWaiting},
		{StatusFinished, StatusRunning},
		{StatusFailed, StatusRunning},
		{StatusPaused, StatusFailed},
		{StatusWaiting, StatusPaused},
	}
	for _, pair := range illegal {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be rejected", pair[0], pair[1])
		}
	}
}

func TestCanTransition_SameStateIsIdempotent(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusRunning, StatusPaused, StatusWaiting, StatusFinished, StatusFailed} {
		if !CanTransition(s, s) {
			t.Fatalf("same-state transition for %s should be allowed", s)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !StatusFinished.Terminal() || !StatusFailed.Terminal() {
		t.Fatalf("finished and failed must be terminal")
	}
	for _, s := range []Status{StatusPending, StatusRunning, StatusPaused, StatusWaiting, StatusCompleted} {
		if s.Terminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}
