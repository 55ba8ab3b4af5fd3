package session

import "testing"

func TestAllowedTransition_Table(t *testing.T) {
	t.Parallel()
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateDiscovered, StateSelected, true},
		{StateDiscovered, StateInstructionsLoaded, false},
		{StateSelected, StateInstructionsLoaded, true},
		{StateInstructionsLoaded, StateResourceNeeded, true},
		{StateInstructionsLoaded, StateScriptNeeded, true},
		{StateResourceNeeded, StateScriptNeeded, true},
		{StateResourceNeeded, StateVerifying, true},
		{StateScriptNeeded, StateResourceNeeded, true},
		{StateScriptNeeded, StateVerifying, true},
		{StateVerifying, StateDone, true},
		{StateVerifying, StateResourceNeeded, false},
	}
	for _, tc := range cases {
		if got := allowedTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("allowedTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestAllowedTransition_AnyNonTerminalMayFail(t *testing.T) {
	t.Parallel()
	for from := range edges {
		if !allowedTransition(from, StateFailed) {
			t.Errorf("expected %s -> FAILED to be allowed", from)
		}
	}
	if !allowedTransition(StateDiscovered, StateFailed) {
		t.Errorf("expected DISCOVERED -> FAILED to be allowed")
	}
}

func TestAllowedTransition_TerminalStatesAreFixed(t *testing.T) {
	t.Parallel()
	for _, terminalState := range []State{StateDone, StateFailed} {
		for _, to := range []State{StateDiscovered, StateSelected, StateFailed, StateDone} {
			if allowedTransition(terminalState, to) {
				t.Errorf("expected %s -> %s to be rejected from a terminal state", terminalState, to)
			}
		}
	}
}
