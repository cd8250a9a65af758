package app

import (
	"strings"
	"testing"
)

func revealTx(t *testing.T, player string, score uint64, saltSeed string) []byte {
	t.Helper()
	salt := testSalt(saltSeed)
	return txBytes(t, "contest/reveal", map[string]any{
		"player": player,
		"score":  score,
		"salt":   salt[:],
	})
}

func TestReveal_MarksEntryAndRanks(t *testing.T) {
	const now = int64(1000)
	a := newTestApp(t)
	initContest(t, a, now, 5, 3600)
	mintTokens(t, a, now, "alice", 5000)
	mustOk(t, a.deliverTx(enterTx(t, "alice", 1000, 42, "salt-a"), now+1))

	res := mustOk(t, a.deliverTx(revealTx(t, "alice", 42, "salt-a"), now+2))
	ev := findEvent(res.Events, "Revealed")
	if ev == nil {
		t.Fatalf("expected Revealed event")
	}
	if got := parseU64(t, attr(ev, "score")); got != 42 {
		t.Fatalf("score attr: want 42, got %d", got)
	}

	e := a.st.Entries["alice"]
	if !e.Revealed || e.Score != 42 || e.RevealTime != now+2 {
		t.Fatalf("unexpected entry after reveal: %+v", e)
	}

	top := a.st.Board.Slots[0]
	if top.Player != "alice" || top.Score != 42 || top.Wager != 950 {
		t.Fatalf("unexpected top slot: %+v", top)
	}
}

func TestReveal_WrongSaltFailsThenCorrectSucceeds(t *testing.T) {
	const now = int64(1000)
	a := newTestApp(t)
	initContest(t, a, now, 0, 3600)
	mintTokens(t, a, now, "alice", 5000)
	mustOk(t, a.deliverTx(enterTx(t, "alice", 100, 42, "salt-good"), now+1))

	res := mustFail(t, a.deliverTx(revealTx(t, "alice", 42, "salt-evil"), now+2))
	if !strings.Contains(res.Log, "invalid score hash") {
		t.Fatalf("expected invalid score hash, got %q", res.Log)
	}
	if e := a.st.Entries["alice"]; e.Revealed || e.Score != 0 {
		t.Fatalf("failed reveal must leave entry unrevealed: %+v", e)
	}
	if a.st.Board.Slots[0].Player != "" {
		t.Fatalf("failed reveal must not touch the board")
	}

	// Same player retries with the correct salt.
	mustOk(t, a.deliverTx(revealTx(t, "alice", 42, "salt-good"), now+3))
	if e := a.st.Entries["alice"]; !e.Revealed || e.Score != 42 {
		t.Fatalf("retry reveal failed: %+v", e)
	}
}

func TestReveal_WrongScoreFails(t *testing.T) {
	const now = int64(1000)
	a := newTestApp(t)
	initContest(t, a, now, 0, 3600)
	mintTokens(t, a, now, "alice", 5000)
	mustOk(t, a.deliverTx(enterTx(t, "alice", 100, 42, "salt-a"), now+1))

	// Correct salt, inflated score.
	mustFail(t, a.deliverTx(revealTx(t, "alice", 9000, "salt-a"), now+2))
	if e := a.st.Entries["alice"]; e.Revealed {
		t.Fatalf("forged score must not reveal entry")
	}
}

func TestReveal_TwiceFails(t *testing.T) {
	const now = int64(1000)
	a := newTestApp(t)
	initContest(t, a, now, 0, 3600)
	mintTokens(t, a, now, "alice", 5000)
	mustOk(t, a.deliverTx(enterTx(t, "alice", 100, 42, "salt-a"), now+1))
	mustOk(t, a.deliverTx(revealTx(t, "alice", 42, "salt-a"), now+2))

	res := mustFail(t, a.deliverTx(revealTx(t, "alice", 42, "salt-a"), now+3))
	if !strings.Contains(res.Log, "already completed") {
		t.Fatalf("expected run already completed, got %q", res.Log)
	}
}

func TestReveal_WithoutEntryFails(t *testing.T) {
	const now = int64(1000)
	a := newTestApp(t)
	initContest(t, a, now, 0, 3600)

	mustFail(t, a.deliverTx(revealTx(t, "ghost", 1, "salt-a"), now+1))
}

func TestReveal_OrderIndependentLeaderboard(t *testing.T) {
	// Scores 10, 30, 20 revealed in that order end up [30, 20, 10].
	const now = int64(1000)
	a := newTestApp(t)
	initContest(t, a, now, 0, 3600)

	players := []struct {
		name  string
		score uint64
	}{
		{"alice", 10},
		{"bob", 30},
		{"carol", 20},
	}
	for i, p := range players {
		mintTokens(t, a, now, p.name, 1000)
		mustOk(t, a.deliverTx(enterTx(t, p.name, 100, p.score, "salt-"+p.name), now+int64(i)))
	}
	for i, p := range players {
		mustOk(t, a.deliverTx(revealTx(t, p.name, p.score, "salt-"+p.name), now+10+int64(i)))
	}

	want := []struct {
		player string
		score  uint64
	}{
		{"bob", 30},
		{"carol", 20},
		{"alice", 10},
	}
	for i, w := range want {
		got := a.st.Board.Slots[i]
		if got.Player != w.player || got.Score != w.score {
			t.Fatalf("slot %d: want %s/%d, got %s/%d", i, w.player, w.score, got.Player, got.Score)
		}
	}
}

func TestReveal_ZeroScoreNeverRanks(t *testing.T) {
	const now = int64(1000)
	a := newTestApp(t)
	initContest(t, a, now, 0, 3600)
	mintTokens(t, a, now, "alice", 1000)
	mustOk(t, a.deliverTx(enterTx(t, "alice", 100, 0, "salt-a"), now+1))

	res := mustOk(t, a.deliverTx(revealTx(t, "alice", 0, "salt-a"), now+2))
	if got := attr(findEvent(res.Events, "Revealed"), "ranked"); got != "false" {
		t.Fatalf("zero score must not rank, ranked=%q", got)
	}
	if a.st.Board.Slots[0].Player != "" {
		t.Fatalf("zero score occupied a slot")
	}
	if e := a.st.Entries["alice"]; !e.Revealed {
		t.Fatalf("zero-score reveal must still complete the run")
	}
}
