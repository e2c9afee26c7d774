package engine

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time           { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// seqRand returns queued values first, then falls back to a seeded source.
type seqRand struct {
	queue    []int
	fallback Rand
}

func (r *seqRand) IntN(n int) int {
	if len(r.queue) > 0 {
		v := r.queue[0]
		r.queue = r.queue[1:]
		return v % n
	}
	return r.fallback.IntN(n)
}

type fixture struct {
	tbl   *Table
	clock *fakeClock
	rng   *seqRand
}

func playerID(i int) string { return fmt.Sprintf("p%d", i+1) }

// newWaitingTable seats n players (p1 is host) without readying anyone.
func newWaitingTable(t *testing.T, n int, tweak func(*Settings)) fixture {
	t.Helper()
	st := DefaultSettings()
	st.MaxPlayers = n
	st.AutoStart = false
	st.FlipStarterDiscard = false
	if tweak != nil {
		tweak(&st)
	}
	clk := &fakeClock{t: testEpoch}
	rng := &seqRand{fallback: NewRand(1)}
	tbl, err := NewTable("t1", "ABCDEF", playerID(0), st, WithRand(rng), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	for i := 0; i < n; i++ {
		if _, err := tbl.Join(playerID(i), "Player "+playerID(i)); err != nil {
			t.Fatalf("Join %s: %v", playerID(i), err)
		}
	}
	return fixture{tbl: tbl, clock: clk, rng: rng}
}

// newPlayingTable readies and starts n players and expires memorization so
// p1 holds the first turn.
func newPlayingTable(t *testing.T, n int, tweak func(*Settings)) fixture {
	t.Helper()
	f := newWaitingTable(t, n, tweak)
	for i := 0; i < n; i++ {
		if _, err := f.tbl.SetReady(playerID(i), true); err != nil {
			t.Fatalf("SetReady: %v", err)
		}
	}
	if f.tbl.Phase == PhaseWaiting {
		if err := f.tbl.Start(playerID(0)); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	if err := f.tbl.Expire(DeadlineMemorization); err != nil {
		t.Fatalf("Expire(memorization): %v", err)
	}
	mustInvariants(t, f.tbl)
	return f
}

func mustInvariants(t *testing.T, tbl *Table) {
	t.Helper()
	if err := tbl.CheckInvariants(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func findInPile(tbl *Table, r Rank, limit int) int {
	for j := 0; j < limit; j++ {
		if tbl.DrawPile[j].Rank == r {
			return j
		}
	}
	return -1
}

// setHand exchanges cards with the draw pile until playerID holds ranks.
func setHand(t *testing.T, tbl *Table, pid string, ranks ...Rank) {
	t.Helper()
	s := tbl.Seat(pid)
	if len(ranks) != len(s.Hand) {
		t.Fatalf("setHand: %d ranks for a hand of %d", len(ranks), len(s.Hand))
	}
	for i, r := range ranks {
		if s.Hand[i].Rank == r {
			continue
		}
		j := findInPile(tbl, r, len(tbl.DrawPile))
		if j < 0 {
			t.Fatalf("setHand: no %s left in the draw pile", r)
		}
		old, nc := s.Hand[i], tbl.DrawPile[j]
		nc.Visible, old.Visible = old.Visible, false
		s.Hand[i], tbl.DrawPile[j] = nc, old
	}
	tbl.recordScore(s)
}

// stackPile moves cards of the given ranks to the top of the draw pile; the
// last rank listed is drawn first.
func stackPile(t *testing.T, tbl *Table, ranks ...Rank) {
	t.Helper()
	for stacked, r := range ranks {
		j := findInPile(tbl, r, len(tbl.DrawPile)-stacked)
		if j < 0 {
			t.Fatalf("stackPile: no %s in the draw pile", r)
		}
		c := tbl.DrawPile[j]
		tbl.DrawPile = append(tbl.DrawPile[:j], tbl.DrawPile[j+1:]...)
		tbl.DrawPile = append(tbl.DrawPile, c)
	}
}

func snapshot(t *testing.T, tbl *Table) string {
	t.Helper()
	b, err := json.Marshal(tbl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("error kind = %q (%v), want %q", got, err, kind)
	}
}
