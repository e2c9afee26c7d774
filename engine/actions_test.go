package engine

import (
	"errors"
	"testing"
)

// TestDrawReplaceScenario: p1 draws from the pile and replaces slot 0; the
// old slot-0 card tops the discard pile and the turn passes to p2.
func TestDrawReplaceScenario(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	old := f.tbl.Seats[0].Hand[0]

	drawn, err := f.tbl.DrawCard(playerID(0), false)
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if !drawn.Visible {
		t.Error("drawn card should be visible to its owner")
	}
	if f.tbl.ActiveDeadline() != DeadlineChoice {
		t.Errorf("deadline = %s, want choice", f.tbl.ActiveDeadline())
	}
	mustInvariants(t, f.tbl)

	if err := f.tbl.ResolveDraw(playerID(0), Resolution{Kind: ResolveReplace, Slot: 0}); err != nil {
		t.Fatalf("ResolveDraw: %v", err)
	}
	top, ok := f.tbl.DiscardTop()
	if !ok || top.ID != old.ID {
		t.Fatalf("discard top = %+v, want %s", top, old.ID)
	}
	if !top.Discarded || !top.Visible {
		t.Errorf("discarded card flags = %+v", top)
	}
	if got := f.tbl.Seats[0].Hand[0]; got.ID != drawn.ID || got.Visible {
		t.Errorf("slot 0 = %+v, want face-down %s", got, drawn.ID)
	}
	if f.tbl.CurrentPlayerID != playerID(1) {
		t.Errorf("current = %s, want %s", f.tbl.CurrentPlayerID, playerID(1))
	}
	if f.tbl.Pending != nil {
		t.Error("pending draw not cleared")
	}
	mustInvariants(t, f.tbl)
}

func TestDrawThenDiscard(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	drawn, _ := f.tbl.DrawCard(playerID(0), false)
	if err := f.tbl.ResolveDraw(playerID(0), Resolution{Kind: ResolveDiscard}); err != nil {
		t.Fatalf("ResolveDraw: %v", err)
	}
	if top, _ := f.tbl.DiscardTop(); top.ID != drawn.ID {
		t.Errorf("discard top = %s, want %s", top.ID, drawn.ID)
	}
	mustInvariants(t, f.tbl)
}

// TestRejectedActionsDoNotMutate covers the pure-failure rule for turn
// commands.
func TestRejectedActionsDoNotMutate(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	before := snapshot(t, f.tbl)

	_, err := f.tbl.DrawCard(playerID(1), false)
	wantKind(t, err, KindNotYourTurn)
	if !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("errors.Is(%v, ErrNotYourTurn) = false", err)
	}
	wantKind(t, f.tbl.EndTurn(playerID(1)), KindNotYourTurn)
	wantKind(t, f.tbl.ResolveDraw(playerID(0), Resolution{Kind: ResolveDiscard}), KindInvalidPhase)
	_, err = f.tbl.DrawCard("ghost", false)
	wantKind(t, err, KindNotFound)
	_, err = f.tbl.DrawCard(playerID(0), true)
	wantKind(t, err, KindEmptyPile)

	if snapshot(t, f.tbl) != before {
		t.Fatal("a rejected command mutated the table")
	}

	f.tbl.DrawCard(playerID(0), false)
	before = snapshot(t, f.tbl)
	_, err = f.tbl.DrawCard(playerID(0), false)
	wantKind(t, err, KindInvalidPhase)
	wantKind(t, f.tbl.ResolveDraw(playerID(0), Resolution{Kind: ResolveReplace, Slot: 9}), KindInvalidTarget)
	wantKind(t, f.tbl.ResolveDraw(playerID(0), Resolution{Kind: "burn"}), KindInvalidArgument)
	if snapshot(t, f.tbl) != before {
		t.Fatal("a rejected resolve mutated the table")
	}
}

func TestDrawFromDiscardDisabled(t *testing.T) {
	f := newPlayingTable(t, 2, func(s *Settings) {
		s.AllowDrawFromDiscard = false
		s.FlipStarterDiscard = true
	})
	_, err := f.tbl.DrawCard(playerID(0), true)
	wantKind(t, err, KindInvalidPhase)
}

func TestDrawFromDiscard(t *testing.T) {
	f := newPlayingTable(t, 2, func(s *Settings) { s.FlipStarterDiscard = true })
	top, _ := f.tbl.DiscardTop()
	drawn, err := f.tbl.DrawCard(playerID(0), true)
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if drawn.ID != top.ID || len(f.tbl.DiscardPile) != 0 {
		t.Errorf("drew %s, discard left %d", drawn.ID, len(f.tbl.DiscardPile))
	}
	mustInvariants(t, f.tbl)
}

func TestEmptyDrawPile(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	f.tbl.DiscardPile = append(f.tbl.DiscardPile, f.tbl.DrawPile...)
	f.tbl.DrawPile = nil
	_, err := f.tbl.DrawCard(playerID(0), false)
	wantKind(t, err, KindEmptyPile)
	mustInvariants(t, f.tbl)
}

func TestEndTurnDiscardsPending(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	drawn, _ := f.tbl.DrawCard(playerID(0), false)
	if err := f.tbl.EndTurn(playerID(0)); err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if top, _ := f.tbl.DiscardTop(); top.ID != drawn.ID {
		t.Errorf("pending card not discarded")
	}
	if f.tbl.CurrentPlayerID != playerID(1) {
		t.Errorf("current = %s", f.tbl.CurrentPlayerID)
	}
	mustInvariants(t, f.tbl)
}

// TestTurnRotation verifies K advances return to the same player and that
// eliminated seats are skipped.
func TestTurnRotation(t *testing.T) {
	f := newPlayingTable(t, 4, nil)
	start := f.tbl.TurnIndex
	for i := 0; i < 4; i++ {
		if err := f.tbl.EndTurn(f.tbl.CurrentPlayerID); err != nil {
			t.Fatalf("EndTurn %d: %v", i, err)
		}
	}
	if f.tbl.CurrentPlayerID != playerID(0) || f.tbl.TurnIndex != start+4 {
		t.Fatalf("after 4 advances current=%s turn=%d", f.tbl.CurrentPlayerID, f.tbl.TurnIndex)
	}

	f.tbl.Seats[1].IsEliminated = true
	order := []string{}
	for i := 0; i < 3; i++ {
		f.tbl.EndTurn(f.tbl.CurrentPlayerID)
		order = append(order, f.tbl.CurrentPlayerID)
	}
	want := []string{playerID(2), playerID(3), playerID(0)}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", order, want)
		}
	}
	mustInvariants(t, f.tbl)
}

// TestEliminationFinishes: p2 pushes their score past 100 on their own
// replace, leaving p1 as the only active seat and the winner.
func TestEliminationFinishes(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	setHand(t, f.tbl, playerID(1), RankTen, RankAce, RankTwo, RankThree)
	f.tbl.Seats[1].Penalty = 93
	f.tbl.recordScore(f.tbl.Seats[1])
	if f.tbl.Seats[1].IsEliminated {
		t.Fatalf("p2 eliminated early with score %d", f.tbl.Seats[1].Score)
	}

	f.tbl.EndTurn(playerID(0))
	stackPile(t, f.tbl, RankKing)
	if _, err := f.tbl.DrawCard(playerID(1), false); err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if err := f.tbl.ResolveDraw(playerID(1), Resolution{Kind: ResolveReplace, Slot: 0}); err != nil {
		t.Fatalf("ResolveDraw: %v", err)
	}

	if !f.tbl.Seats[1].IsEliminated {
		t.Fatalf("p2 score %d not eliminated", f.tbl.Seats[1].Score)
	}
	if f.tbl.Phase != PhaseFinished || f.tbl.WinnerID != playerID(0) {
		t.Fatalf("phase=%s winner=%s, want finished/%s", f.tbl.Phase, f.tbl.WinnerID, playerID(0))
	}
	if f.tbl.CurrentPlayerID != "" || f.tbl.ActiveDeadline() != DeadlineNone {
		t.Errorf("finished table still has current=%q deadline=%s", f.tbl.CurrentPlayerID, f.tbl.ActiveDeadline())
	}
	mustInvariants(t, f.tbl)
}

func TestExpire(t *testing.T) {
	f := newPlayingTable(t, 2, nil)

	wantKind(t, f.tbl.Expire(DeadlineChoice), KindInvalidPhase)
	wantKind(t, f.tbl.Expire(DeadlineMemorization), KindInvalidPhase)

	if err := f.tbl.Expire(DeadlineTurn); err != nil {
		t.Fatalf("Expire(turn): %v", err)
	}
	if f.tbl.CurrentPlayerID != playerID(1) {
		t.Fatalf("turn expiry did not advance")
	}

	drawn, _ := f.tbl.DrawCard(playerID(1), false)
	wantKind(t, f.tbl.Expire(DeadlineTurn), KindInvalidPhase)
	if err := f.tbl.Expire(DeadlineChoice); err != nil {
		t.Fatalf("Expire(choice): %v", err)
	}
	if top, _ := f.tbl.DiscardTop(); top.ID != drawn.ID {
		t.Error("choice expiry did not discard the pending card")
	}
	if f.tbl.CurrentPlayerID != playerID(0) {
		t.Error("choice expiry did not advance")
	}
	mustInvariants(t, f.tbl)
}

func TestTurnDeadlineCoversDrawWithoutChoiceLimit(t *testing.T) {
	f := newPlayingTable(t, 2, func(s *Settings) { s.ChoiceSeconds = 0 })

	drawn, err := f.tbl.DrawCard(playerID(0), false)
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if got := f.tbl.ActiveDeadline(); got != DeadlineTurn {
		t.Fatalf("deadline = %s, want turn", got)
	}
	wantKind(t, f.tbl.Expire(DeadlineChoice), KindInvalidPhase)
	if err := f.tbl.Expire(DeadlineTurn); err != nil {
		t.Fatalf("Expire(turn): %v", err)
	}
	if f.tbl.Pending != nil {
		t.Fatal("turn expiry left the draw pending")
	}
	if top, _ := f.tbl.DiscardTop(); top.ID != drawn.ID {
		t.Error("turn expiry did not discard the pending card")
	}
	if f.tbl.CurrentPlayerID != playerID(1) {
		t.Error("turn expiry did not advance")
	}
	mustInvariants(t, f.tbl)
}

func TestLegalActions(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	if acts := f.tbl.LegalActions(playerID(1)); acts != nil {
		t.Errorf("non-current player has actions %v", acts)
	}
	has := func(acts []ActionKind, k ActionKind) bool {
		for _, a := range acts {
			if a == k {
				return true
			}
		}
		return false
	}
	acts := f.tbl.LegalActions(playerID(0))
	if !has(acts, ActionDrawPile) || !has(acts, ActionCall) || has(acts, ActionDrawDiscard) {
		t.Errorf("start-of-turn actions = %v", acts)
	}
	f.tbl.DrawCard(playerID(0), false)
	acts = f.tbl.LegalActions(playerID(0))
	if !has(acts, ActionDiscard) || !has(acts, ActionReplace) || has(acts, ActionCall) {
		t.Errorf("post-draw actions = %v", acts)
	}
}
