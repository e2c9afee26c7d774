package engine

import (
	"testing"
	"time"
)

func slot(i int) *int { return &i }

// drawRank stacks a card of rank r and draws it for the current player.
func drawRank(t *testing.T, f fixture, r Rank) Card {
	t.Helper()
	stackPile(t, f.tbl, r)
	c, err := f.tbl.DrawCard(f.tbl.CurrentPlayerID, false)
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if c.Rank != r {
		t.Fatalf("drew %s, want %s", c.Rank, r)
	}
	return c
}

func TestJackPeekSelf(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	jack := drawRank(t, f, RankJack)
	target := f.tbl.Seats[0].Hand[2]

	res, err := f.tbl.UsePower(playerID(0), PowerRequest{
		Rank:    RankJack,
		Targets: []Target{{PlayerID: playerID(0), Slot: slot(2)}},
	})
	if err != nil {
		t.Fatalf("UsePower(J): %v", err)
	}
	if res.Reveal == nil || res.Reveal.CardID != target.ID || res.Reveal.Rank != target.Rank {
		t.Fatalf("reveal = %+v, want %s", res.Reveal, target.ID)
	}
	if !f.tbl.Seats[0].PowersUsed.Jack {
		t.Error("J power flag not set")
	}
	if top, _ := f.tbl.DiscardTop(); top.ID != jack.ID {
		t.Error("played J not on the discard pile")
	}
	if f.tbl.CurrentPlayerID != playerID(1) {
		t.Error("power did not end the turn")
	}

	if v := f.tbl.View(playerID(0)); !v.Seats[0].Hand[2].Known {
		t.Error("owner should see the revealed card")
	}
	if v := f.tbl.View(playerID(1)); v.Seats[0].Hand[2].Known {
		t.Error("opponent must not see the revealed card")
	}
	f.clock.Advance(f.tbl.Settings.RevealDuration + time.Second)
	if v := f.tbl.View(playerID(0)); v.Seats[0].Hand[2].Known {
		t.Error("reveal should expire")
	}
	mustInvariants(t, f.tbl)
}

func TestQueenPeekOther(t *testing.T) {
	f := newPlayingTable(t, 3, nil)
	drawRank(t, f, RankQueen)
	target := f.tbl.Seats[2].Hand[1]

	_, err := f.tbl.UsePower(playerID(0), PowerRequest{
		Rank:    RankQueen,
		Targets: []Target{{PlayerID: playerID(0), Slot: slot(0)}},
	})
	wantKind(t, err, KindInvalidTarget)

	res, err := f.tbl.UsePower(playerID(0), PowerRequest{
		Rank:    RankQueen,
		Targets: []Target{{PlayerID: playerID(2), CardID: target.ID}},
	})
	if err != nil {
		t.Fatalf("UsePower(Q): %v", err)
	}
	if res.Reveal.OwnerID != playerID(2) || res.Reveal.Slot != 1 {
		t.Errorf("reveal = %+v", res.Reveal)
	}
	v := f.tbl.View(playerID(0))
	if c := v.Seats[2].Hand[1]; !c.Known || c.ID != target.ID {
		t.Errorf("requester view of revealed card = %+v", c)
	}
	if c := f.tbl.View(playerID(1)).Seats[2].Hand[1]; c.Known {
		t.Error("third party must not see the revealed card")
	}
	mustInvariants(t, f.tbl)
}

// TestKingSwapSamePlayerRejected: K with both targets on one player fails
// with InvalidTarget and moves nothing.
func TestKingSwapSamePlayerRejected(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	drawRank(t, f, RankKing)
	before := snapshot(t, f.tbl)

	_, err := f.tbl.UsePower(playerID(0), PowerRequest{
		Rank: RankKing,
		Targets: []Target{
			{PlayerID: playerID(1), Slot: slot(0)},
			{PlayerID: playerID(1), Slot: slot(1)},
		},
	})
	wantKind(t, err, KindInvalidTarget)

	_, err = f.tbl.UsePower(playerID(0), PowerRequest{
		Rank: RankKing,
		Targets: []Target{
			{PlayerID: playerID(0), Slot: slot(0)},
			{PlayerID: playerID(1), CardID: "nope"},
		},
	})
	wantKind(t, err, KindInvalidTarget)

	if snapshot(t, f.tbl) != before {
		t.Fatal("rejected swap changed the table")
	}
}

func TestKingSwap(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	drawRank(t, f, RankKing)
	mine, theirs := f.tbl.Seats[0].Hand[0], f.tbl.Seats[1].Hand[3]

	res, err := f.tbl.UsePower(playerID(0), PowerRequest{
		Rank: RankKing,
		Targets: []Target{
			{PlayerID: playerID(0), CardID: mine.ID},
			{PlayerID: playerID(1), Slot: slot(3)},
		},
	})
	if err != nil {
		t.Fatalf("UsePower(K): %v", err)
	}
	if len(res.Swapped) != 2 {
		t.Fatalf("swapped = %+v", res.Swapped)
	}
	if got := f.tbl.Seats[0].Hand[0]; got.ID != theirs.ID || got.Visible {
		t.Errorf("p1 slot 0 = %+v, want face-down %s", got, theirs.ID)
	}
	if got := f.tbl.Seats[1].Hand[3]; got.ID != mine.ID || got.Visible {
		t.Errorf("p2 slot 3 = %+v, want face-down %s", got, mine.ID)
	}
	if f.tbl.Seats[0].Score != HandScore(f.tbl.Seats[0].Hand) {
		t.Errorf("p1 not rescored after swap")
	}
	mustInvariants(t, f.tbl)
}

// TestPowerOneShot: the second J by the same player is PowerAlreadyUsed and
// leaves the table exactly as the first call left it.
func TestPowerOneShot(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	drawRank(t, f, RankJack)
	req := PowerRequest{Rank: RankJack, Targets: []Target{{PlayerID: playerID(0), Slot: slot(0)}}}
	if _, err := f.tbl.UsePower(playerID(0), req); err != nil {
		t.Fatalf("first UsePower: %v", err)
	}
	after := snapshot(t, f.tbl)

	_, err := f.tbl.UsePower(playerID(0), req)
	wantKind(t, err, KindPowerAlreadyUsed)
	if snapshot(t, f.tbl) != after {
		t.Fatal("second UsePower changed the table")
	}

	f.tbl.EndTurn(playerID(1))
	drawRank(t, f, RankJack)
	_, err = f.tbl.UsePower(playerID(0), req)
	wantKind(t, err, KindPowerAlreadyUsed)
}

func TestIntegrateKeepsPowerAvailable(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	queen := drawRank(t, f, RankQueen)
	give := f.tbl.Seats[0].Hand[1]

	res, err := f.tbl.UsePower(playerID(0), PowerRequest{
		Rank:          RankQueen,
		Option:        OptionIntegrate,
		DiscardCardID: give.ID,
	})
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if res.Option != OptionIntegrate || f.tbl.Seats[0].PowersUsed.Queen {
		t.Errorf("integrate flipped the power flag: %+v", f.tbl.Seats[0].PowersUsed)
	}
	if f.tbl.Seats[0].Hand[1].ID != queen.ID {
		t.Error("queen not kept in hand")
	}
	if top, _ := f.tbl.DiscardTop(); top.ID != give.ID {
		t.Error("chosen card not discarded")
	}
	if f.tbl.CurrentPlayerID != playerID(1) {
		t.Error("integrate did not consume the turn")
	}
	mustInvariants(t, f.tbl)
}

func TestIntegrateNeedsPendingDraw(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	_, err := f.tbl.UsePower(playerID(0), PowerRequest{
		Rank:          RankKing,
		Option:        OptionIntegrate,
		DiscardCardID: f.tbl.Seats[0].Hand[0].ID,
	})
	wantKind(t, err, KindInvalidTarget)
}

// TestPowerFromHand plays a J held in hand; the slot is refilled from the
// draw pile.
func TestPowerFromHand(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	setHand(t, f.tbl, playerID(0), RankJack, RankTwo, RankThree, RankFour)
	jack := f.tbl.Seats[0].Hand[0]
	pile := len(f.tbl.DrawPile)

	res, err := f.tbl.UsePower(playerID(0), PowerRequest{
		Rank:    RankJack,
		CardID:  jack.ID,
		Targets: []Target{{Slot: slot(1)}},
	})
	if err != nil {
		t.Fatalf("UsePower: %v", err)
	}
	if !res.ForcedDraw || len(f.tbl.DrawPile) != pile-1 {
		t.Errorf("forced draw = %v, pile %d -> %d", res.ForcedDraw, pile, len(f.tbl.DrawPile))
	}
	if got := f.tbl.Seats[0].Hand[0]; got.ID == jack.ID || got.Visible {
		t.Errorf("slot 0 = %+v after playing the J", got)
	}
	mustInvariants(t, f.tbl)
}

func TestPowerValidation(t *testing.T) {
	f := newPlayingTable(t, 2, nil)
	drawRank(t, f, RankQueen)
	before := snapshot(t, f.tbl)

	_, err := f.tbl.UsePower(playerID(0), PowerRequest{Rank: RankFive})
	wantKind(t, err, KindInvalidTarget)
	_, err = f.tbl.UsePower(playerID(0), PowerRequest{Rank: RankJack, Targets: []Target{{Slot: slot(0)}}})
	wantKind(t, err, KindInvalidTarget) // drawn card is a Q
	_, err = f.tbl.UsePower(playerID(1), PowerRequest{Rank: RankQueen})
	wantKind(t, err, KindNotYourTurn)
	_, err = f.tbl.UsePower(playerID(0), PowerRequest{Rank: RankQueen})
	wantKind(t, err, KindInvalidTarget) // no target
	_, err = f.tbl.UsePower(playerID(0), PowerRequest{Rank: RankQueen, Option: "hoard"})
	wantKind(t, err, KindInvalidArgument)

	if snapshot(t, f.tbl) != before {
		t.Fatal("rejected power changed the table")
	}

	waiting := newWaitingTable(t, 2, nil)
	_, err = waiting.tbl.UsePower(playerID(0), PowerRequest{Rank: RankJack})
	wantKind(t, err, KindInvalidPhase)
}

func jokerTable(t *testing.T) (fixture, Card) {
	t.Helper()
	f := newPlayingTable(t, 2, nil)
	setHand(t, f.tbl, playerID(0), RankJoker, RankTwo, RankThree, RankFour)
	return f, f.tbl.Seats[0].Hand[0]
}

func TestJokerBluffDiscovered(t *testing.T) {
	f, joker := jokerTable(t)
	f.rng.queue = []int{BluffDiscoveryPercent - 1}

	res, err := f.tbl.UsePower(playerID(0), PowerRequest{Rank: RankJoker, CardID: joker.ID, Bluff: true})
	if err != nil {
		t.Fatalf("UsePower(Joker): %v", err)
	}
	s := f.tbl.Seats[0]
	if !res.BluffDiscovered || s.Penalty != BluffPenalty {
		t.Fatalf("discovered=%v penalty=%d", res.BluffDiscovered, s.Penalty)
	}
	if len(s.Hand) != 4 || !res.ForcedDraw {
		t.Errorf("discovered bluff should still force a draw, hand=%d", len(s.Hand))
	}
	if s.Score != HandScore(s.Hand)+BluffPenalty {
		t.Errorf("score %d does not include the penalty", s.Score)
	}
	mustInvariants(t, f.tbl)
}

func TestJokerBluffSucceeds(t *testing.T) {
	f, joker := jokerTable(t)
	f.rng.queue = []int{BluffDiscoveryPercent}

	res, err := f.tbl.UsePower(playerID(0), PowerRequest{Rank: RankJoker, CardID: joker.ID, Bluff: true})
	if err != nil {
		t.Fatalf("UsePower(Joker): %v", err)
	}
	if res.BluffDiscovered || res.ForcedDraw || len(f.tbl.Seats[0].Hand) != 3 {
		t.Fatalf("successful bluff: %+v hand=%d", res, len(f.tbl.Seats[0].Hand))
	}
	if f.tbl.Seats[0].Penalty != 0 {
		t.Error("successful bluff should not be penalized")
	}
	mustInvariants(t, f.tbl)
}

func TestJokerPlain(t *testing.T) {
	f, joker := jokerTable(t)
	res, err := f.tbl.UsePower(playerID(0), PowerRequest{Rank: RankJoker, CardID: joker.ID})
	if err != nil {
		t.Fatalf("UsePower(Joker): %v", err)
	}
	if res.Bluff || !res.ForcedDraw || len(f.tbl.Seats[0].Hand) != 4 {
		t.Fatalf("plain joker: %+v", res)
	}
	if top, _ := f.tbl.DiscardTop(); top.ID != joker.ID {
		t.Error("joker not discarded")
	}
	mustInvariants(t, f.tbl)
}
