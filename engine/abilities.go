package engine

import "time"

// PowerOption chooses between spending a rank power and keeping the card.
type PowerOption string

const (
	OptionActivate  PowerOption = "activate"
	OptionIntegrate PowerOption = "integrate"
)

// Target names a card in a player's hand by id or, when the id is unknown
// to the requester, by slot.
type Target struct {
	PlayerID string `json:"playerId"`
	CardID   string `json:"cardId,omitempty"`
	Slot     *int   `json:"slot,omitempty"`
}

// PowerRequest is a usePower command.
//
// CardID names the hand card being played when no draw is pending.
// DiscardCardID is the hand card given up by OptionIntegrate.
type PowerRequest struct {
	Rank          Rank        `json:"rank"`
	Option        PowerOption `json:"option"`
	CardID        string      `json:"cardId,omitempty"`
	DiscardCardID string      `json:"discardCardId,omitempty"`
	Targets       []Target    `json:"targets,omitempty"`
	Bluff         bool        `json:"bluff,omitempty"`
}

// RevealedCard is a private peek result for the requester.
type RevealedCard struct {
	OwnerID string    `json:"ownerId"`
	CardID  string    `json:"cardId"`
	Slot    int       `json:"slot"`
	Rank    Rank      `json:"rank"`
	Until   time.Time `json:"until"`
}

// PowerResult describes a resolved power. Reveal is private to the requester;
// the rest is public.
type PowerResult struct {
	PlayerID        string        `json:"playerId"`
	Rank            Rank          `json:"rank"`
	Option          PowerOption   `json:"option"`
	Played          Card          `json:"played"`
	Reveal          *RevealedCard `json:"reveal,omitempty"`
	Swapped         []Target      `json:"swapped,omitempty"`
	Bluff           bool          `json:"bluff,omitempty"`
	BluffDiscovered bool          `json:"bluffDiscovered,omitempty"`
	Penalty         int           `json:"penalty,omitempty"`
	ForcedDraw      bool          `json:"forcedDraw"`
}

// resolvedTarget is a Target checked against the current hands.
type resolvedTarget struct {
	seat   *Seat
	cardID string
	slot   int
}

// UsePower resolves a J, Q or K power, the integrate option, or a Joker play.
// The whole request is validated before anything changes. The turn advances
// afterwards.
func (t *Table) UsePower(playerID string, req PowerRequest) (PowerResult, error) {
	if req.Option == "" {
		req.Option = OptionActivate
	}
	if t.Phase != PhasePlaying {
		return PowerResult{}, newError(KindInvalidPhase, "powers are only usable while playing, phase is %s", t.Phase)
	}
	idx := t.seatIndex(playerID)
	if idx < 0 {
		return PowerResult{}, newError(KindNotFound, "player %s is not seated", playerID)
	}
	seat := t.Seats[idx]
	if !req.Rank.HasPower() && req.Rank != RankJoker {
		return PowerResult{}, newError(KindInvalidTarget, "rank %s has no power", req.Rank)
	}
	if req.Option != OptionActivate && req.Option != OptionIntegrate {
		return PowerResult{}, newError(KindInvalidArgument, "unknown option %q", req.Option)
	}
	if req.Option == OptionActivate && seat.PowersUsed.Used(req.Rank) {
		return PowerResult{}, newError(KindPowerAlreadyUsed, "%s power already used", req.Rank)
	}
	if idx != t.CurrentSeat {
		return PowerResult{}, newError(KindNotYourTurn, "it is %s's turn", t.CurrentPlayerID)
	}

	if req.Rank == RankJoker {
		return t.playJoker(seat, req)
	}
	if req.Option == OptionIntegrate {
		return t.integrate(seat, req)
	}

	// Source card: the pending draw, or a hand card when nothing is pending.
	fromHand := t.Pending == nil
	var played Card
	if fromHand {
		slot := seat.handIndex(req.CardID)
		if slot < 0 || seat.Hand[slot].Rank != req.Rank {
			return PowerResult{}, newError(KindInvalidTarget, "no %s with id %q in hand", req.Rank, req.CardID)
		}
		played = seat.Hand[slot]
	} else {
		if t.Pending.Card.Rank != req.Rank {
			return PowerResult{}, newError(KindInvalidTarget, "drawn card is %s, not %s", t.Pending.Card.Rank, req.Rank)
		}
		played = t.Pending.Card
	}

	targets, err := t.resolvePowerTargets(seat, req, played.ID)
	if err != nil {
		return PowerResult{}, err
	}

	// Validation done; mutate.
	res := PowerResult{PlayerID: playerID, Rank: req.Rank, Option: OptionActivate, Played: played}
	if fromHand {
		res.ForcedDraw = t.playFromHand(seat, played.ID)
	} else {
		t.Pending = nil
		t.pushDiscard(played)
	}
	seat.PowersUsed.mark(req.Rank)

	switch req.Rank {
	case RankJack, RankQueen:
		tg := targets[0]
		slot := tg.seat.handIndex(tg.cardID)
		until := t.now().Add(t.Settings.RevealDuration)
		seat.Reveals = append(seat.Reveals, Reveal{CardID: tg.cardID, OwnerID: tg.seat.PlayerID, Until: until})
		res.Reveal = &RevealedCard{
			OwnerID: tg.seat.PlayerID,
			CardID:  tg.cardID,
			Slot:    slot,
			Rank:    tg.seat.Hand[slot].Rank,
			Until:   until,
		}
	case RankKing:
		a, b := targets[0], targets[1]
		ia, ib := a.seat.handIndex(a.cardID), b.seat.handIndex(b.cardID)
		ca, cb := a.seat.Hand[ia], b.seat.Hand[ib]
		ca.Visible, cb.Visible = false, false
		a.seat.Hand[ia], b.seat.Hand[ib] = cb, ca
		res.Swapped = []Target{
			{PlayerID: a.seat.PlayerID, Slot: intPtr(ia)},
			{PlayerID: b.seat.PlayerID, Slot: intPtr(ib)},
		}
		t.recordScore(a.seat)
		t.recordScore(b.seat)
	}
	t.recordScore(seat)
	t.logAction(playerID, "power", map[string]any{"rank": req.Rank.String(), "cardId": played.ID, "fromHand": fromHand})

	t.advance()
	t.touch()
	return res, nil
}

// resolvePowerTargets validates the targets for J, Q and K. The source card
// can never be its own target.
func (t *Table) resolvePowerTargets(seat *Seat, req PowerRequest, sourceID string) ([]resolvedTarget, error) {
	want := 1
	if req.Rank == RankKing {
		want = 2
	}
	if len(req.Targets) != want {
		return nil, newError(KindInvalidTarget, "%s power needs %d target(s), got %d", req.Rank, want, len(req.Targets))
	}
	out := make([]resolvedTarget, 0, want)
	for _, tg := range req.Targets {
		pid := tg.PlayerID
		if pid == "" && req.Rank == RankJack {
			pid = seat.PlayerID
		}
		owner := t.Seat(pid)
		if owner == nil {
			return nil, newError(KindInvalidTarget, "target player %q is not seated", tg.PlayerID)
		}
		slot := -1
		switch {
		case tg.CardID != "":
			slot = owner.handIndex(tg.CardID)
		case tg.Slot != nil && *tg.Slot >= 0 && *tg.Slot < len(owner.Hand):
			slot = *tg.Slot
		}
		if slot < 0 {
			return nil, newError(KindInvalidTarget, "card not found in %s's hand", owner.PlayerID)
		}
		cardID := owner.Hand[slot].ID
		if cardID == sourceID {
			return nil, newError(KindInvalidTarget, "the played card cannot be its own target")
		}
		out = append(out, resolvedTarget{seat: owner, cardID: cardID, slot: slot})
	}

	switch req.Rank {
	case RankJack:
		if out[0].seat != seat {
			return nil, newError(KindInvalidTarget, "J peeks at one of your own cards")
		}
	case RankQueen:
		if out[0].seat == seat {
			return nil, newError(KindInvalidTarget, "Q peeks at another player's card")
		}
	case RankKing:
		if out[0].seat.PlayerID == out[1].seat.PlayerID {
			return nil, newError(KindInvalidTarget, "K swaps between two different players")
		}
	}
	return out, nil
}

// integrate keeps the pending power card in hand in place of DiscardCardID.
// The power flag is not touched.
func (t *Table) integrate(seat *Seat, req PowerRequest) (PowerResult, error) {
	if t.Pending == nil {
		return PowerResult{}, newError(KindInvalidTarget, "integrate needs a drawn %s", req.Rank)
	}
	if t.Pending.Card.Rank != req.Rank {
		return PowerResult{}, newError(KindInvalidTarget, "drawn card is %s, not %s", t.Pending.Card.Rank, req.Rank)
	}
	slot := seat.handIndex(req.DiscardCardID)
	if slot < 0 {
		return PowerResult{}, newError(KindInvalidTarget, "no card %q in hand to discard", req.DiscardCardID)
	}

	kept := t.Pending.Card
	kept.Visible = false
	old := seat.Hand[slot]
	seat.Hand[slot] = kept
	t.Pending = nil
	t.pushDiscard(old)
	t.recordScore(seat)
	t.logAction(seat.PlayerID, "integrate", map[string]any{"rank": req.Rank.String(), "cardId": kept.ID, "discardedId": old.ID})

	t.advance()
	t.touch()
	return PowerResult{PlayerID: seat.PlayerID, Rank: req.Rank, Option: OptionIntegrate, Played: old}, nil
}

// playJoker plays a Joker from hand, optionally as a bluff.
func (t *Table) playJoker(seat *Seat, req PowerRequest) (PowerResult, error) {
	if t.Pending != nil {
		return PowerResult{}, newError(KindInvalidTarget, "resolve the drawn card before playing a Joker")
	}
	slot := seat.handIndex(req.CardID)
	if slot < 0 || seat.Hand[slot].Rank != RankJoker {
		return PowerResult{}, newError(KindInvalidTarget, "no Joker with id %q in hand", req.CardID)
	}
	played := seat.Hand[slot]
	res := PowerResult{PlayerID: seat.PlayerID, Rank: RankJoker, Option: OptionActivate, Played: played, Bluff: req.Bluff}

	if req.Bluff {
		if t.rng.IntN(100) < BluffDiscoveryPercent {
			res.BluffDiscovered = true
			res.Penalty = BluffPenalty
			seat.Penalty += BluffPenalty
			res.ForcedDraw = t.playFromHand(seat, played.ID)
		} else {
			// A successful bluff skips the forced draw; the hand shrinks.
			seat.Hand = append(seat.Hand[:slot], seat.Hand[slot+1:]...)
			t.pushDiscard(played)
		}
	} else {
		res.ForcedDraw = t.playFromHand(seat, played.ID)
	}
	t.recordScore(seat)
	t.logAction(seat.PlayerID, "joker", map[string]any{
		"cardId":     played.ID,
		"bluff":      req.Bluff,
		"discovered": res.BluffDiscovered,
	})

	t.advance()
	t.touch()
	return res, nil
}

// playFromHand discards a hand card and refills its slot from the draw pile.
// With an empty draw pile the slot is removed. It reports whether a card was
// drawn.
func (t *Table) playFromHand(seat *Seat, cardID string) bool {
	slot := seat.handIndex(cardID)
	played := seat.Hand[slot]
	t.pushDiscard(played)
	if len(t.DrawPile) == 0 {
		seat.Hand = append(seat.Hand[:slot], seat.Hand[slot+1:]...)
		return false
	}
	c := t.popDraw()
	c.Visible = false
	seat.Hand[slot] = c
	return true
}

func intPtr(i int) *int { return &i }
