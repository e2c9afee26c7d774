package engine

// ResolveKind selects what happens to a pending draw.
type ResolveKind string

const (
	ResolveDiscard ResolveKind = "discard"
	ResolveReplace ResolveKind = "replace"
)

// Resolution is the player's decision on a pending draw. Slot is used only
// by ResolveReplace.
type Resolution struct {
	Kind ResolveKind `json:"kind"`
	Slot int         `json:"slot"`
}

// DrawCard takes the top of the draw pile (or discard pile) into the pending
// draw. The drawn card is visible to its owner.
func (t *Table) DrawCard(playerID string, fromDiscard bool) (Card, error) {
	idx, err := t.requirePlaying(playerID)
	if err != nil {
		return Card{}, err
	}
	if t.Pending != nil {
		return Card{}, newError(KindInvalidPhase, "a drawn card is already pending")
	}

	var c Card
	if fromDiscard {
		if !t.Settings.AllowDrawFromDiscard {
			return Card{}, newError(KindInvalidPhase, "drawing from the discard pile is disabled")
		}
		if len(t.DiscardPile) == 0 {
			return Card{}, newError(KindEmptyPile, "discard pile is empty")
		}
		// Top card is the last element.
		c = t.DiscardPile[len(t.DiscardPile)-1]
		t.DiscardPile = t.DiscardPile[:len(t.DiscardPile)-1]
	} else {
		if len(t.DrawPile) == 0 {
			return Card{}, newError(KindEmptyPile, "draw pile is empty")
		}
		c = t.popDraw()
	}
	c.Visible = true
	c.Discarded = false

	t.Pending = &PendingDraw{PlayerID: playerID, Card: c, FromDiscard: fromDiscard}
	t.Seats[idx].HasActedThisTurn = true
	t.logAction(playerID, "draw", map[string]any{"fromDiscard": fromDiscard, "cardId": c.ID})
	t.touch()
	return c, nil
}

// ResolveDraw commits the pending draw: discard it, or swap it into a hand
// slot with the displaced card going to the discard pile. The turn advances.
func (t *Table) ResolveDraw(playerID string, res Resolution) error {
	idx, err := t.requirePlaying(playerID)
	if err != nil {
		return err
	}
	if err := t.requirePending(playerID); err != nil {
		return err
	}
	seat := t.Seats[idx]

	switch res.Kind {
	case ResolveDiscard:
		t.discardPending()
	case ResolveReplace:
		if res.Slot < 0 || res.Slot >= len(seat.Hand) {
			return newError(KindInvalidTarget, "slot %d out of range (hand has %d)", res.Slot, len(seat.Hand))
		}
		drawn := t.Pending.Card
		drawn.Visible = false
		old := seat.Hand[res.Slot]
		seat.Hand[res.Slot] = drawn
		t.Pending = nil
		t.pushDiscard(old)
		t.logAction(playerID, "replace", map[string]any{"slot": res.Slot, "cardId": drawn.ID, "discardedId": old.ID})
		t.recordScore(seat)
	default:
		return newError(KindInvalidArgument, "unknown resolution %q", res.Kind)
	}

	t.advance()
	t.touch()
	return nil
}

// EndTurn forces the turn to pass. An undecided draw is discarded first.
func (t *Table) EndTurn(playerID string) error {
	if _, err := t.requirePlaying(playerID); err != nil {
		return err
	}
	if t.Pending != nil {
		t.discardPending()
	}
	t.logAction(playerID, "end_turn", nil)
	t.advance()
	t.touch()
	return nil
}

// Expire applies a timer expiry through the same path a player action
// takes. Memorization begins play; choice discards the pending draw; turn
// passes the turn. A kind that does not match the current state is an
// InvalidPhase error so stale expiries are rejected.
func (t *Table) Expire(kind DeadlineKind) error {
	if kind == DeadlineNone || kind != t.ActiveDeadline() {
		return newError(KindInvalidPhase, "%s deadline is not active", kind)
	}
	switch kind {
	case DeadlineMemorization:
		return t.BeginPlay()
	case DeadlineChoice:
		t.logAction(t.CurrentPlayerID, "choice_timeout", nil)
		t.discardPending()
	case DeadlineTurn:
		t.logAction(t.CurrentPlayerID, "turn_timeout", nil)
		if t.Pending != nil {
			t.discardPending()
		}
	}
	t.advance()
	t.touch()
	return nil
}

// discardPending moves the pending draw to the discard pile.
func (t *Table) discardPending() {
	c := t.Pending.Card
	t.logAction(t.Pending.PlayerID, "discard", map[string]any{"cardId": c.ID, "rank": c.Rank.String()})
	t.Pending = nil
	t.pushDiscard(c)
}

// advance passes the turn to the next non-eliminated seat, or finishes the
// table when at most one such seat remains.
func (t *Table) advance() {
	if t.Phase != PhasePlaying {
		return
	}
	if t.CurrentSeat >= 0 {
		t.Seats[t.CurrentSeat].HasActedThisTurn = false
	}
	t.pruneReveals()

	alive := t.ActiveSeats()
	if len(alive) <= 1 {
		if len(alive) == 1 {
			t.finish(alive[0].PlayerID)
		} else {
			t.finish(t.lowestScoring(""))
		}
		return
	}
	t.setCurrent(t.nextActiveFrom(t.CurrentSeat, false))
	t.TurnIndex++
	t.logAction(t.CurrentPlayerID, "turn", map[string]any{"turnIndex": t.TurnIndex})
}

// pruneReveals drops expired reveal grants.
func (t *Table) pruneReveals() {
	now := t.now()
	for _, s := range t.Seats {
		kept := s.Reveals[:0]
		for _, r := range s.Reveals {
			if now.Before(r.Until) {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			kept = nil
		}
		s.Reveals = kept
	}
}
