package engine

// ActionKind names a command a player may issue during play.
type ActionKind string

const (
	ActionDrawPile    ActionKind = "draw_pile"
	ActionDrawDiscard ActionKind = "draw_discard"
	ActionDiscard     ActionKind = "discard"
	ActionReplace     ActionKind = "replace"
	ActionPower       ActionKind = "use_power"
	ActionIntegrate   ActionKind = "integrate"
	ActionJoker       ActionKind = "joker"
	ActionEndTurn     ActionKind = "end_turn"
	ActionCall        ActionKind = "call"
)

// requirePlaying validates phase, seat and turn ownership in that order and
// returns the acting seat index.
func (t *Table) requirePlaying(playerID string) (int, error) {
	if t.Phase != PhasePlaying {
		return -1, newError(KindInvalidPhase, "action not allowed in phase %s", t.Phase)
	}
	idx := t.seatIndex(playerID)
	if idx < 0 {
		return -1, newError(KindNotFound, "player %s is not seated", playerID)
	}
	if idx != t.CurrentSeat {
		return -1, newError(KindNotYourTurn, "it is %s's turn", t.CurrentPlayerID)
	}
	return idx, nil
}

// requirePending checks that playerID owns the single pending draw.
func (t *Table) requirePending(playerID string) error {
	if t.Pending == nil {
		return newError(KindInvalidPhase, "no card has been drawn")
	}
	if t.Pending.PlayerID != playerID {
		return newError(KindNotYourTurn, "pending draw belongs to %s", t.Pending.PlayerID)
	}
	return nil
}

// LegalActions lists what playerID may do right now. It is advisory; every
// command validates independently.
func (t *Table) LegalActions(playerID string) []ActionKind {
	idx, err := t.requirePlaying(playerID)
	if err != nil {
		return nil
	}
	seat := t.Seats[idx]

	if t.Pending != nil {
		acts := []ActionKind{ActionDiscard}
		if len(seat.Hand) > 0 {
			acts = append(acts, ActionReplace)
		}
		if r := t.Pending.Card.Rank; r.HasPower() {
			if !seat.PowersUsed.Used(r) {
				acts = append(acts, ActionPower)
			}
			if len(seat.Hand) > 0 {
				acts = append(acts, ActionIntegrate)
			}
		}
		return append(acts, ActionEndTurn)
	}

	var acts []ActionKind
	if len(t.DrawPile) > 0 {
		acts = append(acts, ActionDrawPile)
	}
	if t.Settings.AllowDrawFromDiscard && len(t.DiscardPile) > 0 {
		acts = append(acts, ActionDrawDiscard)
	}
	power, joker := false, false
	for _, c := range seat.Hand {
		switch {
		case c.Rank == RankJoker:
			joker = true
		case c.Rank.HasPower() && !seat.PowersUsed.Used(c.Rank):
			power = true
		}
	}
	if power {
		acts = append(acts, ActionPower)
	}
	if joker {
		acts = append(acts, ActionJoker)
	}
	return append(acts, ActionEndTurn, ActionCall)
}
