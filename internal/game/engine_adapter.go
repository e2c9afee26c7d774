// internal/game/engine_adapter.go
package game

import "github.com/jason-s-yu/showtime/engine"

// buildEventCard converts an engine card for an event. Id, rank and ordinal
// are included only when withRank is set; a hidden card is shown by position.
func buildEventCard(c engine.Card, slot *int, ownerID string, withRank bool) *EventCard {
	ec := &EventCard{Slot: slot}
	if ownerID != "" {
		ec.User = user(ownerID)
	}
	if withRank {
		ec.ID = c.ID
		ec.Rank = c.Rank
		ec.Ordinal = intRef(engine.OrdinalValue(c.Rank))
	}
	return ec
}

func turnChangedEvent(s *engine.Table) Event {
	return Event{
		Type:    EventTurnChanged,
		User:    user(s.CurrentPlayerID),
		Payload: map[string]any{"playerId": s.CurrentPlayerID, "turnIndex": s.TurnIndex},
	}
}

func gameFinishedEvent(s *engine.Table) Event {
	scores := make(map[string]int, len(s.Seats))
	for _, seat := range s.Seats {
		scores[seat.PlayerID] = seat.Score
	}
	return Event{
		Type: EventGameFinished,
		User: user(s.WinnerID),
		Payload: map[string]any{
			"winnerId": s.WinnerID,
			"callerId": s.CallerID,
			"scores":   scores,
		},
	}
}

// drawEvents returns the opaque public draw notice and the drawer's private
// copy. A card taken from the discard pile was already public, so everyone
// sees its rank.
func drawEvents(playerID string, c engine.Card, fromDiscard bool) []outbound {
	payload := map[string]any{"fromDiscard": fromDiscard}
	return []outbound{
		public(Event{Type: EventCardDrawn, User: user(playerID), Card: buildEventCard(c, nil, playerID, fromDiscard), Payload: payload}),
		private(playerID, Event{Type: EventCardDrawn, User: user(playerID), Card: buildEventCard(c, nil, playerID, true), Payload: payload}),
	}
}

// discardEvent announces a card reaching the discard pile. Discarded cards
// are public.
func discardEvent(playerID string, c engine.Card) Event {
	return Event{Type: EventCardDiscarded, User: user(playerID), Card: buildEventCard(c, nil, playerID, true)}
}

// powerEvents splits a power result into its public summary and, for peeks,
// the requester's private reveal.
func powerEvents(res engine.PowerResult) []outbound {
	pub := Event{
		Type: EventPowerResolved,
		User: user(res.PlayerID),
		Card: buildEventCard(res.Played, nil, res.PlayerID, true),
		Payload: map[string]any{
			"rank":       res.Rank.String(),
			"option":     string(res.Option),
			"forcedDraw": res.ForcedDraw,
		},
	}
	if res.Bluff {
		pub.Payload["bluff"] = true
		pub.Payload["bluffDiscovered"] = res.BluffDiscovered
		pub.Payload["penalty"] = res.Penalty
	}
	if len(res.Swapped) == 2 {
		a, b := res.Swapped[0], res.Swapped[1]
		pub.Card1 = &EventCard{Slot: a.Slot, User: user(a.PlayerID)}
		pub.Card2 = &EventCard{Slot: b.Slot, User: user(b.PlayerID)}
	}
	if res.Reveal != nil {
		// Others learn whose slot was looked at, nothing about the card.
		pub.Card1 = &EventCard{Slot: intRef(res.Reveal.Slot), User: user(res.Reveal.OwnerID)}
	}
	out := []outbound{public(pub)}

	if res.Reveal != nil {
		r := res.Reveal
		out = append(out, private(res.PlayerID, Event{
			Type: EventPowerResolved,
			User: user(res.PlayerID),
			Card1: &EventCard{
				ID:      r.CardID,
				Rank:    r.Rank,
				Ordinal: intRef(engine.OrdinalValue(r.Rank)),
				Slot:    intRef(r.Slot),
				User:    user(r.OwnerID),
			},
			Payload: map[string]any{"rank": res.Rank.String(), "until": r.Until},
		}))
	}
	return out
}

func callEvent(res engine.CallResult) Event {
	return Event{
		Type: EventPlayerCalled,
		User: user(res.CallerID),
		Payload: map[string]any{
			"scores":          res.Scores,
			"winnerId":        res.WinnerID,
			"callerPenalized": res.CallerPenalized,
		},
	}
}
