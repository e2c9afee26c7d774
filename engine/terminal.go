package engine

// CallResult summarizes the comparison pass of a call.
type CallResult struct {
	CallerID        string         `json:"callerId"`
	WinnerID        string         `json:"winnerId"`
	Scores          map[string]int `json:"scores"`
	CallerPenalized bool           `json:"callerPenalized"`
}

// Call ends the round early. Every hand is revealed, scores are recomputed
// once, the winner is chosen by the table's CompareRule and the table moves
// through showtime to finished.
func (t *Table) Call(playerID string) (CallResult, error) {
	idx, err := t.requirePlaying(playerID)
	if err != nil {
		return CallResult{}, err
	}
	if t.Pending != nil {
		return CallResult{}, newError(KindInvalidPhase, "resolve the drawn card before calling")
	}
	caller := t.Seats[idx]

	t.CallerID = playerID
	t.Phase = PhaseShowtime
	t.logAction(playerID, "call", nil)
	for _, s := range t.Seats {
		for i := range s.Hand {
			s.Hand[i].Visible = true
		}
		t.recordScore(s)
	}

	res := CallResult{CallerID: playerID, Scores: make(map[string]int, len(t.Seats))}
	switch t.Settings.Compare {
	case CompareCallerMustWin:
		if caller.IsEliminated || !t.strictlyLowest(caller) {
			caller.Penalty += t.Settings.FalseCallPenalty
			t.recordScore(caller)
			res.CallerPenalized = true
			res.WinnerID = t.lowestScoring(playerID)
		} else {
			res.WinnerID = playerID
		}
	default:
		res.WinnerID = t.lowestScoring("")
		if !caller.IsEliminated && caller.Score == t.Seat(res.WinnerID).Score {
			res.WinnerID = playerID
		}
	}
	for _, s := range t.Seats {
		res.Scores[s.PlayerID] = s.Score
	}
	t.logAction(playerID, "showtime", map[string]any{"scores": res.Scores, "callerPenalized": res.CallerPenalized})

	t.finish(res.WinnerID)
	t.touch()
	return res, nil
}

// strictlyLowest reports whether s scores strictly below every other
// non-eliminated seat.
func (t *Table) strictlyLowest(s *Seat) bool {
	for _, o := range t.Seats {
		if o == s || o.IsEliminated {
			continue
		}
		if o.Score <= s.Score {
			return false
		}
	}
	return true
}

// lowestScoring returns the lowest-scoring non-eliminated seat other than
// exclude, earliest seat first on ties. With no such seat it falls back to
// every seat.
func (t *Table) lowestScoring(exclude string) string {
	pick := func(skipEliminated bool) string {
		best := -1
		for i, s := range t.Seats {
			if s.PlayerID == exclude || (skipEliminated && s.IsEliminated) {
				continue
			}
			if best < 0 || s.Score < t.Seats[best].Score {
				best = i
			}
		}
		if best < 0 {
			return ""
		}
		return t.Seats[best].PlayerID
	}
	if id := pick(true); id != "" {
		return id
	}
	return pick(false)
}

// finish closes the table. A pending draw is returned to the discard pile so
// every card stays accounted for.
func (t *Table) finish(winnerID string) {
	if t.Pending != nil {
		t.discardPending()
	}
	t.Phase = PhaseFinished
	t.WinnerID = winnerID
	t.setCurrent(-1)
	for _, s := range t.Seats {
		s.HasActedThisTurn = false
		s.Reveals = nil
	}
	t.logAction(winnerID, "game_over", map[string]any{"winnerId": winnerID})
}

// Winner returns the winning seat once the table has finished.
func (t *Table) Winner() *Seat {
	if t.Phase != PhaseFinished {
		return nil
	}
	return t.Seat(t.WinnerID)
}
