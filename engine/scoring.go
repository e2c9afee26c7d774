package engine

const (
	// ScoreResetAt is the exact total that snaps back to ScoreResetTo.
	ScoreResetAt = 100
	ScoreResetTo = 50
	// EliminationAbove eliminates a seat whose recorded score exceeds it.
	EliminationAbove = 100
)

// CardPoints is the single scoring function.
//   - Ace → 1
//   - Two–Nine → face value
//   - Ten → 0
//   - Jack, Queen, King → 10
//   - Joker → -1
func CardPoints(r Rank) int {
	switch {
	case r == RankAce:
		return 1
	case r >= RankTwo && r <= RankNine:
		return int(r)
	case r == RankTen:
		return 0
	case r == RankJack, r == RankQueen, r == RankKing:
		return 10
	case r == RankJoker:
		return -1
	}
	return 0
}

// OrdinalValue is the legacy numeric encoding used by some clients
// (A=1 .. K=13, Joker=0). It is an ordering, not a score.
func OrdinalValue(r Rank) int {
	if r == RankJoker || r == RankNone {
		return 0
	}
	return int(r)
}

// RankFromOrdinal translates the legacy encoding back to a canonical Rank.
func RankFromOrdinal(v int) (Rank, bool) {
	switch {
	case v == 0:
		return RankJoker, true
	case v >= 1 && v <= 13:
		return Rank(v), true
	}
	return RankNone, false
}

// ScoreRule applies the house rule to a raw total: exactly 100 becomes 50.
func ScoreRule(raw int) int {
	if raw == ScoreResetAt {
		return ScoreResetTo
	}
	return raw
}

func handSum(hand []Card) int {
	sum := 0
	for _, c := range hand {
		if c.Discarded {
			continue
		}
		sum += CardPoints(c.Rank)
	}
	return sum
}

// HandScore sums CardPoints over non-discarded cards and applies ScoreRule.
func HandScore(hand []Card) int {
	return ScoreRule(handSum(hand))
}

// recordScore recomputes the seat's score from its hand and penalties and
// eliminates it if the recorded score exceeds EliminationAbove.
func (t *Table) recordScore(s *Seat) {
	s.Score = ScoreRule(handSum(s.Hand) + s.Penalty)
	if s.Score > EliminationAbove && !s.IsEliminated {
		s.IsEliminated = true
		t.logAction(s.PlayerID, "eliminated", map[string]any{"score": s.Score})
	}
}
