package engine

import (
	"fmt"
	"strconv"
	"time"
)

// Rank is the canonical card rank. Scoring and powers only ever look at Rank.
type Rank uint8

const (
	RankNone Rank = iota
	RankAce
	RankTwo
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
	RankJoker
)

// String returns the short display form ("A", "2".."10", "J", "Q", "K", "Joker").
func (r Rank) String() string {
	switch {
	case r == RankAce:
		return "A"
	case r >= RankTwo && r <= RankTen:
		return strconv.Itoa(int(r))
	case r == RankJack:
		return "J"
	case r == RankQueen:
		return "Q"
	case r == RankKing:
		return "K"
	case r == RankJoker:
		return "Joker"
	}
	return "?"
}

// ParseRank is the inverse of String.
func ParseRank(s string) (Rank, bool) {
	switch s {
	case "A":
		return RankAce, true
	case "J":
		return RankJack, true
	case "Q":
		return RankQueen, true
	case "K":
		return RankKing, true
	case "Joker":
		return RankJoker, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 2 || n > 10 {
		return RankNone, false
	}
	return Rank(n), true
}

func (r Rank) MarshalText() ([]byte, error) {
	if r == RankNone {
		return []byte(""), nil
	}
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = RankNone
		return nil
	}
	parsed, ok := ParseRank(string(b))
	if !ok {
		return fmt.Errorf("unknown rank %q", b)
	}
	*r = parsed
	return nil
}

// HasPower reports whether the rank carries a one-shot power (J, Q, K).
func (r Rank) HasPower() bool {
	return r == RankJack || r == RankQueen || r == RankKing
}

// JokerKind distinguishes joker subtypes. Only the compat deck scheme uses
// Red/Black; the standard scheme deals Plain jokers.
type JokerKind uint8

const (
	JokerNone JokerKind = iota
	JokerPlain
	JokerRed
	JokerBlack
)

// Card is one physical card. IDs are unique within a table.
type Card struct {
	ID        string    `json:"id"`
	Rank      Rank      `json:"rank"`
	Joker     JokerKind `json:"joker,omitempty"`
	Visible   bool      `json:"visible"`
	Discarded bool      `json:"discarded"`
}

// Phase is the coarse table lifecycle state.
type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhaseExploration Phase = "exploration"
	PhasePlaying     Phase = "playing"
	PhaseShowtime    Phase = "showtime"
	PhaseFinished    Phase = "finished"
)

// DeadlineKind names the countdown a phase needs. At most one is active.
type DeadlineKind uint8

const (
	DeadlineNone DeadlineKind = iota
	DeadlineMemorization
	DeadlineTurn
	DeadlineChoice
)

func (k DeadlineKind) String() string {
	switch k {
	case DeadlineMemorization:
		return "memorization"
	case DeadlineTurn:
		return "turn"
	case DeadlineChoice:
		return "choice"
	}
	return "none"
}

// PowerFlags records which rank powers a seat has spent this table lifetime.
type PowerFlags struct {
	Jack  bool `json:"J"`
	Queen bool `json:"Q"`
	King  bool `json:"K"`
}

func (p PowerFlags) Used(r Rank) bool {
	switch r {
	case RankJack:
		return p.Jack
	case RankQueen:
		return p.Queen
	case RankKing:
		return p.King
	}
	return false
}

func (p *PowerFlags) mark(r Rank) {
	switch r {
	case RankJack:
		p.Jack = true
	case RankQueen:
		p.Queen = true
	case RankKing:
		p.King = true
	}
}

// Reveal is a time-boxed private peek granted by a J or Q power.
type Reveal struct {
	CardID  string    `json:"cardId"`
	OwnerID string    `json:"ownerId"`
	Until   time.Time `json:"until"`
}

// Seat is a player's slot at a table.
type Seat struct {
	PlayerID         string     `json:"playerId"`
	DisplayName      string     `json:"displayName"`
	Position         int        `json:"position"`
	Hand             []Card     `json:"hand"`
	Score            int        `json:"score"`
	Penalty          int        `json:"penalty"`
	Ready            bool       `json:"ready"`
	IsHost           bool       `json:"isHost"`
	IsEliminated     bool       `json:"isEliminated"`
	HasActedThisTurn bool       `json:"hasActedThisTurn"`
	PowersUsed       PowerFlags `json:"powersUsed"`
	Reveals          []Reveal   `json:"reveals,omitempty"`
}

// handIndex returns the slot holding cardID, or -1.
func (s *Seat) handIndex(cardID string) int {
	for i := range s.Hand {
		if s.Hand[i].ID == cardID {
			return i
		}
	}
	return -1
}

// PendingDraw is the single drawn-but-undecided card of the current player.
type PendingDraw struct {
	PlayerID    string `json:"playerId"`
	Card        Card   `json:"card"`
	FromDiscard bool   `json:"fromDiscard"`
}

// ActionLogEntry is an append-only audit record. Never read for gameplay.
type ActionLogEntry struct {
	Seq       int            `json:"seq"`
	PlayerID  string         `json:"playerId,omitempty"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
