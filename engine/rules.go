package engine

import "time"

// CompareRule selects how a call's comparison pass picks the winner.
type CompareRule string

const (
	// CompareLowest: lowest score among non-eliminated seats wins; the caller
	// wins ties.
	CompareLowest CompareRule = "lowest"
	// CompareCallerMustWin: the caller must be strictly lowest. Otherwise the
	// caller takes FalseCallPenalty and the lowest other seat wins.
	CompareCallerMustWin CompareRule = "caller_must_win"
)

const (
	// BluffDiscoveryPercent is the fixed chance a Joker bluff is discovered.
	BluffDiscoveryPercent = 20
	// BluffPenalty is added to a seat's score when its bluff is discovered.
	BluffPenalty = 10
)

// Settings holds the per-table configuration chosen at creation.
type Settings struct {
	MaxPlayers           int           `json:"maxPlayers"`
	CardsPerPlayer       int           `json:"cardsPerPlayer"`
	DeckScheme           DeckScheme    `json:"deckScheme"`
	MemorizationSeconds  int           `json:"memorizationSeconds"`
	TurnSeconds          int           `json:"turnSeconds"`   // 0 = no turn limit
	ChoiceSeconds        int           `json:"choiceSeconds"` // 0 = no choice limit
	RevealDuration       time.Duration `json:"revealDuration"`
	StartingSeat         int           `json:"startingSeat"`
	AllowDrawFromDiscard bool          `json:"allowDrawFromDiscard"`
	FlipStarterDiscard   bool          `json:"flipStarterDiscard"`
	AutoStart            bool          `json:"autoStart"`
	Compare              CompareRule   `json:"compare"`
	FalseCallPenalty     int           `json:"falseCallPenalty"`
}

// DefaultSettings returns the standard table configuration.
func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:           4,
		CardsPerPlayer:       4,
		DeckScheme:           SchemeStandard,
		MemorizationSeconds:  10,
		TurnSeconds:          30,
		ChoiceSeconds:        10,
		RevealDuration:       5 * time.Second,
		StartingSeat:         0,
		AllowDrawFromDiscard: true,
		FlipStarterDiscard:   true,
		AutoStart:            true,
		Compare:              CompareLowest,
		FalseCallPenalty:     10,
	}
}

// Validate checks the creation constraints.
func (s Settings) Validate() error {
	if s.MaxPlayers < 2 || s.MaxPlayers > 6 {
		return newError(KindInvalidArgument, "maxPlayers must be between 2 and 6, got %d", s.MaxPlayers)
	}
	switch s.CardsPerPlayer {
	case 4, 6, 8, 10:
	default:
		return newError(KindInvalidArgument, "cardsPerPlayer must be one of 4, 6, 8, 10, got %d", s.CardsPerPlayer)
	}
	if _, err := s.DeckScheme.jokers(); err != nil {
		return err
	}
	// The deck must cover every hand plus at least one card to draw.
	if s.MaxPlayers*s.CardsPerPlayer >= s.DeckScheme.DeckSize() {
		return newError(KindInvalidArgument, "%d players x %d cards exceeds the %s deck", s.MaxPlayers, s.CardsPerPlayer, s.DeckScheme)
	}
	switch s.Compare {
	case CompareLowest, CompareCallerMustWin:
	default:
		return newError(KindInvalidArgument, "unknown compare rule %q", s.Compare)
	}
	if s.MemorizationSeconds < 0 || s.TurnSeconds < 0 || s.ChoiceSeconds < 0 {
		return newError(KindInvalidArgument, "timer durations must not be negative")
	}
	if s.StartingSeat < 0 || s.StartingSeat >= s.MaxPlayers {
		return newError(KindInvalidArgument, "startingSeat %d out of range", s.StartingSeat)
	}
	return nil
}
