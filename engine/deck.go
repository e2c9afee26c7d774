package engine

import (
	"fmt"
	"math/rand/v2"
)

// DeckScheme selects the joker composition of a table's deck. A table uses
// exactly one scheme for its lifetime.
type DeckScheme string

const (
	// SchemeStandard is 52 ranked cards plus 2 plain jokers.
	SchemeStandard DeckScheme = "standard"
	// SchemeCompat is 52 ranked cards plus 6 jokers, 3 red and 3 black.
	SchemeCompat DeckScheme = "compat"
)

func (s DeckScheme) jokers() ([]JokerKind, error) {
	switch s {
	case SchemeStandard, "":
		return []JokerKind{JokerPlain, JokerPlain}, nil
	case SchemeCompat:
		return []JokerKind{JokerRed, JokerRed, JokerRed, JokerBlack, JokerBlack, JokerBlack}, nil
	}
	return nil, newError(KindInvalidArgument, "unknown deck scheme %q", s)
}

// DeckSize returns the total card count for the scheme.
func (s DeckScheme) DeckSize() int {
	kinds, err := s.jokers()
	if err != nil {
		return 0
	}
	return 52 + len(kinds)
}

// Rand is the randomness the engine consumes. *rand.Rand satisfies it;
// tests inject scripted sources.
type Rand interface {
	IntN(n int) int
}

// NewRand returns a seeded PCG source.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// randomRand returns a source seeded from the runtime's random state.
func randomRand() Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewDeck builds an unshuffled deck for the scheme: four of each rank A..K,
// then the scheme's jokers. Card ids are c01, c02, ... in build order; a
// table renumbers them after shuffling.
func NewDeck(scheme DeckScheme) ([]Card, error) {
	kinds, err := scheme.jokers()
	if err != nil {
		return nil, err
	}
	return buildDeck(kinds), nil
}

// NewDeckWithJokers builds 52 ranked cards plus jokerCount plain jokers.
func NewDeckWithJokers(jokerCount int) []Card {
	kinds := make([]JokerKind, jokerCount)
	for i := range kinds {
		kinds[i] = JokerPlain
	}
	return buildDeck(kinds)
}

func buildDeck(jokers []JokerKind) []Card {
	deck := make([]Card, 0, 52+len(jokers))
	for copyN := 0; copyN < 4; copyN++ {
		for r := RankAce; r <= RankKing; r++ {
			deck = append(deck, Card{Rank: r})
		}
	}
	for _, k := range jokers {
		deck = append(deck, Card{Rank: RankJoker, Joker: k})
	}
	numberCards(deck)
	return deck
}

// numberCards sets ids by position. Called on a shuffled deck, an id tells
// nothing about the card's rank.
func numberCards(deck []Card) {
	for i := range deck {
		deck[i].ID = fmt.Sprintf("c%02d", i+1)
	}
}

// Shuffle permutes deck in place with Fisher-Yates.
func Shuffle(deck []Card, rng Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// Deal hands cardsPerPlayer cards to each seat round-robin in seat order,
// starting from the front of deck. The first cardsPerPlayer/2 slots of every
// hand are dealt face-up to their owner; the rest are hidden. The undealt
// remainder is returned as the draw pile, top card last.
func Deal(deck []Card, seats []*Seat, cardsPerPlayer int) ([]Card, error) {
	need := len(seats) * cardsPerPlayer
	if need > len(deck) {
		return nil, newError(KindInvalidArgument, "deck of %d cannot deal %d cards to %d seats", len(deck), cardsPerPlayer, len(seats))
	}
	visible := cardsPerPlayer / 2
	for _, s := range seats {
		s.Hand = make([]Card, 0, cardsPerPlayer)
	}
	idx := 0
	for slot := 0; slot < cardsPerPlayer; slot++ {
		for _, s := range seats {
			c := deck[idx]
			idx++
			c.Visible = slot < visible
			c.Discarded = false
			s.Hand = append(s.Hand, c)
		}
	}
	pile := make([]Card, len(deck)-idx)
	copy(pile, deck[idx:])
	for i := range pile {
		pile[i].Visible = false
		pile[i].Discarded = false
	}
	return pile, nil
}
