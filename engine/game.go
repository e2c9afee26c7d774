// Package engine implements the table state machine and card engine for
// Showtime, a turn-based memory and bluffing card game.
//
// A Table is a plain value owned by exactly one caller at a time. The engine
// performs no locking and starts no goroutines; every exported mutator either
// returns an *Error and leaves the table untouched, or applies the whole
// action. Timers, broadcast and persistence live in internal/game.
package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// Table is the complete state of one game instance.
type Table struct {
	ID       string   `json:"id"`
	Code     string   `json:"code"`
	HostID   string   `json:"hostId"`
	Settings Settings `json:"settings"`
	Phase    Phase    `json:"phase"`
	Seats    []*Seat  `json:"seats"`

	// CurrentSeat indexes Seats and is updated together with CurrentPlayerID;
	// -1 outside of play.
	CurrentSeat     int    `json:"currentSeat"`
	CurrentPlayerID string `json:"currentPlayerId,omitempty"`
	TurnIndex       int    `json:"turnIndex"`

	DrawPile    []Card       `json:"drawPile"`
	DiscardPile []Card       `json:"discardPile"`
	Pending     *PendingDraw `json:"pending,omitempty"`
	TotalCards  int          `json:"totalCards"`

	WinnerID     string `json:"winnerId,omitempty"`
	CallerID     string `json:"callerId,omitempty"`
	NextPosition int    `json:"nextPosition"`

	Log       []ActionLogEntry `json:"log"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`

	rng Rand
	now func() time.Time
}

// Option customizes a Table's collaborators.
type Option func(*Table)

// WithRand injects the randomness used for shuffling and bluff discovery.
func WithRand(r Rand) Option { return func(t *Table) { t.rng = r } }

// WithClock injects the time source used for reveals and timestamps.
func WithClock(now func() time.Time) Option { return func(t *Table) { t.now = now } }

// NewTable creates a table in the waiting phase. The host is recorded but not
// seated; the host joins like any other player.
func NewTable(id, code, hostID string, settings Settings, opts ...Option) (*Table, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		ID:          id,
		Code:        code,
		HostID:      hostID,
		Settings:    settings,
		Phase:       PhaseWaiting,
		CurrentSeat: -1,
		TotalCards:  settings.DeckScheme.DeckSize(),
	}
	t.apply(opts)
	t.CreatedAt = t.now()
	t.UpdatedAt = t.CreatedAt
	t.logAction(hostID, "table_created", map[string]any{
		"maxPlayers":     settings.MaxPlayers,
		"cardsPerPlayer": settings.CardsPerPlayer,
	})
	return t, nil
}

// RestoreTable decodes a table previously produced by json.Marshal.
func RestoreTable(data []byte, opts ...Option) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	t.apply(opts)
	// Rebuild the stored seat index from the id in case the document predates it.
	t.CurrentSeat = t.seatIndex(t.CurrentPlayerID)
	return &t, nil
}

func (t *Table) apply(opts []Option) {
	for _, o := range opts {
		o(t)
	}
	if t.rng == nil {
		t.rng = randomRand()
	}
	if t.now == nil {
		t.now = time.Now
	}
}

// Clone returns a deep copy that shares no mutable memory with t.
func (t *Table) Clone() *Table {
	c := *t
	c.Seats = make([]*Seat, len(t.Seats))
	for i, s := range t.Seats {
		sc := *s
		sc.Hand = append([]Card(nil), s.Hand...)
		sc.Reveals = append([]Reveal(nil), s.Reveals...)
		c.Seats[i] = &sc
	}
	c.DrawPile = append([]Card(nil), t.DrawPile...)
	c.DiscardPile = append([]Card(nil), t.DiscardPile...)
	if t.Pending != nil {
		p := *t.Pending
		c.Pending = &p
	}
	c.Log = append([]ActionLogEntry(nil), t.Log...)
	return &c
}

// Seat returns the seat of playerID, or nil.
func (t *Table) Seat(playerID string) *Seat {
	if i := t.seatIndex(playerID); i >= 0 {
		return t.Seats[i]
	}
	return nil
}

func (t *Table) seatIndex(playerID string) int {
	if playerID == "" {
		return -1
	}
	for i, s := range t.Seats {
		if s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// ActiveSeats returns the non-eliminated seats in seat order.
func (t *Table) ActiveSeats() []*Seat {
	out := make([]*Seat, 0, len(t.Seats))
	for _, s := range t.Seats {
		if !s.IsEliminated {
			out = append(out, s)
		}
	}
	return out
}

// ActiveDeadline reports which countdown the current state needs.
func (t *Table) ActiveDeadline() DeadlineKind {
	switch t.Phase {
	case PhaseExploration:
		return DeadlineMemorization
	case PhasePlaying:
		// Without a choice limit a pending draw stays under the turn countdown,
		// so a drawer cannot hold the table indefinitely.
		if t.Pending != nil && (t.Settings.ChoiceSeconds > 0 || t.Settings.TurnSeconds == 0) {
			return DeadlineChoice
		}
		return DeadlineTurn
	}
	return DeadlineNone
}

func (t *Table) touch() { t.UpdatedAt = t.now() }

// logAction appends an audit entry.
func (t *Table) logAction(playerID, actionType string, payload map[string]any) {
	t.Log = append(t.Log, ActionLogEntry{
		Seq:       len(t.Log) + 1,
		PlayerID:  playerID,
		Type:      actionType,
		Payload:   payload,
		Timestamp: t.now(),
	})
}

// ---------------------------------------------------------------------------
// Seating
// ---------------------------------------------------------------------------

// Join seats a player at the next position. Positions are never reused.
func (t *Table) Join(playerID, displayName string) (*Seat, error) {
	if t.Phase != PhaseWaiting {
		return nil, newError(KindInvalidPhase, "cannot join a table in phase %s", t.Phase)
	}
	if playerID == "" {
		return nil, newError(KindInvalidArgument, "player id is required")
	}
	if t.Seat(playerID) != nil {
		return nil, newError(KindAlreadySeated, "player %s is already seated", playerID)
	}
	if len(t.Seats) >= t.Settings.MaxPlayers {
		return nil, newError(KindTableFull, "table is full (%d/%d)", len(t.Seats), t.Settings.MaxPlayers)
	}
	s := &Seat{
		PlayerID:    playerID,
		DisplayName: displayName,
		Position:    t.NextPosition,
		IsHost:      playerID == t.HostID,
	}
	t.NextPosition++
	t.Seats = append(t.Seats, s)
	t.ensureHost()
	t.logAction(playerID, "join", map[string]any{"position": s.Position})
	t.touch()
	return s, nil
}

// Leave removes a waiting player. It reports whether the table is now empty.
// If the host leaves, the seat with the lowest position becomes host.
func (t *Table) Leave(playerID string) (bool, error) {
	if t.Phase != PhaseWaiting {
		return false, newError(KindInvalidPhase, "cannot leave a table in phase %s", t.Phase)
	}
	i := t.seatIndex(playerID)
	if i < 0 {
		return false, newError(KindNotFound, "player %s is not seated", playerID)
	}
	t.Seats = append(t.Seats[:i], t.Seats[i+1:]...)
	t.logAction(playerID, "leave", nil)
	if playerID == t.HostID {
		t.HostID = ""
	}
	t.ensureHost()
	t.touch()
	return len(t.Seats) == 0, nil
}

// ensureHost hands the host role to the lowest position when the recorded
// host is no longer seated, and keeps the IsHost flags in step with HostID.
func (t *Table) ensureHost() {
	if t.HostID == "" && len(t.Seats) > 0 {
		t.HostID = t.Seats[0].PlayerID
		t.logAction(t.HostID, "host_assigned", nil)
	}
	for _, s := range t.Seats {
		s.IsHost = s.PlayerID == t.HostID
	}
}

// SetReady toggles a seat's ready flag. When AutoStart is on and the table is
// full and everyone is ready, the table starts; started reports that.
func (t *Table) SetReady(playerID string, ready bool) (started bool, err error) {
	if t.Phase != PhaseWaiting {
		return false, newError(KindInvalidPhase, "cannot change ready state in phase %s", t.Phase)
	}
	s := t.Seat(playerID)
	if s == nil {
		return false, newError(KindNotFound, "player %s is not seated", playerID)
	}
	s.Ready = ready
	t.logAction(playerID, "ready", map[string]any{"ready": ready})
	t.touch()
	if t.Settings.AutoStart && len(t.Seats) == t.Settings.MaxPlayers && t.allReady() {
		if err := t.start(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (t *Table) allReady() bool {
	for _, s := range t.Seats {
		if !s.IsEliminated && !s.Ready {
			return false
		}
	}
	return true
}

// Start moves waiting → exploration on the host's request.
func (t *Table) Start(callerID string) error {
	if t.Phase != PhaseWaiting {
		return newError(KindInvalidPhase, "table already started (phase %s)", t.Phase)
	}
	if callerID != t.HostID {
		return newError(KindForbidden, "only the host can start the table")
	}
	if len(t.Seats) < 2 {
		return newError(KindInvalidPhase, "need at least 2 seated players, have %d", len(t.Seats))
	}
	if !t.allReady() {
		return newError(KindInvalidPhase, "not every player is ready")
	}
	return t.start()
}

// start shuffles, deals and opens the exploration phase. Validation that can
// fail happens before any field is written.
func (t *Table) start() error {
	deck, err := NewDeck(t.Settings.DeckScheme)
	if err != nil {
		return err
	}
	Shuffle(deck, t.rng)
	numberCards(deck)
	// Deal into scratch seats so a failed deal leaves hands untouched.
	scratch := make([]*Seat, len(t.Seats))
	for i := range t.Seats {
		scratch[i] = &Seat{}
	}
	pile, err := Deal(deck, scratch, t.Settings.CardsPerPlayer)
	if err != nil {
		return err
	}
	for i, s := range t.Seats {
		s.Hand = scratch[i].Hand
		s.Penalty = 0
		s.PowersUsed = PowerFlags{}
		s.Reveals = nil
		s.HasActedThisTurn = false
	}
	t.DrawPile = pile
	t.DiscardPile = nil
	t.TotalCards = len(deck)
	if t.Settings.FlipStarterDiscard && len(t.DrawPile) > 1 {
		top := t.popDraw()
		t.pushDiscard(top)
	}
	for _, s := range t.Seats {
		t.recordScore(s)
	}
	t.Phase = PhaseExploration
	t.setCurrent(-1)
	t.logAction("", "start", map[string]any{"seats": len(t.Seats), "deckSize": len(deck)})
	t.touch()
	return nil
}

// BeginPlay moves exploration → playing. It is driven only by the
// memorization deadline. Hands turn face-down; the first turn goes to the
// configured starting seat (or the next active seat after it).
func (t *Table) BeginPlay() error {
	if t.Phase != PhaseExploration {
		return newError(KindInvalidPhase, "memorization is not running (phase %s)", t.Phase)
	}
	for _, s := range t.Seats {
		for i := range s.Hand {
			s.Hand[i].Visible = false
		}
	}
	t.Phase = PhasePlaying
	start := t.Settings.StartingSeat
	if start >= len(t.Seats) {
		start = 0
	}
	idx := t.nextActiveFrom(start, true)
	if idx < 0 {
		t.finish(t.lowestScoring(""))
		return nil
	}
	t.setCurrent(idx)
	t.TurnIndex++
	t.logAction(t.CurrentPlayerID, "play_begins", nil)
	t.touch()
	return nil
}

func (t *Table) setCurrent(idx int) {
	t.CurrentSeat = idx
	if idx < 0 {
		t.CurrentPlayerID = ""
		return
	}
	t.CurrentPlayerID = t.Seats[idx].PlayerID
}

// nextActiveFrom scans seats starting at from (inclusive when inclusive is
// true) and returns the first non-eliminated index, or -1.
func (t *Table) nextActiveFrom(from int, inclusive bool) int {
	n := len(t.Seats)
	if n == 0 {
		return -1
	}
	offset := 1
	if inclusive {
		offset = 0
	}
	for k := 0; k < n; k++ {
		i := (from + offset + k) % n
		if !t.Seats[i].IsEliminated {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Pile helpers
// ---------------------------------------------------------------------------

func (t *Table) popDraw() Card {
	c := t.DrawPile[len(t.DrawPile)-1]
	t.DrawPile = t.DrawPile[:len(t.DrawPile)-1]
	return c
}

func (t *Table) pushDiscard(c Card) {
	c.Visible = true
	c.Discarded = true
	t.DiscardPile = append(t.DiscardPile, c)
}

// DiscardTop returns the top of the discard pile.
func (t *Table) DiscardTop() (Card, bool) {
	if len(t.DiscardPile) == 0 {
		return Card{}, false
	}
	return t.DiscardPile[len(t.DiscardPile)-1], true
}

// ---------------------------------------------------------------------------
// Invariants
// ---------------------------------------------------------------------------

// CheckInvariants verifies card conservation and the phase/current-player
// relationship. It is used by tests and by the service after restore.
func (t *Table) CheckInvariants() error {
	if t.Phase != PhaseWaiting {
		seen := make(map[string]string, t.TotalCards)
		count := 0
		add := func(where string, c Card) error {
			count++
			if prev, dup := seen[c.ID]; dup {
				return fmt.Errorf("card %s in both %s and %s", c.ID, prev, where)
			}
			seen[c.ID] = where
			return nil
		}
		for _, c := range t.DrawPile {
			if err := add("draw", c); err != nil {
				return err
			}
		}
		for _, c := range t.DiscardPile {
			if err := add("discard", c); err != nil {
				return err
			}
		}
		for _, s := range t.Seats {
			for _, c := range s.Hand {
				if err := add("hand:"+s.PlayerID, c); err != nil {
					return err
				}
			}
		}
		if t.Pending != nil {
			if err := add("pending", t.Pending.Card); err != nil {
				return err
			}
		}
		if count != t.TotalCards {
			return fmt.Errorf("card count %d, want %d", count, t.TotalCards)
		}
	}
	if len(t.Seats) > t.Settings.MaxPlayers {
		return fmt.Errorf("%d seats exceed max %d", len(t.Seats), t.Settings.MaxPlayers)
	}
	switch t.Phase {
	case PhasePlaying:
		if t.CurrentSeat < 0 || t.CurrentSeat >= len(t.Seats) {
			return fmt.Errorf("playing without a current seat")
		}
		cur := t.Seats[t.CurrentSeat]
		if cur.PlayerID != t.CurrentPlayerID {
			return fmt.Errorf("current seat %d holds %s, currentPlayerId is %s", t.CurrentSeat, cur.PlayerID, t.CurrentPlayerID)
		}
		if cur.IsEliminated {
			return fmt.Errorf("current player %s is eliminated", cur.PlayerID)
		}
	case PhaseWaiting, PhaseFinished:
		if t.CurrentPlayerID != "" {
			return fmt.Errorf("phase %s has current player %s", t.Phase, t.CurrentPlayerID)
		}
	}
	if t.Pending != nil && t.Pending.PlayerID != t.CurrentPlayerID {
		return fmt.Errorf("pending draw belongs to %s, current is %s", t.Pending.PlayerID, t.CurrentPlayerID)
	}
	return nil
}
