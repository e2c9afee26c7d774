package engine

import "time"

// CardView is a card as one viewer may see it. Unknown cards carry only
// their slot.
type CardView struct {
	Slot    int    `json:"slot"`
	ID      string `json:"id,omitempty"`
	Rank    Rank   `json:"rank,omitempty"`
	Ordinal *int   `json:"ordinal,omitempty"`
	Known   bool   `json:"known"`
}

// SeatView is a seat projected for one viewer.
type SeatView struct {
	PlayerID     string     `json:"playerId"`
	DisplayName  string     `json:"displayName"`
	Position     int        `json:"position"`
	Ready        bool       `json:"ready"`
	IsHost       bool       `json:"isHost"`
	IsEliminated bool       `json:"isEliminated"`
	Penalty      int        `json:"penalty"`
	Score        *int       `json:"score,omitempty"`
	PowersUsed   PowerFlags `json:"powersUsed"`
	HandSize     int        `json:"handSize"`
	Hand         []CardView `json:"hand"`
}

// PendingView describes the pending draw. Rank is set for its owner only.
type PendingView struct {
	PlayerID    string    `json:"playerId"`
	FromDiscard bool      `json:"fromDiscard"`
	Card        *CardView `json:"card,omitempty"`
}

// TableView is the per-viewer projection of a table.
type TableView struct {
	ID              string       `json:"id"`
	Code            string       `json:"code"`
	HostID          string       `json:"hostId"`
	ViewerID        string       `json:"viewerId,omitempty"`
	Phase           Phase        `json:"phase"`
	Settings        Settings     `json:"settings"`
	CurrentPlayerID string       `json:"currentPlayerId,omitempty"`
	TurnIndex       int          `json:"turnIndex"`
	Deadline        string       `json:"deadline"`
	DrawPileCount   int          `json:"drawPileCount"`
	DiscardCount    int          `json:"discardCount"`
	DiscardTop      *CardView    `json:"discardTop,omitempty"`
	Pending         *PendingView `json:"pending,omitempty"`
	Seats           []SeatView   `json:"seats"`
	WinnerID        string       `json:"winnerId,omitempty"`
	CallerID        string       `json:"callerId,omitempty"`
	LegalActions    []ActionKind `json:"legalActions,omitempty"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Summary is the lobby listing entry for a table.
type Summary struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	HostID     string    `json:"hostId"`
	Phase      Phase     `json:"phase"`
	Seated     int       `json:"seated"`
	MaxPlayers int       `json:"maxPlayers"`
	Players    []string  `json:"players"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Summary returns the public lobby entry.
func (t *Table) Summary() Summary {
	names := make([]string, len(t.Seats))
	for i, s := range t.Seats {
		names[i] = s.DisplayName
	}
	return Summary{
		ID:         t.ID,
		Code:       t.Code,
		HostID:     t.HostID,
		Phase:      t.Phase,
		Seated:     len(t.Seats),
		MaxPlayers: t.Settings.MaxPlayers,
		Players:    names,
		CreatedAt:  t.CreatedAt,
	}
}

// View projects the table for viewerID. An empty viewerID is a spectator
// and sees only public information.
func (t *Table) View(viewerID string) TableView {
	now := t.now()
	open := t.Phase == PhaseShowtime || t.Phase == PhaseFinished

	revealed := map[string]bool{}
	if v := t.Seat(viewerID); v != nil {
		for _, r := range v.Reveals {
			if now.Before(r.Until) {
				revealed[r.CardID] = true
			}
		}
	}

	tv := TableView{
		ID:              t.ID,
		Code:            t.Code,
		HostID:          t.HostID,
		ViewerID:        viewerID,
		Phase:           t.Phase,
		Settings:        t.Settings,
		CurrentPlayerID: t.CurrentPlayerID,
		TurnIndex:       t.TurnIndex,
		Deadline:        t.ActiveDeadline().String(),
		DrawPileCount:   len(t.DrawPile),
		DiscardCount:    len(t.DiscardPile),
		WinnerID:        t.WinnerID,
		CallerID:        t.CallerID,
		LegalActions:    t.LegalActions(viewerID),
		UpdatedAt:       t.UpdatedAt,
		Seats:           make([]SeatView, 0, len(t.Seats)),
	}
	if top, ok := t.DiscardTop(); ok {
		cv := knownCard(top, len(t.DiscardPile)-1)
		tv.DiscardTop = &cv
	}
	if t.Pending != nil {
		pv := &PendingView{PlayerID: t.Pending.PlayerID, FromDiscard: t.Pending.FromDiscard}
		// A card taken from the discard pile was public already.
		if t.Pending.PlayerID == viewerID || t.Pending.FromDiscard {
			cv := knownCard(t.Pending.Card, -1)
			pv.Card = &cv
		}
		tv.Pending = pv
	}

	for _, s := range t.Seats {
		sv := SeatView{
			PlayerID:     s.PlayerID,
			DisplayName:  s.DisplayName,
			Position:     s.Position,
			Ready:        s.Ready,
			IsHost:       s.IsHost,
			IsEliminated: s.IsEliminated,
			Penalty:      s.Penalty,
			PowersUsed:   s.PowersUsed,
			HandSize:     len(s.Hand),
			Hand:         make([]CardView, len(s.Hand)),
		}
		if open || s.IsEliminated {
			score := s.Score
			sv.Score = &score
		}
		own := s.PlayerID == viewerID
		for i, c := range s.Hand {
			if open || (own && c.Visible) || revealed[c.ID] {
				sv.Hand[i] = knownCard(c, i)
			} else {
				sv.Hand[i] = CardView{Slot: i}
			}
		}
		tv.Seats = append(tv.Seats, sv)
	}
	return tv
}

func knownCard(c Card, slot int) CardView {
	ord := OrdinalValue(c.Rank)
	return CardView{Slot: slot, ID: c.ID, Rank: c.Rank, Ordinal: &ord, Known: true}
}
