// internal/game/manager.go
package game

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/showtime/engine"
	"github.com/jason-s-yu/showtime/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O or 1/I
)

// TableSource lists previously persisted tables.
type TableSource interface {
	ListTables(ctx context.Context) ([]models.TableDocument, error)
}

// Options configures a Manager. Every collaborator is optional.
type Options struct {
	Broadcaster Broadcaster
	Persister   Persister
	Publisher   ActionPublisher
	// TickInterval is the countdown granularity; one second when zero.
	TickInterval time.Duration
	// NewRand supplies each new table's randomness. Tests inject seeded sources.
	NewRand func() engine.Rand
	Clock   func() time.Time
}

// Manager is the table registry and the command surface over it. Commands on
// different tables run in parallel; commands on one table are serialized by
// that table's actor.
type Manager struct {
	opts Options

	mu     sync.RWMutex
	tables map[string]*Table
	codes  map[string]string // join code -> table id
}

// NewManager returns an empty registry.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:   opts,
		tables: make(map[string]*Table),
		codes:  make(map[string]string),
	}
}

func (m *Manager) deps() deps {
	return deps{broadcaster: m.opts.Broadcaster, persister: m.opts.Persister, publisher: m.opts.Publisher}
}

func (m *Manager) engineOptions() []engine.Option {
	var opts []engine.Option
	if m.opts.NewRand != nil {
		opts = append(opts, engine.WithRand(m.opts.NewRand()))
	}
	if m.opts.Clock != nil {
		opts = append(opts, engine.WithClock(m.opts.Clock))
	}
	return opts
}

// Create registers a new waiting table hosted by host. The host is not
// seated until they join.
func (m *Manager) Create(host models.Identity, settings engine.Settings) (engine.Summary, error) {
	if host.ID == "" {
		return engine.Summary{}, invalidArg("host id is required")
	}
	if err := settings.Validate(); err != nil {
		return engine.Summary{}, err
	}

	m.mu.Lock()
	code, err := m.uniqueCodeLocked()
	if err != nil {
		m.mu.Unlock()
		return engine.Summary{}, err
	}
	state, err := engine.NewTable(uuid.NewString(), code, host.ID, settings, m.engineOptions()...)
	if err != nil {
		m.mu.Unlock()
		return engine.Summary{}, err
	}
	t := newTable(state, m.deps(), m.opts.TickInterval)
	// Hold back the creation entry so the first mutation publishes it.
	t.logged = 0
	m.tables[state.ID] = t
	m.codes[code] = state.ID
	m.mu.Unlock()

	log.WithFields(log.Fields{"table": state.ID, "code": code, "host": host.ID}).Info("table created")

	// Persist the fresh table through the normal path.
	if err := t.mutate(func(*engine.Table) ([]outbound, error) { return nil, nil }); err != nil {
		return engine.Summary{}, err
	}
	return m.Summary(state.ID)
}

// uniqueCodeLocked draws join codes until one is free. Assumes m.mu is held.
func (m *Manager) uniqueCodeLocked() (string, error) {
	for range 16 {
		code, err := generateCode()
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		if _, taken := m.codes[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate join code: no free code after 16 attempts")
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

func (m *Manager) table(id string) (*Table, error) {
	m.mu.RLock()
	t, ok := m.tables[id]
	m.mu.RUnlock()
	if !ok {
		return nil, &engine.Error{Kind: engine.KindNotFound, Message: "table " + id + " not found"}
	}
	return t, nil
}

// Lookup resolves a join code (case-insensitive) to a table id.
func (m *Manager) Lookup(code string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", &engine.Error{Kind: engine.KindNotFound, Message: "no table with code " + code}
	}
	return id, nil
}

// unregister drops a retired table from the registry and storage.
func (m *Manager) unregister(t *Table, code string) {
	m.mu.Lock()
	if cur, ok := m.tables[t.ID]; ok && cur == t {
		delete(m.tables, t.ID)
		delete(m.codes, code)
	}
	m.mu.Unlock()
	if m.opts.Persister != nil {
		m.opts.Persister.Remove(t.ID)
	}
}

// Join seats who at the table and returns their projection.
func (m *Manager) Join(tableID string, who models.Identity) (engine.TableView, error) {
	t, err := m.table(tableID)
	if err != nil {
		return engine.TableView{}, err
	}
	var view engine.TableView
	err = t.mutate(func(s *engine.Table) ([]outbound, error) {
		if _, err := s.Join(who.ID, who.DisplayName); err != nil {
			return nil, err
		}
		view = s.View(who.ID)
		return nil, nil
	})
	return view, err
}

// Leave unseats a waiting player. A table left empty is deleted.
func (m *Manager) Leave(tableID, playerID string) error {
	t, err := m.table(tableID)
	if err != nil {
		return err
	}
	var emptied bool
	var code string
	err = t.mutate(func(s *engine.Table) ([]outbound, error) {
		empty, err := s.Leave(playerID)
		if err != nil {
			return nil, err
		}
		if empty {
			emptied, code = true, s.Code
			return []outbound{public(t.retireLocked())}, nil
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	if emptied {
		m.unregister(t, code)
		log.WithField("table", tableID).Info("empty table removed")
	}
	return nil
}

// SetReady toggles readiness; the table may auto-start as a result.
func (m *Manager) SetReady(tableID, playerID string, ready bool) error {
	t, err := m.table(tableID)
	if err != nil {
		return err
	}
	return t.mutate(func(s *engine.Table) ([]outbound, error) {
		_, err := s.SetReady(playerID, ready)
		return nil, err
	})
}

// Start begins the exploration phase on the host's request.
func (m *Manager) Start(tableID, callerID string) error {
	t, err := m.table(tableID)
	if err != nil {
		return err
	}
	return t.mutate(func(s *engine.Table) ([]outbound, error) {
		return nil, s.Start(callerID)
	})
}

// Draw takes a card into the caller's pending draw. The returned card is
// private to the caller.
func (m *Manager) Draw(tableID, playerID string, fromDiscard bool) (engine.Card, error) {
	t, err := m.table(tableID)
	if err != nil {
		return engine.Card{}, err
	}
	var card engine.Card
	err = t.mutate(func(s *engine.Table) ([]outbound, error) {
		c, err := s.DrawCard(playerID, fromDiscard)
		if err != nil {
			return nil, err
		}
		card = c
		return drawEvents(playerID, c, fromDiscard), nil
	})
	return card, err
}

// Resolve discards the pending draw or swaps it into a hand slot.
func (m *Manager) Resolve(tableID, playerID string, res engine.Resolution) error {
	t, err := m.table(tableID)
	if err != nil {
		return err
	}
	return t.mutate(func(s *engine.Table) ([]outbound, error) {
		if err := s.ResolveDraw(playerID, res); err != nil {
			return nil, err
		}
		// Either way the card that left play is now on top of the discard pile.
		top, _ := s.DiscardTop()
		return []outbound{public(discardEvent(playerID, top))}, nil
	})
}

// UsePower resolves a J/Q/K power, an integrate or a Joker. The result's
// Reveal, if any, is meant for the caller only.
func (m *Manager) UsePower(tableID, playerID string, req engine.PowerRequest) (engine.PowerResult, error) {
	t, err := m.table(tableID)
	if err != nil {
		return engine.PowerResult{}, err
	}
	var result engine.PowerResult
	err = t.mutate(func(s *engine.Table) ([]outbound, error) {
		res, err := s.UsePower(playerID, req)
		if err != nil {
			return nil, err
		}
		result = res
		return powerEvents(res), nil
	})
	return result, err
}

// EndTurn passes the turn, discarding any undecided draw.
func (m *Manager) EndTurn(tableID, playerID string) error {
	t, err := m.table(tableID)
	if err != nil {
		return err
	}
	return t.mutate(func(s *engine.Table) ([]outbound, error) {
		pending := s.Pending
		if err := s.EndTurn(playerID); err != nil {
			return nil, err
		}
		if pending != nil {
			return []outbound{public(discardEvent(playerID, pending.Card))}, nil
		}
		return nil, nil
	})
}

// Call ends the round with a comparison pass.
func (m *Manager) Call(tableID, playerID string) (engine.CallResult, error) {
	t, err := m.table(tableID)
	if err != nil {
		return engine.CallResult{}, err
	}
	var result engine.CallResult
	err = t.mutate(func(s *engine.Table) ([]outbound, error) {
		res, err := s.Call(playerID)
		if err != nil {
			return nil, err
		}
		result = res
		return []outbound{public(callEvent(res))}, nil
	})
	return result, err
}

// Delete removes a table. Only the host or an admin may delete.
func (m *Manager) Delete(tableID string, caller models.Identity) error {
	t, err := m.table(tableID)
	if err != nil {
		return err
	}
	var code string
	err = t.mutate(func(s *engine.Table) ([]outbound, error) {
		if caller.ID != s.HostID && !caller.Admin {
			return nil, &engine.Error{Kind: engine.KindForbidden, Message: "only the host can delete the table"}
		}
		code = s.Code
		return []outbound{public(t.retireLocked())}, nil
	})
	if err != nil {
		return err
	}
	m.unregister(t, code)
	log.WithFields(log.Fields{"table": tableID, "by": caller.ID}).Info("table deleted")
	return nil
}

// View returns viewerID's projection of the table. An empty viewer sees
// only public information.
func (m *Manager) View(tableID, viewerID string) (engine.TableView, error) {
	t, err := m.table(tableID)
	if err != nil {
		return engine.TableView{}, err
	}
	var view engine.TableView
	err = t.read(func(s *engine.Table) { view = s.View(viewerID) })
	return view, err
}

// Sync returns a full state event for a subscriber that just connected.
func (m *Manager) Sync(tableID, viewerID string) (Event, error) {
	t, err := m.table(tableID)
	if err != nil {
		return Event{}, err
	}
	return t.SyncEvent(viewerID)
}

// Summary returns the lobby entry for one table.
func (m *Manager) Summary(tableID string) (engine.Summary, error) {
	t, err := m.table(tableID)
	if err != nil {
		return engine.Summary{}, err
	}
	var sum engine.Summary
	err = t.read(func(s *engine.Table) { sum = s.Summary() })
	return sum, err
}

// List returns every live table, oldest first.
func (m *Manager) List() []engine.Summary {
	m.mu.RLock()
	tables := make([]*Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	m.mu.RUnlock()

	out := make([]engine.Summary, 0, len(tables))
	for _, t := range tables {
		// A table deleted since the snapshot is skipped.
		_ = t.read(func(s *engine.Table) { out = append(out, s.Summary()) })
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Restore loads persisted tables into the registry and re-arms their
// countdowns. Finished tables are skipped. It returns the number restored.
func (m *Manager) Restore(ctx context.Context, src TableSource) (int, error) {
	docs, err := src.ListTables(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tables: %w", err)
	}
	restored := make([]*Table, 0, len(docs))
	for _, doc := range docs {
		if engine.Phase(doc.Phase) == engine.PhaseFinished {
			continue
		}
		state, err := engine.RestoreTable(doc.State, m.engineOptions()...)
		if err != nil {
			log.WithError(err).WithField("table", doc.ID).Warn("skipping unreadable table")
			continue
		}
		m.mu.Lock()
		if _, dup := m.tables[state.ID]; dup {
			m.mu.Unlock()
			continue
		}
		t := newTable(state, m.deps(), m.opts.TickInterval)
		m.tables[state.ID] = t
		m.codes[state.Code] = state.ID
		m.mu.Unlock()
		t.resume(doc.Version)
		restored = append(restored, t)
	}
	log.WithField("count", len(restored)).Info("tables restored")
	return len(restored), nil
}

// Close stops every table's countdown. The registry stays readable.
func (m *Manager) Close() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tables {
		t.shutdown()
	}
}
