package database

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jason-s-yu/showtime/internal/models"
	log "github.com/sirupsen/logrus"
)

// SaverOptions tunes the retry policy.
type SaverOptions struct {
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
	// MaxElapsed bounds one save attempt including retries. A save that
	// still fails is kept and retried on the next sweep.
	MaxElapsed time.Duration
	// Sweep is how often failed saves are retried when nothing new arrives.
	Sweep time.Duration
}

func (o *SaverOptions) withDefaults() {
	if o.InitialInterval <= 0 {
		o.InitialInterval = 100 * time.Millisecond
	}
	if o.MaxElapsed <= 0 {
		o.MaxElapsed = 10 * time.Second
	}
	if o.Sweep <= 0 {
		o.Sweep = 5 * time.Second
	}
}

// Saver writes table documents in the background. Enqueue never blocks on
// the database; a newer document for the same table replaces an unsaved
// older one, carrying its audit records forward.
type Saver struct {
	w    Writer
	opts SaverOptions

	mu       sync.Mutex
	pending  map[string]models.TableDocument
	deletes  map[string]bool
	removed  map[string]bool // tables gone for good; late documents are dropped
	wake     chan struct{}
	inFlight sync.Mutex // held while a sweep writes
}

// NewSaver returns a saver writing through w.
func NewSaver(w Writer, opts SaverOptions) *Saver {
	opts.withDefaults()
	return &Saver{
		w:       w,
		opts:    opts,
		pending: make(map[string]models.TableDocument),
		deletes: make(map[string]bool),
		removed: make(map[string]bool),
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue schedules doc for saving.
func (s *Saver) Enqueue(doc models.TableDocument) {
	s.mu.Lock()
	if s.removed[doc.ID] {
		s.mu.Unlock()
		return
	}
	s.mergeLocked(doc)
	s.mu.Unlock()
	s.signal()
}

// mergeLocked keeps the newest document for its table and the union of
// audit records in seq order.
func (s *Saver) mergeLocked(doc models.TableDocument) {
	prev, ok := s.pending[doc.ID]
	if !ok {
		s.pending[doc.ID] = doc
		return
	}
	older, newer := prev, doc
	if prev.Version > doc.Version {
		older, newer = doc, prev
	}
	actions := make([]models.ActionRecord, 0, len(older.Actions)+len(newer.Actions))
	actions = append(actions, older.Actions...)
	actions = append(actions, newer.Actions...)
	newer.Actions = actions
	s.pending[doc.ID] = newer
}

// Remove drops any unsaved document for tableID and deletes it from storage.
func (s *Saver) Remove(tableID string) {
	s.mu.Lock()
	delete(s.pending, tableID)
	s.deletes[tableID] = true
	s.removed[tableID] = true
	s.mu.Unlock()
	s.signal()
}

func (s *Saver) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending reports how many tables have unsaved work.
func (s *Saver) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) + len(s.deletes)
}

// Run writes queued work until ctx is cancelled, then makes one final pass
// with a short deadline.
func (s *Saver) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), s.opts.MaxElapsed)
			defer cancel()
			if err := s.Flush(final); err != nil {
				log.WithError(err).WithField("unsaved", s.Pending()).Error("final save pass incomplete")
			}
			return nil
		case <-s.wake:
		case <-ticker.C:
		}
		_ = s.Flush(ctx)
	}
}

// Flush writes everything queued so far. Work that still fails after
// retries is requeued and the last error returned.
func (s *Saver) Flush(ctx context.Context) error {
	s.inFlight.Lock()
	defer s.inFlight.Unlock()

	s.mu.Lock()
	docs := s.pending
	dels := s.deletes
	s.pending = make(map[string]models.TableDocument)
	s.deletes = make(map[string]bool)
	s.mu.Unlock()

	var lastErr error
	for id := range dels {
		err := s.retry(ctx, func(ctx context.Context) error { return s.w.DeleteTable(ctx, id) })
		if err != nil {
			lastErr = err
			log.WithError(err).WithField("table", id).Warn("delete failed, will retry")
			s.mu.Lock()
			s.deletes[id] = true
			s.mu.Unlock()
		}
	}
	for id, doc := range docs {
		err := s.retry(ctx, func(ctx context.Context) error {
			if err := s.w.SaveTable(ctx, doc); err != nil {
				return err
			}
			return s.w.AppendActions(ctx, doc.Actions)
		})
		if err != nil {
			lastErr = err
			log.WithError(err).WithFields(log.Fields{"table": id, "version": doc.Version}).Warn("save failed, will retry")
			s.mu.Lock()
			if !s.removed[id] {
				s.mergeLocked(doc)
			}
			s.mu.Unlock()
		}
	}
	return lastErr
}

func (s *Saver) retry(ctx context.Context, op func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialInterval
	b.MaxElapsedTime = s.opts.MaxElapsed
	return backoff.Retry(func() error {
		if err := op(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))
}
