package vocab

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wordscape/wordscape/pkg/embedding"
	"github.com/wordscape/wordscape/pkg/session"
)

// PointResolver positions a word, falling back locally when the
// embedding service cannot. The bool reports fallback use.
type PointResolver interface {
	Resolve(ctx context.Context, word string) (embedding.Point, bool)
}

// Ingestor consumes finalized utterances and persists their words with
// resolved positions. It implements session.EventSink; ingestion runs
// on its own goroutine so a slow store or embedding service never
// stalls event processing.
type Ingestor struct {
	store    Store
	resolver PointResolver
	logger   *slog.Logger
	nowFn    func() time.Time
	timeout  time.Duration

	queue chan session.Utterance
	done  chan struct{}
	once  sync.Once
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithIngestLogger sets the ingestor logger.
func WithIngestLogger(logger *slog.Logger) IngestorOption {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// WithIngestNowFunc replaces the clock. For tests.
func WithIngestNowFunc(now func() time.Time) IngestorOption {
	return func(i *Ingestor) {
		i.nowFn = now
	}
}

// WithIngestTimeout bounds how long one utterance may take to ingest.
func WithIngestTimeout(d time.Duration) IngestorOption {
	return func(i *Ingestor) {
		i.timeout = d
	}
}

// WithQueueDepth sets the utterance queue depth. Utterances beyond the
// depth are dropped with a warning.
func WithQueueDepth(n int) IngestorOption {
	return func(i *Ingestor) {
		i.queue = make(chan session.Utterance, n)
	}
}

// NewIngestor creates and starts an ingestor.
func NewIngestor(store Store, resolver PointResolver, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		store:    store,
		resolver: resolver,
		logger:   slog.Default(),
		nowFn:    time.Now,
		timeout:  30 * time.Second,
		queue:    make(chan session.Utterance, 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	go i.run()
	return i
}

// UtteranceAdded implements session.EventSink.
func (i *Ingestor) UtteranceAdded(u session.Utterance) {
	select {
	case i.queue <- u:
	default:
		i.logger.Warn("ingest queue full, dropping utterance", "id", u.ID, "words", len(u.Words))
	}
}

// SpeechStarted implements session.EventSink.
func (i *Ingestor) SpeechStarted() {}

// SpeechStopped implements session.EventSink.
func (i *Ingestor) SpeechStopped() {}

// Close drains the queue and stops the worker.
func (i *Ingestor) Close() error {
	i.once.Do(func() {
		close(i.queue)
	})
	<-i.done
	return nil
}

func (i *Ingestor) run() {
	defer close(i.done)
	for u := range i.queue {
		i.ingest(u)
	}
}

func (i *Ingestor) ingest(u session.Utterance) {
	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	now := i.nowFn()
	seen := make(map[string]bool, len(u.Words))
	for _, word := range u.Words {
		if seen[word] {
			continue
		}
		seen[word] = true
		if err := i.ingestWord(ctx, word, u.ID, now); err != nil {
			i.logger.Error("ingest word failed", "word", word, "error", err)
		}
	}
}

func (i *Ingestor) ingestWord(ctx context.Context, word, utteranceID string, now time.Time) error {
	entry, err := i.store.Get(ctx, word)
	switch {
	case err == nil:
		entry.Count++
		entry.LastHeard = now
		entry.UtteranceID = utteranceID
	case errors.Is(err, ErrNotFound):
		point, fallback := i.resolver.Resolve(ctx, word)
		entry = &Entry{
			Word:        word,
			Point:       point,
			Count:       1,
			FirstHeard:  now,
			LastHeard:   now,
			Fallback:    fallback,
			UtteranceID: utteranceID,
		}
	default:
		return err
	}
	return i.store.Put(ctx, entry)
}
