// Package index builds the vector index from the message feed: fetch,
// embed, and batch-upsert into the vector store.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/AuroraClub/concierge-mvp/engine/domain"
	"github.com/AuroraClub/concierge-mvp/engine/semantic"
	"github.com/AuroraClub/concierge-mvp/pkg/fn"
)

// EmbedWorkers bounds concurrent embedding calls during a build.
const EmbedWorkers = 4

// Fetcher reads the full message feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.Message, error)
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Upserter writes embedded records to the vector store.
type Upserter interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Report summarizes one index build.
type Report struct {
	Upserted int      `json:"upserted"`
	Failed   []string `json:"failed,omitempty"` // message ids that could not be embedded
}

// Builder runs index builds. At most one build runs at a time; a build
// requested while another is in flight is rejected with ErrBuildInFlight.
type Builder struct {
	feed     Fetcher
	embed    Embedder
	store    Upserter
	workers  int
	logger   *slog.Logger
	building atomic.Bool
}

// New creates a Builder.
func New(feed Fetcher, embed Embedder, store Upserter, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		feed:    feed,
		embed:   embed,
		store:   store,
		workers: EmbedWorkers,
		logger:  logger,
	}
}

// Build fetches the feed, embeds every message, and upserts the result in
// one batch. Per-message embedding failures are isolated: the successful
// subset is still written and the failed ids are reported. A feed failure
// or an upsert failure aborts the whole build.
func (b *Builder) Build(ctx context.Context) (Report, error) {
	if !b.building.CompareAndSwap(false, true) {
		return Report{}, domain.ErrBuildInFlight
	}
	defer b.building.Store(false)

	pipeline := fn.Then(
		fn.TracedStage("index.fetch", b.fetchStage()),
		fn.TracedStage("index.embed_store", b.embedStoreStage()),
	)

	report, err := pipeline(ctx, struct{}{}).Unwrap()
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

func (b *Builder) fetchStage() fn.Stage[struct{}, []domain.Message] {
	return func(ctx context.Context, _ struct{}) fn.Result[[]domain.Message] {
		msgs, err := b.feed.Fetch(ctx)
		if err != nil {
			return fn.Err[[]domain.Message](err)
		}
		// One record per unique message id; duplicates in the feed would
		// just race on the same point.
		unique := fn.UniqueBy(msgs, func(m domain.Message) string { return m.ID })
		if len(unique) < len(msgs) {
			b.logger.Warn("feed contains duplicate ids", "total", len(msgs), "unique", len(unique))
		}
		return fn.Ok(unique)
	}
}

func (b *Builder) embedStoreStage() fn.Stage[[]domain.Message, Report] {
	return func(ctx context.Context, msgs []domain.Message) fn.Result[Report] {
		if len(msgs) == 0 {
			b.logger.Info("feed empty, nothing to index")
			return fn.Ok(Report{})
		}

		results := fn.ParMapResult(msgs, b.workers, func(m domain.Message) fn.Result[semantic.VectorRecord] {
			return b.embedOne(ctx, m)
		})

		records, failedIdx := fn.Partition(results)
		failed := fn.Map(failedIdx, func(i int) string { return msgs[i].ID })
		for _, i := range failedIdx {
			_, err := results[i].Unwrap()
			b.logger.Error("embedding failed", "message_id", msgs[i].ID, "err", err)
		}

		if len(records) == 0 {
			return fn.Errf[Report]("%w: all %d messages failed to embed", domain.ErrDependency, len(msgs))
		}

		if err := b.store.Upsert(ctx, records); err != nil {
			return fn.Err[Report](fmt.Errorf("index upsert: %w", err))
		}

		b.logger.Info("index build complete", "upserted", len(records), "failed", len(failed))
		return fn.Ok(Report{Upserted: len(records), Failed: failed})
	}
}

func (b *Builder) embedOne(ctx context.Context, m domain.Message) fn.Result[semantic.VectorRecord] {
	if err := domain.ValidateMessage(m); err != nil {
		return fn.Err[semantic.VectorRecord](err)
	}
	vec, err := b.embed.Embed(ctx, domain.CanonicalText(m))
	if err != nil {
		return fn.Err[semantic.VectorRecord](err)
	}
	return fn.Ok(semantic.VectorRecord{
		MessageID: m.ID,
		UserName:  m.UserName,
		Text:      m.Text,
		Embedding: vec,
	})
}
