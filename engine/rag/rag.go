// Package rag orchestrates the question-answering pipeline: validate the
// question, embed it, retrieve the most similar stored messages, assemble
// a grounded prompt, and call the completion service.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AuroraClub/concierge-mvp/engine/domain"
	"github.com/AuroraClub/concierge-mvp/engine/semantic"
	"github.com/AuroraClub/concierge-mvp/pkg/fn"
)

// FallbackAnswer is returned verbatim when retrieval yields nothing. This
// short-circuit happens in code; the completion service is never called.
const FallbackAnswer = "I cannot find any relevant information in the available messages."

// Embedder turns text into an embedding vector. Must be backed by the same
// model the indexer used.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer produces the final answer text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Searcher abstracts vector search over the message index.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
	Count(ctx context.Context) (uint64, error)
}

// Options configures the pipeline behaviour.
type Options struct {
	TopK int
	// ScoreThreshold drops matches below this cosine similarity, unless
	// that would drop every match; then the full top-K set is used.
	ScoreThreshold  float32
	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
	CompleteTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:            5,
		ScoreThreshold:  0.65,
		EmbedTimeout:    15 * time.Second,
		SearchTimeout:   5 * time.Second,
		CompleteTimeout: 45 * time.Second,
	}
}

// Answer is the response to one question. Ephemeral.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
}

// Source is a retrieved message backing the answer.
type Source struct {
	MessageID string  `json:"message_id"`
	UserName  string  `json:"user_name"`
	Text      string  `json:"text"`
	Score     float32 `json:"score"`
}

// Service runs the question-answering pipeline.
type Service struct {
	embed    Embedder
	complete Completer
	search   Searcher
	opts     Options
	logger   *slog.Logger
}

// New creates a Service.
func New(embed Embedder, complete Completer, search Searcher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embed:    embed,
		complete: complete,
		search:   search,
		opts:     opts,
		logger:   logger,
	}
}

// Answer runs the full pipeline for one question. Blank questions fail
// validation before anything is embedded. Dependency failures propagate to
// the caller; the request boundary decides how to surface them.
func (s *Service) Answer(ctx context.Context, question string) (*Answer, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}

	s.logger.Info("answer start", "question_len", len(question))

	embedCtx, cancelEmbed := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancelEmbed()
	vec, err := s.embed.Embed(embedCtx, question)
	if err != nil {
		return nil, fmt.Errorf("rag: embed question: %w", err)
	}

	searchCtx, cancelSearch := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancelSearch()
	matches, err := s.search.Search(searchCtx, vec, s.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}

	if len(matches) == 0 {
		// Hard short-circuit: no retrieved context, no model call.
		if empty, cerr := s.indexEmpty(ctx); cerr == nil && empty {
			s.logger.Warn("answering against an empty index")
		} else {
			s.logger.Info("no matches for question")
		}
		return &Answer{Text: FallbackAnswer}, nil
	}

	relevant := s.filterByScore(matches)

	prompt := buildPrompt(contextBlock(relevant), question)

	completeCtx, cancelComplete := context.WithTimeout(ctx, s.opts.CompleteTimeout)
	defer cancelComplete()
	text, err := s.complete.Complete(completeCtx, prompt)
	if err != nil {
		return nil, fmt.Errorf("rag: complete: %w", err)
	}

	return &Answer{
		Text: strings.TrimSpace(text),
		Sources: fn.Map(relevant, func(m semantic.SearchResult) Source {
			return Source{
				MessageID: m.MessageID,
				UserName:  m.UserName,
				Text:      m.Text,
				Score:     m.Score,
			}
		}),
	}, nil
}

// filterByScore applies the relevance threshold. If the threshold would
// remove every match the full set is kept: raw matches must never silently
// collapse into empty context.
func (s *Service) filterByScore(matches []semantic.SearchResult) []semantic.SearchResult {
	if s.opts.ScoreThreshold <= 0 {
		return matches
	}
	kept := fn.Filter(matches, func(m semantic.SearchResult) bool {
		return m.Score >= s.opts.ScoreThreshold
	})
	if len(kept) == 0 {
		s.logger.Info("all matches below threshold, using unfiltered set",
			"threshold", s.opts.ScoreThreshold, "matches", len(matches))
		return matches
	}
	return kept
}

// indexEmpty distinguishes "this question matched nothing" from "the store
// holds no vectors at all". Both answer with the fallback, but the latter
// is an operational signal worth logging on its own.
func (s *Service) indexEmpty(ctx context.Context) (bool, error) {
	n, err := s.search.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrIndexEmpty, err)
	}
	return n == 0, nil
}

// contextBlock renders one "<user_name>: <text>" line per match, in the
// descending score order the store returned.
func contextBlock(matches []semantic.SearchResult) string {
	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", m.UserName, m.Text)
	}
	return b.String()
}

// buildPrompt constructs the grounding prompt. The model is told to answer
// only from the supplied messages, to surface partially relevant facts when
// the exact answer is absent, and to fall back to the fixed phrase only
// when nothing in the context relates to the question. That last
// instruction is best-effort; the deterministic fallback for zero matches
// lives in Answer, not here.
func buildPrompt(context, question string) string {
	return fmt.Sprintf(`You are Aurora's intelligent concierge assistant.

Answer the question using ONLY the member messages provided below.

Guidelines:
1. If the context includes related information, use it to give the best possible specific answer.
2. If the question asks for something not explicitly present but related information exists, say what IS known instead of inventing an answer.
3. Only if nothing in the context relates to the question, respond exactly:
   %q

Context:
%s

Question: %s

Answer:`, FallbackAnswer, context, question)
}
