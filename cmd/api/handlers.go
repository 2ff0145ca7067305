package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AuroraClub/concierge-mvp/engine/domain"
	"github.com/AuroraClub/concierge-mvp/engine/index"
	"github.com/AuroraClub/concierge-mvp/engine/rag"
	"github.com/AuroraClub/concierge-mvp/pkg/metrics"
	"github.com/nats-io/nats.go"
)

// degradedAnswer is served when a query-time dependency fails. The caller
// still gets a 200-shaped answer; internals stay in the logs.
const degradedAnswer = "An error occurred while processing your question."

// appMetrics groups everything the service exports on /metrics.
type appMetrics struct {
	reg           *metrics.Registry
	questions     *metrics.Counter
	fallbacks     *metrics.Counter
	degraded      *metrics.Counter
	badQuestions  *metrics.Counter
	askDuration   *metrics.Histogram
	builds        *metrics.Counter
	buildErrors   *metrics.Counter
	upserted      *metrics.Counter
	indexSize     *metrics.Gauge
	buildDuration *metrics.Histogram
}

func newAppMetrics() *appMetrics {
	reg := metrics.New()
	return &appMetrics{
		reg:           reg,
		questions:     reg.Counter("concierge_questions_total", "Questions served"),
		fallbacks:     reg.Counter("concierge_fallback_answers_total", "Answers short-circuited to the fallback text"),
		degraded:      reg.Counter("concierge_degraded_answers_total", "Answers degraded by a dependency failure"),
		badQuestions:  reg.Counter("concierge_invalid_questions_total", "Questions rejected by validation"),
		askDuration:   reg.Histogram("concierge_ask_duration_seconds", "End-to-end /ask latency", nil),
		builds:        reg.Counter("concierge_index_builds_total", "Completed index builds"),
		buildErrors:   reg.Counter("concierge_index_build_errors_total", "Failed index builds"),
		upserted:      reg.Counter("concierge_index_upserted_total", "Records upserted across builds"),
		indexSize:     reg.Gauge("concierge_index_size", "Points currently stored"),
		buildDuration: reg.Histogram("concierge_index_build_duration_seconds", "Index build time", nil),
	}
}

// AnswerResponse is the JSON response for GET /ask.
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// ReindexResponse is the JSON response for POST /reindex.
type ReindexResponse struct {
	Status   string   `json:"status"`
	Upserted int      `json:"upserted"`
	Failed   []string `json:"failed,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
}

func handleDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(`Aurora Concierge API

GET  /ask?question=...   answer a question about member messages
POST /reindex            rebuild the vector index from the feed
GET  /api/health         liveness check
`))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleAsk(svc *rag.Service, met *appMetrics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer met.askDuration.Since(start)
		met.questions.Inc()

		question := r.URL.Query().Get("question")

		ans, err := svc.Answer(r.Context(), question)
		if err != nil {
			if domain.IsValidation(err) {
				met.badQuestions.Inc()
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question must be a non-empty string"})
				return
			}
			// Availability over transparency: dependency failures become a
			// fixed degraded answer, logged for the operator.
			met.degraded.Inc()
			logger.Error("answer failed", "err", err)
			writeJSON(w, http.StatusOK, AnswerResponse{Answer: degradedAnswer})
			return
		}

		if ans.Text == rag.FallbackAnswer {
			met.fallbacks.Inc()
		}
		writeJSON(w, http.StatusOK, AnswerResponse{Answer: ans.Text})
	}
}

func handleReindex(builder *index.Builder, counter pointCounter, met *appMetrics, logger *slog.Logger, nc *nats.Conn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := runBuild(r.Context(), builder, counter, met, logger, nc)
		if err != nil {
			if errors.Is(err, domain.ErrBuildInFlight) {
				writeJSON(w, http.StatusConflict, map[string]string{"status": "busy"})
				return
			}
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "failed"})
			return
		}
		writeJSON(w, http.StatusOK, ReindexResponse{
			Status:   "ok",
			Upserted: report.Upserted,
			Failed:   report.Failed,
		})
	}
}
