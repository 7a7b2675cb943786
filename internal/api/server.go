// Package api exposes the read-only HTTP surface: tranche listings,
// distribution and refund views, and the WebSocket event feed.
// State-changing operations are not exposed here; caller identity comes
// from the execution substrate, not from HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"revora-ledger/internal/core"
	"revora-ledger/internal/domain"
	"revora-ledger/internal/observability"
	"revora-ledger/internal/storage"
)

// Server serves the read API off the core's in-memory state and the
// durable event log.
type Server struct {
	core   *core.Core
	events storage.EventStore
	hub    *EventHub
	logger *log.Logger
}

// NewServer wires the read API. hub may be nil to disable the feed.
func NewServer(c *core.Core, events storage.EventStore, hub *EventHub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "[api] ", log.LstdFlags)
	}
	return &Server{core: c, events: events, hub: hub, logger: logger}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /v1/tranches", s.timed("tranches", s.handleTranches))
	mux.Handle("GET /v1/tranches/{id}", s.timed("tranche", s.handleTranche))
	mux.Handle("GET /v1/tranches/{id}/distributions", s.timed("distributions", s.handleDistributions))
	mux.Handle("GET /v1/tranches/{id}/refund", s.timed("refund", s.handleRefund))
	mux.Handle("GET /v1/tranches/{id}/events", s.timed("events", s.handleEvents))
	mux.Handle("GET /v1/distributions/{id}", s.timed("distribution", s.handleDistribution))
	mux.Handle("GET /v1/distributions/{id}/claimable", s.timed("claimable", s.handleClaimable))
	if s.hub != nil {
		mux.Handle("GET /v1/events/ws", s.hub)
	}
	return mux
}

func (s *Server) timed(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		observability.DefaultMetrics.HTTPLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"seq":    s.core.CurrentSeq(),
	})
}

func (s *Server) handleTranches(w http.ResponseWriter, r *http.Request) {
	views := s.core.AllTranches()
	if r.URL.Query().Get("active") == "true" {
		views = s.core.ActiveTranches()
	}
	out := make([]trancheJSON, 0, len(views))
	for _, v := range views {
		out = append(out, trancheMessage(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTranche(w http.ResponseWriter, r *http.Request) {
	v, err := s.core.Tranche(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trancheMessage(v))
}

func (s *Server) handleDistributions(w http.ResponseWriter, r *http.Request) {
	dists, err := s.core.Distributions(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]distributionJSON, 0, len(dists))
	for _, d := range dists {
		out = append(out, distributionMessage(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := s.core.Distribution(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionMessage(d))
}

func (s *Server) handleClaimable(w http.ResponseWriter, r *http.Request) {
	holder := domain.Address(r.URL.Query().Get("holder"))
	if err := holder.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	id := r.PathValue("id")
	if _, err := s.core.Distribution(id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"distributionId": id,
		"holder":         holder,
		"claimable":      s.core.Claimable(id, holder),
	})
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	holder := domain.Address(r.URL.Query().Get("holder"))
	if err := holder.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	id := r.PathValue("id")
	rv, err := s.core.Refund(id, holder)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trancheId":           id,
		"holder":              holder,
		"available":           rv.Available,
		"amount":              rv.Amount,
		"refundPool":          rv.State.RefundPool,
		"snapshotSupply":      rv.State.SnapshotSupply,
		"totalRefundsClaimed": rv.State.TotalRefundsClaimed,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, domain.ErrInvalidInput)
			return
		}
		limit = n
	}
	events, err := s.events.GetByTranche(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]eventPayload, 0, len(events))
	for _, e := range events {
		out = append(out, eventMessage(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Printf("request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// --- wire shapes ---

type trancheJSON struct {
	TrancheID       string `json:"trancheId"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Description     string `json:"description,omitempty"`
	FundingGoal     uint64 `json:"fundingGoal"`
	UnitPrice       uint64 `json:"unitPrice"`
	PaymentAsset    string `json:"paymentAsset"`
	Treasury        string `json:"treasury"`
	Operator        string `json:"operator"`
	CreatedAt       int64  `json:"createdAt"`
	IsActive        bool   `json:"isActive"`
	FundingActive   bool   `json:"fundingActive"`
	FundingComplete bool   `json:"fundingComplete"`
	TotalRaised     uint64 `json:"totalRaised"`
	TotalSupply     uint64 `json:"totalSupply"`
	Status          string `json:"status"`
}

func trancheMessage(v core.TrancheView) trancheJSON {
	t, f := v.Tranche, v.Funding
	return trancheJSON{
		TrancheID:       t.TrancheID,
		Name:            t.Name,
		Symbol:          t.Symbol,
		Description:     t.Description,
		FundingGoal:     t.FundingGoal,
		UnitPrice:       t.UnitPrice,
		PaymentAsset:    t.PaymentAsset,
		Treasury:        string(t.Treasury),
		Operator:        string(t.Operator),
		CreatedAt:       t.CreatedAt,
		IsActive:        t.IsActive,
		FundingActive:   f.FundingActive,
		FundingComplete: f.FundingComplete,
		TotalRaised:     f.TotalRaised,
		TotalSupply:     f.TotalSupply,
		Status:          string(f.Status),
	}
}

type distributionJSON struct {
	DistributionID  string `json:"distributionId"`
	TrancheID       string `json:"trancheId"`
	PaymentAsset    string `json:"paymentAsset"`
	TotalAmount     uint64 `json:"totalAmount"`
	TrancheAmount   uint64 `json:"trancheAmount"`
	SecondaryAmount uint64 `json:"secondaryAmount"`
	EffectiveBps    uint32 `json:"effectiveBps"`
	SnapshotSeq     uint64 `json:"snapshotSeq"`
	ClaimDeadline   int64  `json:"claimDeadline"`
	TotalClaimed    uint64 `json:"totalClaimed"`
	CreatedAt       int64  `json:"createdAt"`
}

func distributionMessage(d *domain.Distribution) distributionJSON {
	return distributionJSON{
		DistributionID:  d.DistributionID,
		TrancheID:       d.TrancheID,
		PaymentAsset:    d.PaymentAsset,
		TotalAmount:     d.TotalAmount,
		TrancheAmount:   d.TrancheAmount,
		SecondaryAmount: d.SecondaryAmount,
		EffectiveBps:    d.EffectiveBps,
		SnapshotSeq:     d.SnapshotSeq,
		ClaimDeadline:   d.ClaimDeadline,
		TotalClaimed:    d.TotalClaimed,
		CreatedAt:       d.CreatedAt,
	}
}

type eventPayload struct {
	Seq            uint64 `json:"seq"`
	Timestamp      int64  `json:"timestamp"`
	Op             string `json:"op"`
	TrancheID      string `json:"trancheId"`
	DistributionID string `json:"distributionId,omitempty"`
	Actor          string `json:"actor"`
	Amount         uint64 `json:"amount"`
	UnitsDelta     uint64 `json:"unitsDelta"`
	ResultState    string `json:"resultState"`
}

func eventMessage(e *domain.Event) eventPayload {
	return eventPayload{
		Seq:            e.Seq,
		Timestamp:      e.Timestamp,
		Op:             string(e.Op),
		TrancheID:      e.TrancheID,
		DistributionID: e.DistributionID,
		Actor:          string(e.Actor),
		Amount:         e.Amount,
		UnitsDelta:     e.UnitsDelta,
		ResultState:    e.ResultState,
	}
}

// Compile-time interface check.
var _ core.Publisher = (*EventHub)(nil)
