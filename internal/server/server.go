// Package server exposes the wallet pipeline over HTTP: airdrops, transfers,
// message signing, balance, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"solrails/internal/config"
	"solrails/internal/hmacauth"
	"solrails/internal/idempotency"
	"solrails/internal/ledger"
	"solrails/internal/sol"
	"solrails/internal/wallet"
	"solrails/internal/walleterr"
)

type Server struct {
	cfg        *config.AppConfig
	wallet     *wallet.Service
	store      idempotency.Store
	hmac       *hmacauth.Verifier
	httpServer *http.Server
	metrics    *metricsRegistry

	dbHealthFn  func(context.Context) error
	rpcHealthFn func(context.Context) error
}

func NewServer(cfg *config.AppConfig, svc *wallet.Service, led ledger.Client, store idempotency.Store) *Server {
	verifier := &hmacauth.Verifier{
		Secret:  cfg.Service.HMACSecret,
		MaxSkew: cfg.Service.HMACClockSkew,
	}

	s := &Server{
		cfg:     cfg,
		wallet:  svc,
		store:   store,
		hmac:    verifier,
		metrics: newMetricsRegistry(),
	}

	if checker, ok := store.(interface{ Ping(context.Context) error }); ok {
		s.dbHealthFn = checker.Ping
	}
	if checker, ok := led.(ledger.HealthChecker); ok {
		s.rpcHealthFn = checker.Ping
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/airdrops", s.hmac.Middleware(http.HandlerFunc(s.handleAirdrops)))
	mux.Handle("/api/v1/transfers", s.hmac.Middleware(http.HandlerFunc(s.handleTransfers)))
	mux.Handle("/api/v1/sign-message", s.hmac.Middleware(http.HandlerFunc(s.handleSignMessage)))
	mux.HandleFunc("/api/v1/balance", s.handleBalance)
	mux.Handle("/api/v1/metrics", s.metrics.handler())
	mux.HandleFunc("/api/v1/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.HTTPPort),
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	log.Printf("API listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type airdropRequest struct {
	AmountSol float64 `json:"amountSol"`
}

type transferRequest struct {
	Recipient string  `json:"recipient"`
	AmountSol float64 `json:"amountSol"`
}

type submissionResponse struct {
	Signature string  `json:"signature"`
	Lamports  uint64  `json:"lamports"`
	Sol       float64 `json:"sol"`
	Status    string  `json:"status"`
}

type signMessageRequest struct {
	Message string `json:"message"`
}

type signMessageResponse struct {
	Signature string `json:"signature"`
}

type balanceResponse struct {
	Address    string  `json:"address"`
	Lamports   uint64  `json:"lamports"`
	Sol        float64 `json:"sol"`
	ObservedAt string  `json:"observedAt"`
	Stale      bool    `json:"stale"`
	Error      string  `json:"error,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleAirdrops(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
	if key == "" {
		http.Error(w, "missing X-Idempotency-Key header", http.StatusBadRequest)
		return
	}
	key = "airdrop:" + key

	ctx := r.Context()
	if existing, _ := s.store.Get(ctx, key); existing != nil {
		s.replay(w, existing)
		s.metrics.incAirdrop("cached")
		return
	}

	var payload airdropRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}

	result, err := s.wallet.RequestFunding(ctx, payload.AmountSol)
	if err != nil {
		s.metrics.incAirdrop("failed")
		s.writeWalletError(w, err)
		return
	}

	s.metrics.incAirdrop("created")
	s.respondAndRecord(ctx, w, key, http.StatusCreated, submissionResponse{
		Signature: result.Signature.String(),
		Lamports:  result.Lamports,
		Sol:       sol.ToSOL(result.Lamports),
		Status:    "confirmed",
	})
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
	if key == "" {
		http.Error(w, "missing X-Idempotency-Key header", http.StatusBadRequest)
		return
	}
	key = "transfer:" + key

	ctx := r.Context()
	if existing, _ := s.store.Get(ctx, key); existing != nil {
		s.replay(w, existing)
		s.metrics.incTransfer("cached")
		return
	}

	var payload transferRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Recipient) == "" {
		http.Error(w, "recipient is required", http.StatusBadRequest)
		return
	}

	result, err := s.wallet.Transfer(ctx, payload.Recipient, payload.AmountSol)
	if err != nil {
		s.metrics.incTransfer("failed")
		s.writeWalletError(w, err)
		return
	}

	s.metrics.incTransfer("created")
	s.respondAndRecord(ctx, w, key, http.StatusCreated, submissionResponse{
		Signature: result.Signature.String(),
		Lamports:  result.Lamports,
		Sol:       sol.ToSOL(result.Lamports),
		Status:    "confirmed",
	})
}

func (s *Server) handleSignMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload signMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	sig, err := s.wallet.SignMessage(r.Context(), payload.Message)
	if err != nil {
		s.metrics.incSign("failed")
		s.writeWalletError(w, err)
		return
	}

	s.metrics.incSign("signed")
	writeJSON(w, http.StatusOK, signMessageResponse{Signature: sig})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := s.wallet.Balance(r.Context())
	if err != nil {
		s.writeWalletError(w, err)
		return
	}

	s.metrics.setBalance(snap.Lamports)

	resp := balanceResponse{
		Address:    snap.Address.String(),
		Lamports:   snap.Lamports,
		Sol:        sol.ToSOL(snap.Lamports),
		ObservedAt: snap.ObservedAt.UTC().Format(time.RFC3339),
		Stale:      snap.Stale,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{}

	if s.rpcHealthFn != nil {
		start := time.Now()
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rpcHealthFn(rpcCtx); err != nil {
			rpcInfo.Connected = false
			rpcInfo.Error = err.Error()
			overallHealthy = false
		} else {
			rpcInfo.Connected = true
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	} else {
		rpcInfo.Connected = true
	}

	dbInfo := struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
	}{Connected: true}

	if s.dbHealthFn != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.dbHealthFn(dbCtx); err != nil {
			dbInfo.Connected = false
			dbInfo.Error = err.Error()
			overallHealthy = false
		}
	}

	status := "healthy"
	if !overallHealthy {
		status = "degraded"
	}

	resp := struct {
		Status   string      `json:"status"`
		RPC      interface{} `json:"rpc"`
		Database interface{} `json:"database"`
	}{
		Status:   status,
		RPC:      rpcInfo,
		Database: dbInfo,
	}

	w.Header().Set("Content-Type", "application/json")
	if !overallHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeWalletError reduces the error to the taxonomy and maps it onto an HTTP
// status. Raw provider messages never leave unclassified.
func (s *Server) writeWalletError(w http.ResponseWriter, err error) {
	var werr *walleterr.Error
	if !errors.As(err, &werr) {
		werr = walleterr.Classify(err)
	}
	writeJSON(w, httpStatus(werr.Code), errorResponse{
		Error: errorBody{
			Code:    string(werr.Code),
			Message: werr.Error(),
		},
	})
}

func httpStatus(code walleterr.Code) int {
	switch code {
	case walleterr.CodeInvalidAddress, walleterr.CodeInvalidAmount:
		return http.StatusBadRequest
	case walleterr.CodeUserRejected:
		return http.StatusForbidden
	case walleterr.CodeRateLimited:
		return http.StatusTooManyRequests
	case walleterr.CodeFailed:
		return http.StatusUnprocessableEntity
	case walleterr.CodeTransient:
		return http.StatusBadGateway
	case walleterr.CodeExpired:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) replay(w http.ResponseWriter, record *idempotency.Record) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(record.StatusCode)
	_, _ = w.Write(record.Response)
}

// respondAndRecord writes the response and caches it under the idempotency
// key so a replayed request returns the same outcome without resubmitting.
func (s *Server) respondAndRecord(ctx context.Context, w http.ResponseWriter, key string, status int, body interface{}) {
	b, _ := json.Marshal(body)

	record := idempotency.Record{
		StatusCode: status,
		Response:   b,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(s.cfg.Service.IdempotencyWindow),
	}
	if err := s.store.Save(ctx, key, record); err != nil {
		log.Printf("idempotency save: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			r.Header.Set("X-Request-Id", fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		next.ServeHTTP(w, r)
	})
}
