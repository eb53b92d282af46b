package daemon

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"corsair/internal/api"
	"corsair/internal/config"
	"corsair/internal/history"
	"corsair/internal/logging"
	"corsair/internal/raid"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux.HandleFunc("/api/status", requireToken(token, srv.handleStatus))
	mux.HandleFunc("/api/raid/start", requireToken(token, srv.handleStart))
	mux.HandleFunc("/api/raid/reset", requireToken(token, srv.handleReset))
	mux.HandleFunc("/api/raid/join", requireToken(token, srv.handleJoin))
	mux.HandleFunc("/api/raid/invest", requireToken(token, srv.handleInvest))
	mux.HandleFunc("/api/raid/history", requireToken(token, srv.handleHistory))
	mux.HandleFunc("/api/stats", requireToken(token, srv.handleLeaderboard))
	mux.HandleFunc("/api/stats/", requireToken(token, srv.handlePlayerStats))
	mux.HandleFunc("/api/notify/test", requireToken(token, srv.handleNotifyTest))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.StartRaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := s.daemon.engine.Start(r.Context(), req.ViewerCount)
	if err != nil {
		s.writeRaidError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, raidStatusPayload(snap))
}

func (s *apiServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.ResetRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := s.daemon.engine.ForceReset(r.Context(), req.Reason); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: "session reset"})
}

type joinRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Amount   int    `json:"amount"`
}

func (s *apiServer) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := req.Username
	if username == "" {
		username = req.UserID
	}
	message, err := s.daemon.engine.Join(r.Context(), req.UserID, username, req.Amount)
	if err != nil {
		s.writeRaidError(w, fmt.Errorf("%w: %s", err, message))
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: message})
}

func (s *apiServer) handleInvest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	message, err := s.daemon.engine.Invest(r.Context(), req.UserID, req.Amount)
	if err != nil {
		s.writeRaidError(w, fmt.Errorf("%w: %s", err, message))
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: message})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.daemon.store.RecentSessions(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]api.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := api.HistoryEntry{
			ID:              rec.ID,
			ShipType:        rec.ShipType,
			Status:          rec.Status,
			FailureReason:   rec.FailureReason,
			Crew:            len(rec.Participants),
			RequiredCrew:    rec.RequiredCrew,
			FinalMultiplier: rec.FinalMultiplier,
			TotalInvested:   rec.TotalInvested,
			TotalRewards:    rec.TotalRewards,
			StartTime:       rec.StartTime.UTC().Format(time.RFC3339),
		}
		if rec.EndTime != nil {
			entry.EndTime = rec.EndTime.UTC().Format(time.RFC3339)
		}
		entries = append(entries, entry)
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Raids: entries})
}

func (s *apiServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	players, err := s.daemon.store.TopPlayers(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := make([]api.PlayerStats, 0, len(players))
	for _, stats := range players {
		payload = append(payload, playerStatsPayload(stats, -1))
	}
	s.writeJSON(w, http.StatusOK, api.LeaderboardResponse{Players: payload})
}

func (s *apiServer) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/api/stats/")
	if userID == "" || strings.Contains(userID, "/") {
		s.writeError(w, http.StatusNotFound, "player not found")
		return
	}
	stats, err := s.daemon.store.PlayerStats(r.Context(), userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	balance, err := s.daemon.ledger.Balance(r.Context(), userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, playerStatsPayload(stats, balance))
}

func (s *apiServer) handleNotifyTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ok, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", message, err))
		return
	}
	if !ok {
		s.writeError(w, http.StatusConflict, message)
		return
	}
	s.writeJSON(w, http.StatusOK, api.MessageResponse{Message: message})
}

// playerStatsPayload converts a stats row. balance < 0 means the caller did
// not look the balance up; the field is omitted by staying zero.
func playerStatsPayload(stats *history.PlayerStats, balance int) api.PlayerStats {
	payload := api.PlayerStats{
		UserID:        stats.UserID,
		Username:      stats.Username,
		RaidsJoined:   stats.RaidsJoined,
		RaidsWon:      stats.RaidsWon,
		TotalInvested: stats.TotalInvested,
		TotalRewarded: stats.TotalRewarded,
	}
	if stats.LastRaidAt != nil {
		payload.LastRaidAt = stats.LastRaidAt.UTC().Format(time.RFC3339)
	}
	if balance >= 0 {
		payload.Balance = balance
	}
	return payload
}

// requireToken gates a handler behind the configured bearer token. An empty
// token leaves the endpoint open, matching a daemon bound to localhost only.
func requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	want := []byte(token)
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), want) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
			return
		}
		next(w, r)
	}
}

func (s *apiServer) writeRaidError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, raid.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, raid.ErrState):
		status = http.StatusConflict
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
