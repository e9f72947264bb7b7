package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cospi/internal/auth"
	"cospi/internal/booth"
	"cospi/internal/config"
	"cospi/internal/fault"
	"cospi/internal/ledger"
	"cospi/internal/market"
	"cospi/internal/mission"
	"cospi/internal/ranking"
	"cospi/internal/settings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userContextKey contextKey = "user"

type Server struct {
	cfg      config.API
	log      *slog.Logger
	tokens   *auth.Tokens
	auth     *auth.Service
	ledger   *ledger.Service
	market   *market.Aggregator
	missions *mission.Tracker
	ranking  *ranking.Engine
	booths   *booth.Service
	settings *settings.Store
	mux      *chi.Mux
}

func New(cfg config.API, logger *slog.Logger, tokens *auth.Tokens, authSvc *auth.Service,
	ledgerSvc *ledger.Service, marketAgg *market.Aggregator, missions *mission.Tracker,
	rankingEng *ranking.Engine, booths *booth.Service, store *settings.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		tokens:   tokens,
		auth:     authSvc,
		ledger:   ledgerSvc,
		market:   marketAgg,
		missions: missions,
		ranking:  rankingEng,
		booths:   booths,
		settings: store,
		mux:      chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.handleMe)
			r.Get("/me/visits", s.handleMyVisits)
			r.Get("/me/booth/visitors", s.handleMyBoothVisitors)

			r.Get("/booths", s.handleBoothList)
			r.Get("/booths/{id}", s.handleBoothDetail)
			r.Post("/booths/visit", s.handleBoothVisit)
			r.Get("/booths/{id}/reviews", s.handleBoothReviews)
			r.Post("/booths/{id}/rating", s.handleSubmitRating)
			r.Get("/booths/{id}/rating", s.handleMyRating)
			r.Delete("/booths/{id}/review", s.handleDeleteReview)

			r.Get("/coin/balance", s.handleBalance(ledger.Coin))
			r.Get("/coin/holdings", s.handleHoldings(ledger.Coin))
			r.Get("/coin/history", s.handleHistory(ledger.Coin))
			r.Post("/coin/invest", s.handleMutation(s.ledger.Invest))
			r.Post("/coin/withdraw", s.handleMutation(s.ledger.Withdraw))

			r.Get("/stock/balance", s.handleBalance(ledger.Stock))
			r.Get("/stock/holdings", s.handleHoldings(ledger.Stock))
			r.Get("/stock/history", s.handleHistory(ledger.Stock))
			r.Post("/stock/buy", s.handleMutation(s.ledger.Buy))
			r.Post("/stock/sell", s.handleMutation(s.ledger.Sell))

			r.Get("/cospi", s.handleCospi)

			r.Get("/rankings/booths", s.handleBoothRanking)
			r.Get("/rankings/missions/{mission_id}", s.handleMissionRanking)

			r.Get("/missions", s.handleMyMissions)
			r.Post("/missions/{mission_id}/progress", s.handleMissionProgress)
			r.Post("/missions/{mission_id}/complete", s.handleMissionComplete)

			r.Get("/admin/settings/results", s.handleResultsGet)
			r.Post("/admin/settings/results/toggle", s.handleResultsToggle)
			r.Get("/admin/ratings/summary", s.handleRatingSummaries)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userContextKey).(int64)
	if !ok || userID == 0 {
		return 0, errors.New("missing auth context")
	}
	return userID, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UniqueCode string `json:"unique_code"`
		Name       string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.auth.Login(r.Context(), in.UniqueCode, in.Name)
	if errors.Is(err, auth.ErrInvalidLogin) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	user, err := s.auth.GetUser(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	coin, err := s.ledger.Balance(r.Context(), userID, ledger.Coin)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	stock, err := s.ledger.Balance(r.Context(), userID, ledger.Stock)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":          user,
		"coin_balance":  coin,
		"stock_balance": stock,
	})
}

func (s *Server) handleMyVisits(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.booths.MyVisits(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": out})
}

func (s *Server) handleMyBoothVisitors(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.auth.MyBoothVisitors(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visitors": out})
}

func (s *Server) handleBoothList(w http.ResponseWriter, r *http.Request) {
	out, err := s.booths.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booths": out})
}

func (s *Server) handleBoothDetail(w http.ResponseWriter, r *http.Request) {
	boothID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booth id")
		return
	}
	out, err := s.booths.Get(r.Context(), boothID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBoothVisit(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		BoothUUID string `json:"booth_uuid"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.booths.RecordVisit(r.Context(), userID, strings.TrimSpace(in.BoothUUID))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleBoothReviews(w http.ResponseWriter, r *http.Request) {
	boothID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booth id")
		return
	}
	out, err := s.booths.Reviews(r.Context(), boothID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": out})
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	boothID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booth id")
		return
	}
	var in struct {
		Scores booth.Scores `json:"scores"`
		Review *string      `json:"review"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.booths.SubmitRating(r.Context(), userID, boothID, in.Scores, in.Review)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMyRating(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	boothID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booth id")
		return
	}
	out, err := s.booths.MyRating(r.Context(), userID, boothID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	boothID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booth id")
		return
	}
	if err := s.booths.DeleteReview(r.Context(), userID, boothID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBalance(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		balance, err := s.ledger.Balance(r.Context(), userID, l)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ledger": l, "balance": balance})
	}
}

func (s *Server) handleHoldings(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		out, err := s.ledger.Holdings(r.Context(), userID, l)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"holdings": out})
	}
}

func (s *Server) handleHistory(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		var (
			out []ledger.Record
		)
		if raw := r.URL.Query().Get("booth_id"); raw != "" {
			boothID, perr := strconv.ParseInt(raw, 10, 64)
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid booth id")
				return
			}
			out, err = s.ledger.HistoryByBooth(r.Context(), userID, l, boothID)
		} else {
			out, err = s.ledger.History(r.Context(), userID, l)
		}
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": out})
	}
}

func (s *Server) handleMutation(op func(context.Context, int64, int64, int64) (ledger.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		var in struct {
			BoothID int64 `json:"booth_id"`
			Amount  int64 `json:"amount"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err := op(r.Context(), userID, in.BoothID, in.Amount)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleCospi(w http.ResponseWriter, r *http.Request) {
	out, err := s.market.Get(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleBoothRanking serves the final leaderboard. Standings stay hidden
// until the organizers flip the reveal setting at the closing ceremony; until
// then the response carries the flag and no rows.
func (s *Server) handleBoothRanking(w http.ResponseWriter, r *http.Request) {
	revealed, err := s.settings.Bool(r.Context(), settings.KeyResultsRevealed)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !revealed {
		writeJSON(w, http.StatusOK, map[string]any{"revealed": false, "rankings": []ranking.BoothRank{}})
		return
	}
	out, err := s.ranking.BoothRanking(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revealed": true, "rankings": out})
}

func (s *Server) handleMissionRanking(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.ranking.Ranking(r.Context(), chi.URLParam(r, "mission_id"), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMyMissions(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.missions.MyMissions(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"missions": out})
}

func (s *Server) handleMissionProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Progress int `json:"progress"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.missions.UpdateProgress(r.Context(), userID, chi.URLParam(r, "mission_id"), in.Progress)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMissionComplete(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.missions.Complete(r.Context(), userID, chi.URLParam(r, "mission_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResultsGet(w http.ResponseWriter, r *http.Request) {
	revealed, err := s.settings.Bool(r.Context(), settings.KeyResultsRevealed)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results_revealed": revealed})
}

func (s *Server) handleResultsToggle(w http.ResponseWriter, r *http.Request) {
	revealed, err := s.settings.ToggleBool(r.Context(), settings.KeyResultsRevealed)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results_revealed": revealed})
}

func (s *Server) handleRatingSummaries(w http.ResponseWriter, r *http.Request) {
	out, err := s.booths.RatingSummaries(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booths": out})
}

// writeDomainError maps the error taxonomy onto HTTP: validation faults are
// the caller's request, state faults are a legal request the current state
// rejects, contention asks the caller to retry.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch fault.KindOf(err) {
	case fault.Validation:
		writeError(w, http.StatusBadRequest, err.Error())
	case fault.NotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case fault.State:
		writeError(w, http.StatusConflict, err.Error())
	case fault.Contention:
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
