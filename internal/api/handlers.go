package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/cellar-valuation/internal/model"
	"github.com/sells-group/cellar-valuation/internal/reconcile"
)

type pairRequest struct {
	WineID  int64 `json:"wineId"`
	Vintage *int  `json:"vintage"`
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFetchValuation(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decode(r, &req); err != nil || req.WineID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	v, err := s.svc.FetchValuation(r.Context(), req.WineID, req.Vintage, userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleBatch(job reconcile.Job) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.batch.Run(r.Context(), job, userFrom(r.Context()))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleListValuations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.ListValuations(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []model.ValuationRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"valuations": rows})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summary(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleSetManual(w http.ResponseWriter, r *http.Request) {
	var req reconcile.ManualEntry
	if err := decode(r, &req); err != nil || req.WineID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	v, err := s.svc.SetManualValuation(r.Context(), userFrom(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateManual(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid valuation id")
		return
	}
	var req reconcile.ManualPrices
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	v, err := s.svc.UpdateManualValuation(r.Context(), userFrom(r.Context()), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid valuation id")
		return
	}
	v, err := s.svc.ConfirmValuation(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleFetchCriticScores(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decode(r, &req); err != nil || req.WineID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	scores, err := s.svc.FetchCriticScores(r.Context(), req.WineID, req.Vintage, userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": scores})
}

func (s *Server) handleListCriticScores(w http.ResponseWriter, r *http.Request) {
	wineID, ok := pathID(r, "wineId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid wine id")
		return
	}
	var vintage *int
	if raw := r.URL.Query().Get("vintage"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid vintage")
			return
		}
		vintage = &v
	}
	rows, err := s.svc.ListCriticScores(r.Context(), userFrom(r.Context()), wineID, vintage)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []model.CriticScoreRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleAddCriticScore(w http.ResponseWriter, r *http.Request) {
	wineID, ok := pathID(r, "wineId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid wine id")
		return
	}
	var req reconcile.CriticEntry
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	score, err := s.svc.AddCriticScore(r.Context(), userFrom(r.Context()), wineID, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, score)
}

func (s *Server) handleDeleteCriticScore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid critic score id")
		return
	}
	if err := s.svc.DeleteCriticScore(r.Context(), userFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
