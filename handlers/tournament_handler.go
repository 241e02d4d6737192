package handlers

import (
	"net/http"

	"github.com/Rosdorosh/Crypto-Liga/services"
)

// TournamentHandler serves the public read surface: bracket, teams,
// live prices, prize fund and the latest archived results.
type TournamentHandler struct {
	tournament *services.TournamentService
}

func NewTournamentHandler(tournament *services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournament: tournament}
}

func (h *TournamentHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.tournament.ListTeams(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.tournament.ListMatches(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) LivePrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.tournament.LivePrices(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prices": prices}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) PrizeFund(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tournament.PrizeFund(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"prize_fund": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) LatestResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.tournament.LatestResults(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"results": results}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	settings, err := h.tournament.GetSettings(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	status := jsonResponse{
		"status":          settings.Status,
		"start_time":      settings.StartTime,
		"next_start_time": settings.NextStartTime,
	}
	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
