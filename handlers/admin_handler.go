package handlers

import (
	"errors"
	"net/http"

	"github.com/Rosdorosh/Crypto-Liga/models"
	"github.com/Rosdorosh/Crypto-Liga/services"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	tournament *services.TournamentService
	ledger     *services.LedgerService
}

func NewAdminHandler(tournament *services.TournamentService, ledger *services.LedgerService) *AdminHandler {
	return &AdminHandler{
		tournament: tournament,
		ledger:     ledger,
	}
}

func (h *AdminHandler) StartTournament(w http.ResponseWriter, r *http.Request) {
	if err := h.tournament.Start(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "tournament started"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) StopTournament(w http.ResponseWriter, r *http.Request) {
	if err := h.tournament.Stop(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "tournament stopped"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) DrawBracket(w http.ResponseWriter, r *http.Request) {
	matches, err := h.tournament.Draw(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ResetPrices(w http.ResponseWriter, r *http.Request) {
	h.tournament.ResetStartPrices(r.Context())
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "start prices reset"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) FeedHealth(w http.ResponseWriter, r *http.Request) {
	healthy := h.tournament.FeedHealth(r.Context())
	if err := writeJSON(w, http.StatusOK, jsonResponse{"healthy": healthy}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	finance, err := h.ledger.GetFinance(r.Context(), models.AdminUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"finance": finance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.tournament.GetSettings(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"settings": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var input services.SettingsUpdate
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	settings, err := h.tournament.UpdateSettings(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"settings": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func matchIDFromURL(r *http.Request) (string, error) {
	id := chi.URLParam(r, "matchID")
	if id == "" {
		return "", errors.New("missing match id in URL")
	}
	return id, nil
}

func (h *AdminHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournament.StartMatchNow(r.Context(), matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "match start scheduled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) CompleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournament.CompleteMatchNow(r.Context(), matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "match completed"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
