package handlers

import (
	"errors"
	"net/http"

	"github.com/Rosdorosh/Crypto-Liga/services"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	ledger    *services.LedgerService
	referrals *services.ReferralService
}

func NewUserHandler(ledger *services.LedgerService, referrals *services.ReferralService) *UserHandler {
	return &UserHandler{
		ledger:    ledger,
		referrals: referrals,
	}
}

func userIDFromURL(r *http.Request) (string, error) {
	id := chi.URLParam(r, "userID")
	if id == "" {
		return "", errors.New("missing user id in URL")
	}
	return id, nil
}

func (h *UserHandler) GetFinance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	finance, err := h.ledger.GetFinance(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"finance": finance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) GetWalletBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	balance, err := h.ledger.WalletBalance(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"wallet_balance": balance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Amount float64 `json:"amount"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.ledger.Deposit(r.Context(), userID, input.Amount); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	finance, err := h.ledger.GetFinance(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"finance": finance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Amount float64 `json:"amount"`
		Wallet string  `json:"wallet"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.ledger.Withdraw(r.Context(), userID, input.Wallet, input.Amount); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	finance, err := h.ledger.GetFinance(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"finance": finance}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) ReserveTeam(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		TeamID int `json:"team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res, err := h.ledger.Reserve(r.Context(), userID, input.TeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	payload := jsonResponse{
		"team":       res.Team,
		"finance":    res.Finance,
		"prize_fund": res.PrizeFund,
	}
	if err := writeJSON(w, http.StatusOK, payload, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		badRequestResponse(w, r, errors.New("missing payment id in URL"))
		return
	}

	confirmed, err := h.ledger.VerifyPayment(r.Context(), paymentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"confirmed": confirmed}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) GetRefCode(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	code, err := h.referrals.GetOrCreateRefCode(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ref_code": code}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) ApplyRefCode(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Code string `json:"code"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.referrals.ApplyRefCode(r.Context(), userID, input.Code); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "referral code applied"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
