// Package handler serves dev-only verification code lookup over HTTP.
package handler

import (
	"net/http"

	"account-service/backend/internal/apperrors"
	"account-service/backend/internal/devotp"
	"account-service/backend/internal/httpx"
	"account-service/backend/internal/verification/domain"
)

const devCodeNote = "DEV MODE ONLY"

var errCodeNotFound = apperrors.New(apperrors.KindNotFound, "verification code not found or expired")

// Handler serves GET /dev/verification-code. Only registered when dev verification codes are
// enabled and not production.
type Handler struct {
	store devotp.Store
}

// NewHandler returns a Handler that reads codes from store.
func NewHandler(store devotp.Store) *Handler {
	return &Handler{store: store}
}

type codeResponse struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose"`
	Code    string `json:"code"`
	Note    string `json:"note"`
}

// GetCode returns the plain code for ?phone=&purpose= (purpose defaults to login).
func (h *Handler) GetCode(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		httpx.WriteError(w, apperrors.Invalid("phone is required"))
		return
	}
	purposeParam := r.URL.Query().Get("purpose")
	if purposeParam == "" {
		purposeParam = string(domain.PurposeLogin)
	}
	purpose, err := domain.ParsePurpose(purposeParam)
	if err != nil {
		httpx.WriteError(w, apperrors.Invalid(err.Error()))
		return
	}
	code, ok := h.store.Get(r.Context(), string(purpose), phone)
	if !ok {
		httpx.WriteError(w, errCodeNotFound)
		return
	}
	httpx.WriteOK(w, "ok", codeResponse{Phone: phone, Purpose: string(purpose), Code: code, Note: devCodeNote})
}
