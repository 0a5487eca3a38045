package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vetcred/internal/application"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/requestcontext"
)

type submitApplicationRequest struct {
	NameEn string `json:"name_en"`
	NameAr string `json:"name_ar"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	CityID string `json:"city_id"`
}

// handleSubmitApplication is the only response that ever carries the
// tracking token.
func (h *Handler) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req submitApplicationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cityID, err := domain.ParseCityID(req.CityID)
	if err != nil {
		writeError(w, err)
		return
	}

	app, err := h.applications.Submit(r.Context(), application.SubmitInput{
		NameEn: req.NameEn,
		NameAr: req.NameAr,
		Email:  req.Email,
		Phone:  req.Phone,
		CityID: cityID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":             app.ID,
		"status":         app.Status,
		"tracking_token": app.TrackingToken,
	})
}

func (h *Handler) handleApplicationStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.applications.GetByTrackingToken(r.Context(), chi.URLParam(r, "trackingToken"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type submitRenewalRequest struct {
	Token string `json:"token"`
	Notes string `json:"notes"`
}

func (h *Handler) handleSubmitRenewal(w http.ResponseWriter, r *http.Request) {
	var req submitRenewalRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	request, err := h.renewals.Submit(r.Context(), req.Token, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// handleScan resolves a scanned credential token. A token that is valid but
// not yet bound to a member is activated on the spot and reported as
// unassigned rather than failing the scan.
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var viewer *domain.Principal
	if p, ok := requestcontext.Principal(r.Context()); ok {
		viewer = &p
	}

	c, err := h.cards.Resolve(r.Context(), token, viewer)
	if err == nil {
		writeJSON(w, http.StatusOK, c)
		return
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		writeError(w, err)
		return
	}

	code, err := h.tokens.ActivateOnScan(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "unassigned",
		"token":  code.Token,
	})
}
