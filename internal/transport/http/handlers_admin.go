package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vetcred/internal/application"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/requestcontext"
)

func principal(r *http.Request) (domain.Principal, error) {
	p, ok := requestcontext.Principal(r.Context())
	if !ok {
		// RequireAuth guards every admin route; reaching here means a
		// wiring mistake, not a client error.
		return domain.Principal{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return p, nil
}

func (h *Handler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	apps, err := h.applications.List(r.Context(), p, application.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

type approveApplicationRequest struct {
	QRToken string `json:"qr_token"`
}

func (h *Handler) handleApproveApplication(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req approveApplicationRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	m, err := h.applications.Approve(r.Context(), p, id, req.QRToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRejectApplication(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req reasonRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	app, err := h.applications.Reject(r.Context(), p, id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := h.members.List(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseMemberID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.members.Get(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleSuspendMember(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseMemberID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req reasonRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := h.members.Suspend(r.Context(), p, id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleUnsuspendMember(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseMemberID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.members.Unsuspend(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleRenewMember(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseMemberID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.members.Renew(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleListRenewals(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	requests, err := h.renewals.ListPending(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"renewal_requests": requests})
}

func (h *Handler) handleApproveRenewal(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseRenewalRequestID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.renewals.Approve(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleRejectRenewal(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseRenewalRequestID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req reasonRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	request, err := h.renewals.Reject(r.Context(), p, id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

type mintBatchRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleMintBatch(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req mintBatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	batch, codes, err := h.tokens.MintBatch(r.Context(), p, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"batch": batch,
		"codes": codes,
	})
}

func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	batches, err := h.tokens.ListBatches(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (h *Handler) handleBatchStats(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseBatchID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.tokens.Stats(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
