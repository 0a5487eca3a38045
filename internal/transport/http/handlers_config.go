package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vetcred/pkg/domain"
)

func (h *Handler) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.cities.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cities": cities})
}

type createCityRequest struct {
	NameEn string `json:"name_en"`
	NameAr string `json:"name_ar"`
	Code   string `json:"code"`
}

func (h *Handler) handleCreateCity(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createCityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.cities.Create(r.Context(), p, req.NameEn, req.NameAr, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type updateCityRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) handleUpdateCity(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseCityID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateCityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.cities.SetActive(r.Context(), p, id, req.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteCity(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseCityID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.cities.Delete(r.Context(), p, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	accounts, err := h.auth.List(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

type createAccountRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Role     string   `json:"role"`
	Cities   []string `json:"cities"`
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createAccountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	cities, err := parseCityIDs(req.Cities)
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := h.auth.CreateAccount(r.Context(), p, req.Email, req.Password, role, cities)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

type assignCitiesRequest struct {
	Cities []string `json:"cities"`
}

func (h *Handler) handleAssignAccountCities(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req assignCitiesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	cities, err := parseCityIDs(req.Cities)
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := h.auth.AssignCities(r.Context(), p, id, cities)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type updateAccountRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := domain.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateAccountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	account, err := h.auth.SetActive(r.Context(), p, id, req.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func parseCityIDs(raw []string) ([]domain.CityID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]domain.CityID, 0, len(raw))
	for _, s := range raw {
		id, err := domain.ParseCityID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
