package admins

import (
	"net/http"

	"famportal/controllers"
	"famportal/middleware"
	"famportal/services"
	"famportal/utils"
)

// GET /v1/admin/members?status=&role=&search=&page=&limit=
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := controllers.PageParams(r)
	list, total, err := h.Svc.Members.List(r.Context(), services.MemberFilter{
		Status: q.Get("status"),
		Role:   q.Get("role"),
		Search: q.Get("search"),
		Page:   page,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", controllers.Paged(page, list, total))
}

// GET /v1/admin/members/{id}
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	ctx := r.Context()
	user, err := h.Svc.Members.Get(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	balance, err := h.Svc.Ledger.AvailableBalance(ctx, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Successfully", map[string]interface{}{
		"user":    user,
		"balance": balance,
	})
}

type ReviewRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason" validate:"max=2000"`
}

// POST /v1/admin/members/{id}/review decides a pending application.
func (h *Handler) ReviewMember(w http.ResponseWriter, r *http.Request) {
	actor, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req ReviewRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	user, err := h.Svc.Members.Review(r.Context(), actor, id, req.Approve, req.Reason)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Application "+user.Status, user)
}

type BanRequest struct {
	Banned bool   `json:"banned"`
	Reason string `json:"reason" validate:"max=2000"`
}

// POST /v1/admin/members/{id}/ban
func (h *Handler) BanMember(w http.ResponseWriter, r *http.Request) {
	actor, _ := utils.GetPrincipal(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req BanRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	user, err := h.Svc.Members.SetBanned(r.Context(), actor, id, req.Banned, req.Reason)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Member "+user.Status, user)
}

type RoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// PUT /v1/admin/members/{id}/role
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req RoleRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	user, err := h.Svc.Members.SetRole(r.Context(), actor, id, req.Role)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Role updated", user)
}

type RankRequest struct {
	Rank int `json:"rank" validate:"required"`
}

// PUT /v1/admin/members/{id}/rank
func (h *Handler) SetRank(w http.ResponseWriter, r *http.Request) {
	actor, _ := utils.GetUserID(r)
	id, err := controllers.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req RankRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		return
	}
	user, err := h.Svc.Members.SetRank(r.Context(), actor, id, req.Rank)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.OK(w, "Rank updated", user)
}
