package http_handlers

import (
	"context"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

type AdminService interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page, error)
	Block(ctx context.Context, ids []string) (int, error)
	Unblock(ctx context.Context, ids []string) (int, error)
	Delete(ctx context.Context, ids []string) (int, error)
	DeleteUnverified(ctx context.Context) (int, error)
}

type AdminHandler struct {
	svc AdminService
}

func NewAdminHandler(svc AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// List handles GET /accounts?q=&status=&page=&page_size=
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	req, err := dto.ListRequestFromQuery(r.URL.Query())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	page, err := h.svc.List(r.Context(), req.ToQuery())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewPageResponse(page))
}

func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "blocked", h.svc.Block)
}

func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "unblocked", h.svc.Unblock)
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "deleted", h.svc.Delete)
}

func (h *AdminHandler) DeleteUnverified(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DeleteUnverified(r.Context())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	h.logAction(r, "unverified_purged", n)
	response.OK(w, dto.CountResponse{Count: n})
}

func (h *AdminHandler) bulk(w http.ResponseWriter, r *http.Request, action string, op func(context.Context, []string) (int, error)) {
	var req dto.IDsRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	n, err := op(r.Context(), req.IDs)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	h.logAction(r, action, n)
	response.OK(w, dto.CountResponse{Count: n})
}

func (h *AdminHandler) logAction(r *http.Request, action string, n int) {
	actor, _ := middleware.AccountFromContext(r.Context())
	logger.WithCtx(r.Context()).Info().
		Str("actor_id", actor.ID).
		Str("action", action).
		Int("count", n).
		Msg("admin_action")
	middleware.AccountEventsTotal.WithLabelValues(action).Add(float64(n))
}
