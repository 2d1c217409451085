package handlers

import (
	"context"
	"net/http"

	"github.com/olegbrv/storefront/backend/internal/domain/model"
	"github.com/olegbrv/storefront/backend/internal/transport/http/dto"
	httperrors "github.com/olegbrv/storefront/backend/internal/transport/http/errors"
)

type UserLister interface {
	List(ctx context.Context) ([]model.User, error)
}

type AdminHandler struct {
	users UserLister
}

func NewAdminHandler(users UserLister) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		writeInternal(w, "user store is unavailable")
		return
	}

	users, err := h.users.List(r.Context())
	if err != nil {
		writeInternal(w, "internal server error")
		return
	}

	items := make([]dto.UserListItem, 0, len(users))
	for _, user := range users {
		items = append(items, dto.UserListItem{
			ID:        user.ID,
			Email:     user.Email,
			Role:      string(user.Role),
			CreatedAt: user.CreatedAt,
			UpdatedAt: user.UpdatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.UserListResponse{Users: items})
}
