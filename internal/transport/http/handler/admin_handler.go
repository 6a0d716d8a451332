package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ons-backend/internal/domain"
	"ons-backend/internal/service"
	"ons-backend/internal/transport/http/ez"
)

// AdminHandler 账号审核接口，挂在管理端引擎上，整组要求 ADMIN
type AdminHandler struct {
	users *service.UserService
}

func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

type userListQ struct {
	pageQ
	Role     string `form:"role" binding:"omitempty,oneof=VISITOR MEMBER EDITOR ADMIN visitor member editor admin"`
	IsActive *bool  `form:"isActive"`
	Search   string `form:"search" binding:"omitempty,max=100"`
}

type activeIn struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

type roleIn struct {
	Role string `json:"role" binding:"required"`
}

func (h *AdminHandler) Mount(e ez.EZ) {
	u := e.Group("/users")
	admin := []string{domain.RoleAdmin}

	ez.RegisterAction(u, ez.Action[userListQ, *service.Paged[domain.User]]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindQuery,
		Roles:  admin,
		Handler: func(c *gin.Context, in *userListQ) (*service.Paged[domain.User], error) {
			return h.users.List(c.Request.Context(), domain.UserFilter{
				Role:     strings.ToUpper(in.Role),
				IsActive: in.IsActive,
				Search:   strings.TrimSpace(in.Search),
			}, in.page(20))
		},
	})

	ez.RegisterAction(u, ez.Action[activeIn, *domain.User]{
		Method:  http.MethodPut,
		Path:    "/:id/activate",
		Binder:  ez.BindJSON,
		Roles:   admin,
		Message: "User status updated",
		Handler: func(c *gin.Context, in *activeIn) (*domain.User, error) {
			return h.users.SetActive(c.Request.Context(), c.Param("id"), *in.IsActive)
		},
	})

	ez.RegisterAction(u, ez.Action[roleIn, *domain.User]{
		Method:  http.MethodPut,
		Path:    "/:id/role",
		Binder:  ez.BindJSON,
		Roles:   admin,
		Message: "User role updated",
		Handler: func(c *gin.Context, in *roleIn) (*domain.User, error) {
			return h.users.SetRole(c.Request.Context(), c.Param("id"), strings.ToUpper(in.Role))
		},
	})

	ez.RegisterAction(u, ez.Action[struct{}, *domain.User]{
		Method:  http.MethodPut,
		Path:    "/:id/verify",
		Binder:  ez.BindNone,
		Roles:   admin,
		Message: "User email verified",
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return h.users.Verify(c.Request.Context(), c.Param("id"))
		},
	})
}
