package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ons-backend/internal/domain"
	"ons-backend/internal/service"
	"ons-backend/internal/transport/http/ez"
)

type ContentHandler struct {
	svc *service.ContentService
}

func NewContentHandler(svc *service.ContentService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

type contentListQ struct {
	pageQ
	Type        string `form:"type" binding:"omitempty,contenttype"`
	IsPublished *bool  `form:"isPublished"`
	Search      string `form:"search" binding:"omitempty,max=100"`
}

type publishedQ struct {
	Type  string `form:"type" binding:"omitempty,contenttype"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type contentIn struct {
	Type          string     `json:"type" binding:"required,contenttype"`
	Title         string     `json:"title" binding:"required,min=1,max=200"`
	Content       string     `json:"content" binding:"required"`
	FeaturedImage *string    `json:"featuredImage" binding:"omitempty,url"`
	IsPublished   bool       `json:"isPublished"`
	PublishedAt   *time.Time `json:"publishedAt"`
	ScheduledAt   *time.Time `json:"scheduledAt"`
	Priority      int        `json:"priority" binding:"omitempty,min=1,max=10"`
}

type contentPatchIn struct {
	Title         *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Content       *string    `json:"content" binding:"omitempty,min=1"`
	FeaturedImage *string    `json:"featuredImage" binding:"omitempty,url"`
	IsPublished   *bool      `json:"isPublished"`
	PublishedAt   *time.Time `json:"publishedAt"`
	ScheduledAt   *time.Time `json:"scheduledAt"`
	Priority      *int       `json:"priority" binding:"omitempty,min=1,max=10"`
}

func (in contentPatchIn) patch() service.ContentPatch {
	return service.ContentPatch{
		Title:         in.Title,
		Content:       in.Content,
		FeaturedImage: in.FeaturedImage,
		IsPublished:   in.IsPublished,
		PublishedAt:   in.PublishedAt,
		ScheduledAt:   in.ScheduledAt,
		Priority:      in.Priority,
	}
}

func (h *ContentHandler) Mount(e ez.EZ, g Guards) {
	r := e.Group("/content")

	ez.RegisterAction(r, ez.Action[contentListQ, *service.Paged[domain.Content]]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *contentListQ) (*service.Paged[domain.Content], error) {
			f := domain.ContentFilter{
				Type:        strings.ToUpper(in.Type),
				IsPublished: in.IsPublished,
				Search:      strings.TrimSpace(in.Search),
			}
			return h.svc.List(c.Request.Context(), f, in.page(domain.DefaultPageSize))
		},
	})

	ez.RegisterAction(r, ez.Action[publishedQ, []domain.Content]{
		Method: http.MethodGet,
		Path:   "/published",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *publishedQ) ([]domain.Content, error) {
			return h.svc.Published(c.Request.Context(), strings.ToUpper(in.Type), in.Limit)
		},
	})

	ez.RegisterAction(r, ez.Action[struct{}, *domain.Content]{
		Method: http.MethodGet,
		Path:   "/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Content, error) {
			return h.svc.Get(c.Request.Context(), c.Param("id"))
		},
	})

	ez.RegisterAction(r, ez.Action[contentIn, *domain.Content]{
		Method:  http.MethodPost,
		Path:    "",
		Binder:  ez.BindJSON,
		Use:     chain(g.Auth),
		Roles:   staff,
		Status:  http.StatusCreated,
		Message: "Content created successfully",
		Handler: func(c *gin.Context, in *contentIn) (*domain.Content, error) {
			return h.svc.Create(c.Request.Context(), ez.CurrentUser(c), service.ContentInput{
				Type:          strings.ToUpper(in.Type),
				Title:         in.Title,
				Content:       in.Content,
				FeaturedImage: in.FeaturedImage,
				IsPublished:   in.IsPublished,
				PublishedAt:   in.PublishedAt,
				ScheduledAt:   in.ScheduledAt,
				Priority:      in.Priority,
			})
		},
	})

	ez.RegisterAction(r, ez.Action[contentPatchIn, *domain.Content]{
		Method:  http.MethodPut,
		Path:    "/:id",
		Binder:  ez.BindJSON,
		Use:     chain(g.Auth),
		Roles:   staff,
		Message: "Content updated successfully",
		Handler: func(c *gin.Context, in *contentPatchIn) (*domain.Content, error) {
			return h.svc.Update(c.Request.Context(), ez.CurrentUser(c), c.Param("id"), in.patch())
		},
	})

	ez.RegisterAction(r, ez.Action[struct{}, struct{}]{
		Method:  http.MethodDelete,
		Path:    "/:id",
		Binder:  ez.BindNone,
		Use:     chain(g.Auth),
		Roles:   staff,
		Message: "Content deleted successfully",
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			return struct{}{}, h.svc.Delete(c.Request.Context(), ez.CurrentUser(c), c.Param("id"))
		},
	})
}
