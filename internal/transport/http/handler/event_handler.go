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

type EventHandler struct {
	svc *service.EventService
}

func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

type eventListQ struct {
	pageQ
	DateFrom            string `form:"dateFrom"`
	DateTo              string `form:"dateTo"`
	Location            string `form:"location" binding:"omitempty,max=100"`
	RegistrationEnabled *bool  `form:"registrationEnabled"`
	Search              string `form:"search" binding:"omitempty,max=100"`
}

func (q eventListQ) filter() (domain.EventFilter, error) {
	from, err := parseDate("dateFrom", q.DateFrom)
	if err != nil {
		return domain.EventFilter{}, err
	}
	to, err := parseDate("dateTo", q.DateTo)
	if err != nil {
		return domain.EventFilter{}, err
	}
	return domain.EventFilter{
		DateFrom:            from,
		DateTo:              to,
		Location:            strings.TrimSpace(q.Location),
		RegistrationEnabled: q.RegistrationEnabled,
		Search:              strings.TrimSpace(q.Search),
	}, nil
}

type eventIn struct {
	Title                string     `json:"title" binding:"required,min=1,max=200"`
	Description          string     `json:"description" binding:"required"`
	Date                 time.Time  `json:"date" binding:"required"`
	Time                 string     `json:"time" binding:"required,hhmm"`
	Location             string     `json:"location" binding:"required,min=1,max=200"`
	MaxParticipants      *int       `json:"maxParticipants" binding:"omitempty,min=1"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`
	RegistrationEnabled  *bool      `json:"registrationEnabled"`
	FeaturedImage        *string    `json:"featuredImage" binding:"omitempty,url"`
	IsPublished          bool       `json:"isPublished"`
	PublishedAt          *time.Time `json:"publishedAt"`
	ScheduledAt          *time.Time `json:"scheduledAt"`
	Priority             int        `json:"priority" binding:"omitempty,min=1,max=10"`
}

type eventPatchIn struct {
	Title                *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description          *string    `json:"description" binding:"omitempty,min=1"`
	Date                 *time.Time `json:"date"`
	Time                 *string    `json:"time" binding:"omitempty,hhmm"`
	Location             *string    `json:"location" binding:"omitempty,min=1,max=200"`
	MaxParticipants      *int       `json:"maxParticipants" binding:"omitempty,min=1"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`
	RegistrationEnabled  *bool      `json:"registrationEnabled"`
	FeaturedImage        *string    `json:"featuredImage" binding:"omitempty,url"`
	IsPublished          *bool      `json:"isPublished"`
	PublishedAt          *time.Time `json:"publishedAt"`
	ScheduledAt          *time.Time `json:"scheduledAt"`
	Priority             *int       `json:"priority" binding:"omitempty,min=1,max=10"`
}

func (in eventPatchIn) patch() service.EventPatch {
	return service.EventPatch{
		ContentPatch: service.ContentPatch{
			Title:         in.Title,
			Content:       in.Description,
			FeaturedImage: in.FeaturedImage,
			IsPublished:   in.IsPublished,
			PublishedAt:   in.PublishedAt,
			ScheduledAt:   in.ScheduledAt,
			Priority:      in.Priority,
		},
		Date:                 in.Date,
		Time:                 in.Time,
		Location:             in.Location,
		MaxParticipants:      in.MaxParticipants,
		RegistrationDeadline: in.RegistrationDeadline,
		RegistrationEnabled:  in.RegistrationEnabled,
	}
}

type registrationIn struct {
	Name                string `json:"name" binding:"required,min=2,max=100"`
	Email               string `json:"email" binding:"required,email,max=191"`
	Phone               string `json:"phone" binding:"omitempty,phone"`
	DietaryRestrictions string `json:"dietaryRestrictions" binding:"omitempty,max=500"`
	EmergencyContact    string `json:"emergencyContact" binding:"omitempty,max=200"`
}

type registrationStatusIn struct {
	Status string `json:"status" binding:"required,oneof=PENDING CONFIRMED CANCELLED"`
}

type upcomingQ struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (h *EventHandler) Mount(e ez.EZ, g Guards) {
	r := e.Group("/events")

	ez.RegisterAction(r, ez.Action[eventListQ, *service.Paged[domain.Content]]{
		Method: http.MethodGet,
		Path:   "",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *eventListQ) (*service.Paged[domain.Content], error) {
			f, err := in.filter()
			if err != nil {
				return nil, err
			}
			return h.svc.List(c.Request.Context(), f, in.page(domain.DefaultPageSize))
		},
	})

	ez.RegisterAction(r, ez.Action[upcomingQ, []domain.Content]{
		Method: http.MethodGet,
		Path:   "/upcoming",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *upcomingQ) ([]domain.Content, error) {
			return h.svc.Upcoming(c.Request.Context(), in.Limit)
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

	ez.RegisterAction(r, ez.Action[eventIn, *domain.Content]{
		Method:  http.MethodPost,
		Path:    "",
		Binder:  ez.BindJSON,
		Use:     chain(g.Auth),
		Roles:   staff,
		Status:  http.StatusCreated,
		Message: "Event created successfully",
		Handler: func(c *gin.Context, in *eventIn) (*domain.Content, error) {
			return h.svc.Create(c.Request.Context(), ez.CurrentUser(c), service.EventInput{
				Title:                in.Title,
				Description:          in.Description,
				Date:                 in.Date,
				Time:                 in.Time,
				Location:             in.Location,
				MaxParticipants:      in.MaxParticipants,
				RegistrationDeadline: in.RegistrationDeadline,
				RegistrationEnabled:  in.RegistrationEnabled,
				FeaturedImage:        in.FeaturedImage,
				IsPublished:          in.IsPublished,
				PublishedAt:          in.PublishedAt,
				ScheduledAt:          in.ScheduledAt,
				Priority:             in.Priority,
			})
		},
	})

	ez.RegisterAction(r, ez.Action[eventPatchIn, *domain.Content]{
		Method:  http.MethodPut,
		Path:    "/:id",
		Binder:  ez.BindJSON,
		Use:     chain(g.Auth),
		Roles:   staff,
		Message: "Event updated successfully",
		Handler: func(c *gin.Context, in *eventPatchIn) (*domain.Content, error) {
			return h.svc.Update(c.Request.Context(), ez.CurrentUser(c), c.Param("id"), in.patch())
		},
	})

	ez.RegisterAction(r, ez.Action[struct{}, struct{}]{
		Method:  http.MethodDelete,
		Path:    "/:id",
		Binder:  ez.BindNone,
		Use:     chain(g.Auth),
		Roles:   staff,
		Message: "Event deleted successfully",
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			return struct{}{}, h.svc.Delete(c.Request.Context(), ez.CurrentUser(c), c.Param("id"))
		},
	})

	// 报名不要求登录；带 token 时关联到用户
	ez.RegisterAction(r, ez.Action[registrationIn, *domain.EventRegistration]{
		Method:  http.MethodPost,
		Path:    "/:id/register",
		Binder:  ez.BindJSON,
		Use:     chain(g.RegistrationLimit, g.OptionalAuth),
		Status:  http.StatusCreated,
		Message: "Registration successful",
		Handler: func(c *gin.Context, in *registrationIn) (*domain.EventRegistration, error) {
			return h.svc.Register(c.Request.Context(), c.Param("id"), ez.UserID(c), service.RegistrationInput{
				Name:                in.Name,
				Email:               in.Email,
				Phone:               in.Phone,
				DietaryRestrictions: in.DietaryRestrictions,
				EmergencyContact:    in.EmergencyContact,
			})
		},
	})

	ez.RegisterAction(r, ez.Action[pageQ, *service.Paged[domain.EventRegistration]]{
		Method: http.MethodGet,
		Path:   "/:id/registrations",
		Binder: ez.BindQuery,
		Use:    chain(g.Auth),
		Roles:  staff,
		Handler: func(c *gin.Context, in *pageQ) (*service.Paged[domain.EventRegistration], error) {
			return h.svc.Registrations(c.Request.Context(), ez.CurrentUser(c), c.Param("id"), in.page(20))
		},
	})

	ez.RegisterAction(r, ez.Action[registrationStatusIn, *domain.EventRegistration]{
		Method:  http.MethodPut,
		Path:    "/:id/registrations/:registrationId",
		Binder:  ez.BindJSON,
		Use:     chain(g.Auth),
		Roles:   staff,
		Message: "Registration updated successfully",
		Handler: func(c *gin.Context, in *registrationStatusIn) (*domain.EventRegistration, error) {
			return h.svc.UpdateRegistrationStatus(c.Request.Context(), c.Param("id"), c.Param("registrationId"), in.Status)
		},
	})
}
