package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ons-backend/internal/core/mailer"
	"ons-backend/internal/domain"
	"ons-backend/pkg/utils"
)

var registrationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "event_registrations_total", Help: "Event registration attempts by result"},
	[]string{"result"},
)

func init() { prometheus.MustRegister(registrationsTotal) }

type EventService struct {
	contents domain.ContentRepository
	regs     domain.RegistrationRepository
	mail     mailer.Sender
	log      *zap.Logger
	now      func() time.Time
}

func NewEventService(contents domain.ContentRepository, regs domain.RegistrationRepository, mail mailer.Sender, log *zap.Logger) *EventService {
	if mail == nil {
		mail = mailer.Noop{Log: log}
	}
	return &EventService{contents: contents, regs: regs, mail: mail, log: log.Named("event"), now: time.Now}
}

type EventInput struct {
	Title                string
	Description          string
	Date                 time.Time
	Time                 string
	Location             string
	MaxParticipants      *int
	RegistrationDeadline *time.Time
	RegistrationEnabled  *bool
	FeaturedImage        *string
	IsPublished          bool
	PublishedAt          *time.Time
	ScheduledAt          *time.Time
	Priority             int
}

type EventPatch struct {
	ContentPatch
	Date                 *time.Time
	Time                 *string
	Location             *string
	MaxParticipants      *int
	RegistrationDeadline *time.Time
	RegistrationEnabled  *bool
}

type RegistrationInput struct {
	Name                string
	Email               string
	Phone               string
	DietaryRestrictions string
	EmergencyContact    string
}

func (s *EventService) List(ctx context.Context, f domain.EventFilter, p domain.Page) (*Paged[domain.Content], error) {
	items, total, err := s.contents.ListEvents(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return newPaged(items, total, p), nil
}

func (s *EventService) Upcoming(ctx context.Context, limit int) ([]domain.Content, error) {
	if limit <= 0 || limit > domain.MaxPageSize {
		limit = domain.DefaultPageSize
	}
	items, err := s.contents.UpcomingEvents(ctx, limit, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("upcoming events: %w", err)
	}
	if items == nil {
		items = []domain.Content{}
	}
	return items, nil
}

// Get 只认带活动行的 EVENT 内容
func (s *EventService) Get(ctx context.Context, id string) (*domain.Content, error) {
	c, err := s.contents.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	if c == nil || c.Type != domain.ContentEvent || c.Event == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *EventService) Create(ctx context.Context, author *domain.User, in EventInput) (*domain.Content, error) {
	slug, err := uniqueSlug(ctx, s.contents, in.Title, "")
	if err != nil {
		return nil, err
	}
	enabled := true
	if in.RegistrationEnabled != nil {
		enabled = *in.RegistrationEnabled
	}
	priority := in.Priority
	if priority == 0 {
		priority = 1
	}
	c := &domain.Content{
		ID:            utils.NewID(),
		Type:          domain.ContentEvent,
		Title:         strings.TrimSpace(in.Title),
		Body:          utils.SanitizeHTML(in.Description),
		Slug:          slug,
		FeaturedImage: in.FeaturedImage,
		IsPublished:   in.IsPublished,
		PublishedAt:   in.PublishedAt,
		ScheduledAt:   in.ScheduledAt,
		Priority:      priority,
		AuthorID:      author.ID,
		Event: &domain.Event{
			Date:                 in.Date.UTC(),
			Time:                 in.Time,
			Location:             strings.TrimSpace(in.Location),
			MaxParticipants:      in.MaxParticipants,
			RegistrationDeadline: in.RegistrationDeadline,
			RegistrationEnabled:  enabled,
		},
	}
	stampPublished(c, s.now())
	if err := s.contents.Create(ctx, c); err != nil {
		return nil, err
	}
	c.Author = author
	s.log.Info("event created", zap.String("id", c.ID), zap.Time("date", in.Date))
	return c, nil
}

func (s *EventService) Update(ctx context.Context, actor *domain.User, id string, in EventPatch) (*domain.Content, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.CanManage(actor) {
		return nil, domain.ErrForbidden
	}
	if err := applyContentPatch(ctx, s.contents, c, in.ContentPatch, s.now()); err != nil {
		return nil, err
	}
	e := c.Event
	if in.Date != nil {
		e.Date = in.Date.UTC()
	}
	if in.Time != nil {
		e.Time = *in.Time
	}
	if in.Location != nil {
		e.Location = strings.TrimSpace(*in.Location)
	}
	if in.MaxParticipants != nil {
		e.MaxParticipants = in.MaxParticipants
	}
	if in.RegistrationDeadline != nil {
		e.RegistrationDeadline = in.RegistrationDeadline
	}
	if in.RegistrationEnabled != nil {
		e.RegistrationEnabled = *in.RegistrationEnabled
	}
	if err := s.contents.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *EventService) Delete(ctx context.Context, actor *domain.User, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.CanManage(actor) {
		return domain.ErrForbidden
	}
	if err := s.contents.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("event deleted", zap.String("id", id), zap.String("by", actor.ID))
	return nil
}

// Register 依次检查：活动存在、开放报名、截止时间、名额、重复邮箱；userID 可为空（游客）
func (s *EventService) Register(ctx context.Context, eventID string, userID *string, in RegistrationInput) (*domain.EventRegistration, error) {
	reg, err := s.register(ctx, eventID, userID, in)
	registrationsTotal.WithLabelValues(registrationResult(err)).Inc()
	return reg, err
}

func (s *EventService) register(ctx context.Context, eventID string, userID *string, in RegistrationInput) (*domain.EventRegistration, error) {
	c, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	e := c.Event
	if !e.RegistrationEnabled {
		return nil, domain.ErrRegistrationDisabled
	}
	now := s.now()
	if e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline) {
		return nil, domain.ErrRegistrationClosed
	}
	if e.MaxParticipants != nil && e.ConfirmedCount >= *e.MaxParticipants {
		return nil, domain.ErrEventFull
	}

	reg := &domain.EventRegistration{
		ID:                  utils.NewID(),
		EventID:             c.ID,
		UserID:              userID,
		Name:                strings.TrimSpace(in.Name),
		Email:               normalizeEmail(in.Email),
		Phone:               optional(utils.NormalizePhone(strings.TrimSpace(in.Phone))),
		DietaryRestrictions: optional(strings.TrimSpace(in.DietaryRestrictions)),
		EmergencyContact:    optional(strings.TrimSpace(in.EmergencyContact)),
		Status:              domain.RegistrationConfirmed,
		RegisteredAt:        now,
	}
	// 名额和重复邮箱在事务里再判一次
	if err := s.regs.Register(ctx, reg); err != nil {
		return nil, err
	}
	s.log.Info("event registration", zap.String("event_id", c.ID), zap.String("registration_id", reg.ID))

	// 确认邮件失败不影响报名
	if err := s.mail.SendRegistrationConfirmation(ctx, mailer.RegistrationMail{
		To:        reg.Email,
		Name:      reg.Name,
		Title:     c.Title,
		EventDate: e.Date,
		EventTime: e.Time,
		Location:  e.Location,
	}); err != nil {
		s.log.Warn("registration mail failed", zap.String("registration_id", reg.ID), zap.Error(err))
	}
	return reg, nil
}

// Registrations 活动作者或编辑/管理员可见
func (s *EventService) Registrations(ctx context.Context, actor *domain.User, eventID string, p domain.Page) (*Paged[domain.EventRegistration], error) {
	c, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !c.CanManage(actor) {
		return nil, domain.ErrForbidden
	}
	items, total, err := s.regs.List(ctx, eventID, p)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return newPaged(items, total, p), nil
}

func (s *EventService) UpdateRegistrationStatus(ctx context.Context, eventID, regID, status string) (*domain.EventRegistration, error) {
	if !domain.ValidRegistrationStatus(status) {
		return nil, domain.Invalid("invalid registration status")
	}
	reg, err := s.regs.FindByID(ctx, regID)
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	if reg == nil || reg.EventID != eventID {
		return nil, domain.ErrNotFound
	}
	if err := s.regs.UpdateStatus(ctx, reg, status); err != nil {
		return nil, err
	}
	return reg, nil
}

func registrationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrEventFull):
		return "full"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return "duplicate"
	case errors.Is(err, domain.ErrRegistrationClosed), errors.Is(err, domain.ErrRegistrationDisabled):
		return "closed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
