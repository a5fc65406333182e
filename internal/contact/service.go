package contact

import (
	"context"
	"errors"
	"net/http"
	"time"

	limiter "github.com/ulule/limiter/v3"

	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/i18n"
	"github.com/atpstore/backend-atp/internal/obs"
	"github.com/atpstore/backend-atp/internal/tasks"
)

// Input is one contact form submission.
type Input struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=40"`
	Subject  string `json:"subject" validate:"required,max=100"`
	Message  string `json:"message" validate:"required,max=5000"`
	Language string `json:"language"`
}

// EmailEnqueuer schedules rendered emails for delivery.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload tasks.EmailPayload) error
}

// ErrRateLimited is returned when the submitter exceeded the allowed rate.
var ErrRateLimited = errors.New("contact: rate limited")

// Service renders and queues the two contact emails per submission: one to
// the store inbox, one confirmation back to the submitter.
type Service struct {
	Limiter    *limiter.Limiter
	Enqueuer   EmailEnqueuer
	AdminEmail string
	Now        func() time.Time
}

// Submit validates rate limits, renders both emails in the submitter's
// language, and queues them. The response message key is resolved by the
// handler against the same language.
func (s *Service) Submit(ctx context.Context, clientIP string, in Input) error {
	if s == nil || s.Enqueuer == nil {
		return errors.New("contact service not configured")
	}
	lang := i18n.Resolve(in.Language)

	if s.Limiter != nil && clientIP != "" {
		lctx, err := s.Limiter.Get(ctx, "contact:"+clientIP)
		if err == nil && lctx.Reached {
			obs.CountContactMessage("rate_limited")
			return ErrRateLimited
		}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	data := i18n.TemplateData{
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Subject:   i18n.TranslatedSubject(string(lang), in.Subject),
		Message:   in.Message,
		Timestamp: now().Format("2006-01-02 15:04"),
	}
	set := i18n.Templates(string(lang), data)

	if err := s.Enqueuer.EnqueueEmail(ctx, tasks.EmailPayload{
		To:       s.AdminEmail,
		Subject:  set.Admin.Subject,
		HTML:     set.Admin.HTML,
		Kind:     "contact_admin",
		Language: string(lang),
	}); err != nil {
		obs.CountContactMessage("enqueue_error")
		return common.NewAppError("INTERNAL", i18n.APIMessage(string(lang), "internal_error"), http.StatusInternalServerError, err)
	}
	if err := s.Enqueuer.EnqueueEmail(ctx, tasks.EmailPayload{
		To:       in.Email,
		Subject:  set.User.Subject,
		HTML:     set.User.HTML,
		Kind:     "contact_user",
		Language: string(lang),
	}); err != nil {
		obs.CountContactMessage("enqueue_error")
		return common.NewAppError("INTERNAL", i18n.APIMessage(string(lang), "internal_error"), http.StatusInternalServerError, err)
	}

	obs.CountContactMessage("ok")
	return nil
}
