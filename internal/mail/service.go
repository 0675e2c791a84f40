package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/config"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/ids"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
)

// Users is the slice of the user store mail needs.
type Users interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type Service struct {
	repo   Repository
	users  Users
	limits config.Limits
	now    func() time.Time
}

func NewService(repo Repository, users Users, limits config.Limits) *Service {
	return &Service{repo: repo, users: users, limits: limits, now: time.Now}
}

// Send delivers a message to an existing receiver.
func (s *Service) Send(ctx context.Context, sender, receiver, subject, text string) (*Mail, error) {
	if err := apperrors.CheckText("subject", subject, s.limits.MaxSubjectLength); err != nil {
		return nil, err
	}
	if err := apperrors.CheckText("text", text, s.limits.MaxTextLength); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, receiver); err != nil {
		return nil, fmt.Errorf("mail receiver: %w", err)
	}
	m := &Mail{
		Sender:    sender,
		Receiver:  receiver,
		CreatedAt: s.now().UTC(),
		Subject:   subject,
		Text:      text,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Inbox pages through receiver's mail, newest first. afterID may be empty.
func (s *Service) Inbox(ctx context.Context, receiver, afterID string) ([]Mail, error) {
	after, err := ids.DecodeOptional("after", afterID)
	if err != nil {
		return nil, apperrors.FromID(err)
	}
	if after != nil {
		m, err := s.repo.Get(ctx, *after)
		if err != nil {
			return nil, err
		}
		if m.Receiver != receiver {
			return nil, apperrors.NotFound("mail", afterID)
		}
	}
	return s.repo.ListByReceiver(ctx, receiver, after, s.limits.ResultsPerPage)
}

// Delete removes a message; only its receiver may.
func (s *Service) Delete(ctx context.Context, requester, mailID string) error {
	id, err := ids.Decode("mail_id", mailID)
	if err != nil {
		return apperrors.FromID(err)
	}
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.Receiver != requester {
		return apperrors.Illegal(requester, "only the receiver may delete mail")
	}
	return s.repo.Delete(ctx, id)
}
