package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/cache"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

type ProgressService interface {
	Get(ctx context.Context) (*models.Progress, error)
	Update(ctx context.Context, fn func(p *models.Progress)) (*models.Progress, error)

	// StartSession records a freshly initialised session and its expiry.
	StartSession(ctx context.Context, sessionID, candidate, jobTitle, avatarURL string) (*models.Progress, error)
	MarkCompleted(ctx context.Context, sessionID string) error

	// Allow reports whether page is reachable with the current progress.
	Allow(ctx context.Context, page models.Page) error
	Clear(ctx context.Context) error
}

type progressService struct {
	c   cache.Cache
	key string
	ttl time.Duration
	now func() time.Time
	log *logrus.Logger
}

func NewProgressService(c cache.Cache, profile string, ttl time.Duration, log *logrus.Logger) ProgressService {
	if strings.TrimSpace(profile) == "" {
		profile = "default"
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &progressService{c: c, key: cache.Key("progress", profile), ttl: ttl, now: time.Now, log: log}
}

// Expired reports whether the stored session is past its expiry.
func Expired(p *models.Progress, now time.Time) bool {
	return p != nil && p.SessionExpiry != nil && !now.Before(*p.SessionExpiry)
}

func (s *progressService) Get(ctx context.Context) (*models.Progress, error) {
	const op = "ProgressService.Get"
	var p models.Progress
	if _, err := s.c.GetJSON(ctx, s.key, &p); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "could not read progress", err)
	}
	if Expired(&p, s.now()) {
		s.log.WithField("session_id", p.SessionID).Info("session expired; progress cleared")
		if err := s.c.Del(ctx, s.key); err != nil {
			return nil, utils.E(utils.CodeUnavailable, op, "could not clear expired progress", err)
		}
		return &models.Progress{}, nil
	}
	return &p, nil
}

func (s *progressService) Update(ctx context.Context, fn func(p *models.Progress)) (*models.Progress, error) {
	const op = "ProgressService.Update"
	p, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	fn(p)
	if err := s.c.SetJSON(ctx, s.key, p, 0); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "could not save progress", err)
	}
	return p, nil
}

func (s *progressService) StartSession(ctx context.Context, sessionID, candidate, jobTitle, avatarURL string) (*models.Progress, error) {
	const op = "ProgressService.StartSession"
	if strings.TrimSpace(sessionID) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	exp := s.now().Add(s.ttl).UTC()
	return s.Update(ctx, func(p *models.Progress) {
		p.SessionID = sessionID
		p.CandidateName = candidate
		p.JobTitle = jobTitle
		p.AvatarURL = avatarURL
		p.InterviewCompleted = false
		p.SessionExpiry = &exp
	})
}

func (s *progressService) MarkCompleted(ctx context.Context, sessionID string) error {
	_, err := s.Update(ctx, func(p *models.Progress) {
		if p.SessionID == "" {
			p.SessionID = sessionID
		}
		p.InterviewCompleted = true
	})
	return err
}

func (s *progressService) Allow(ctx context.Context, page models.Page) error {
	const op = "ProgressService.Allow"
	p, err := s.Get(ctx)
	if err != nil {
		return err
	}
	deny := func(msg string) error { return utils.E(utils.CodeFailedPrecondition, op, msg, nil) }

	switch page {
	case models.PageDeviceCheck:
		return nil
	case models.PageSetup:
		if !p.CameraCheckCompleted {
			return deny("complete the device check first")
		}
	case models.PageInterview:
		if !p.CameraCheckCompleted {
			return deny("complete the device check first")
		}
		if p.ResumeFileName == "" || p.SelectedJobType == "" {
			return deny("upload a resume and select a job first")
		}
		if p.SessionID == "" {
			return deny("no interview session; run init")
		}
		if p.InterviewCompleted {
			return deny("this interview is already completed")
		}
	case models.PageResults:
		if !p.InterviewCompleted {
			return deny("the interview has not been completed")
		}
	default:
		return utils.E(utils.CodeInvalidArgument, op, "unknown page "+string(page), nil)
	}
	return nil
}

func (s *progressService) Clear(ctx context.Context) error {
	if err := s.c.Del(ctx, s.key); err != nil {
		return utils.E(utils.CodeUnavailable, "ProgressService.Clear", "could not clear progress", err)
	}
	return nil
}
