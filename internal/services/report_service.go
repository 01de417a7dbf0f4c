package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/models"
	mongorepo "github.com/yoockh/mockinterview/internal/repositories/mongo"
	"github.com/yoockh/mockinterview/internal/utils"
)

type ReportService interface {
	Record(ctx context.Context, r *models.Report) error
	Get(ctx context.Context, sessionID string) (*models.Report, error)
	List(ctx context.Context, candidate string, limit int64) ([]models.Report, error)
}

type reportService struct {
	reports mongorepo.ReportRepository
	log     *logrus.Logger
}

func NewReportService(reports mongorepo.ReportRepository, log *logrus.Logger) ReportService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &reportService{reports: reports, log: log}
}

func (s *reportService) Record(ctx context.Context, r *models.Report) error {
	const op = "ReportService.Record"
	if r == nil || strings.TrimSpace(r.Session.SessionID) == "" {
		return utils.E(utils.CodeInvalidArgument, op, "report needs a session id", nil)
	}
	if err := s.reports.Upsert(ctx, r); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to store report", err)
	}
	s.log.WithFields(logrus.Fields{
		"session_id": r.Session.SessionID,
		"entries":    len(r.Transcript),
	}).Info("interview report archived")
	return nil
}

func (s *reportService) Get(ctx context.Context, sessionID string) (*models.Report, error) {
	const op = "ReportService.Get"
	if strings.TrimSpace(sessionID) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	r, err := s.reports.GetBySessionID(ctx, sessionID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "report not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load report", err)
	}
	return r, nil
}

func (s *reportService) List(ctx context.Context, candidate string, limit int64) ([]models.Report, error) {
	const op = "ReportService.List"
	out, err := s.reports.ListByCandidate(ctx, candidate, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list reports", err)
	}
	return out, nil
}
