package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

type ReportRepository interface {
	// Upsert stores r keyed by its session id; a second end of the same
	// session replaces the first report.
	Upsert(ctx context.Context, r *models.Report) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Report, error)
	ListByCandidate(ctx context.Context, candidate string, limit int64) ([]models.Report, error)
}

type reportRepo struct {
	col *mongo.Collection
}

func NewReportRepo(db *mongo.Database) ReportRepository {
	return &reportRepo{col: db.Collection(config.ReportsCollection)}
}

func (r *reportRepo) Upsert(ctx context.Context, rep *models.Report) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"session.session_id": rep.Session.SessionID},
		rep,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *reportRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Report, error) {
	var rep models.Report
	err := r.col.FindOne(ctx, bson.M{"session.session_id": sessionID}).Decode(&rep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *reportRepo) ListByCandidate(ctx context.Context, candidate string, limit int64) ([]models.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	filter := bson.M{}
	if candidate != "" {
		filter["session.candidate_name"] = candidate
	}
	cur, err := r.col.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit).
			// transcripts can be long; listings only need the header
			SetProjection(bson.M{"transcript": 0}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Report
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
