package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ReportsCollection = "interview_reports"

func EnsureMongoIndexes(dbName string) error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reports := MongoClient.Database(dbName).Collection(ReportsCollection)
	_, err := reports.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// one report per remote session
		{
			Keys: bson.D{{Key: "session.session_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_session_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "session.candidate_name", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_candidate_created"),
		},
	})
	return err
}
