package repository

import (
	"context"
	"time"

	"github.com/proofdeck/proofdeck/internal/domain"
	"github.com/proofdeck/proofdeck/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type activityLogRepository struct {
	db *mongo.Database
}

func NewActivityLogRepository(database *mongo.Database) domain.ActivityRepository {
	return &activityLogRepository{
		db: database,
	}
}

func (r *activityLogRepository) Log(ctx context.Context, entry *domain.ActivityLog) error {
	collection := r.db.Collection(db.ActivityLogsCollection)

	_, err := collection.InsertOne(ctx, entry)
	return err
}

func (r *activityLogRepository) GetByProjectID(ctx context.Context, projectID string, limit int) ([]domain.ActivityLog, error) {
	collection := r.db.Collection(db.ActivityLogsCollection)

	filter := bson.M{"project_id": projectID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.ActivityLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *activityLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	collection := r.db.Collection(db.ActivityLogsCollection)

	filter := bson.M{
		"timestamp": bson.M{
			"$lt": before,
		},
	}

	_, err := collection.DeleteMany(ctx, filter)
	return err
}

func (r *activityLogRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.ActivityLogsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "project_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(7776000), // 90 days TTL
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
