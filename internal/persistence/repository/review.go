package repository

import (
	"context"
	"errors"
	"time"

	"github.com/proofdeck/proofdeck/internal/domain"
	"github.com/proofdeck/proofdeck/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reviewRepository struct {
	db *mongo.Database
}

func NewReviewRepository(database *mongo.Database) domain.ReviewRepository {
	return &reviewRepository{
		db: database,
	}
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	collection := r.db.Collection(db.ReviewsCollection)

	var review domain.Review
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, err
	}

	return &review, nil
}

func (r *reviewRepository) SetStatus(ctx context.Context, reviewID string, status domain.ReviewStatus, changedBy string, isFromAdmin bool) (*domain.Review, error) {
	collection := r.db.Collection(db.ReviewsCollection)

	update := bson.M{
		"$set": bson.M{
			"status":        status,
			"changed_by":    changedBy,
			"is_from_admin": isFromAdmin,
			"updated_at":    time.Now().UTC(),
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var review domain.Review
	err := collection.FindOneAndUpdate(ctx, bson.M{"_id": reviewID}, update, opts).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, err
	}

	return &review, nil
}
