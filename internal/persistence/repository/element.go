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

type elementRepository struct {
	db *mongo.Database
}

func NewElementRepository(database *mongo.Database) domain.ElementRepository {
	return &elementRepository{
		db: database,
	}
}

// SetStatus upserts the element record. Elements are created lazily on
// their first status change since the design files themselves live in a
// separate asset store.
func (r *elementRepository) SetStatus(ctx context.Context, projectID, elementID string, status domain.ElementStatus, updatedBy, comment string) (*domain.Element, error) {
	collection := r.db.Collection(db.ElementsCollection)

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"project_id": projectID,
			"status":     status,
			"updated_by": updatedBy,
			"comment":    comment,
			"updated_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var element domain.Element
	err := collection.FindOneAndUpdate(ctx, bson.M{"_id": elementID}, update, opts).Decode(&element)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrElementNotFound
		}
		return nil, err
	}

	return &element, nil
}

func (r *elementRepository) GetByProjectID(ctx context.Context, projectID string) ([]domain.Element, error) {
	collection := r.db.Collection(db.ElementsCollection)

	cursor, err := collection.Find(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var elements []domain.Element
	if err := cursor.All(ctx, &elements); err != nil {
		return nil, err
	}

	return elements, nil
}
