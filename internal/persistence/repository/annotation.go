package repository

import (
	"context"
	"errors"

	"github.com/proofdeck/proofdeck/internal/domain"
	"github.com/proofdeck/proofdeck/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type annotationRepository struct {
	db *mongo.Database
}

func NewAnnotationRepository(database *mongo.Database) domain.AnnotationRepository {
	return &annotationRepository{
		db: database,
	}
}

func (r *annotationRepository) Create(ctx context.Context, annotation *domain.Annotation) error {
	collection := r.db.Collection(db.AnnotationsCollection)

	_, err := collection.InsertOne(ctx, annotation)
	return err
}

func (r *annotationRepository) GetByID(ctx context.Context, id string) (*domain.Annotation, error) {
	collection := r.db.Collection(db.AnnotationsCollection)

	var annotation domain.Annotation
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&annotation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAnnotationNotFound
		}
		return nil, err
	}

	return &annotation, nil
}

func (r *annotationRepository) GetByProjectID(ctx context.Context, projectID string, limit int) ([]domain.Annotation, error) {
	collection := r.db.Collection(db.AnnotationsCollection)

	filter := bson.M{"project_id": projectID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var annotations []domain.Annotation
	if err := cursor.All(ctx, &annotations); err != nil {
		return nil, err
	}

	return annotations, nil
}

func (r *annotationRepository) AddReply(ctx context.Context, annotationID string, reply *domain.Reply) error {
	collection := r.db.Collection(db.AnnotationsCollection)

	update := bson.M{
		"$push": bson.M{
			"replies": reply,
		},
	}

	result, err := collection.UpdateOne(ctx, bson.M{"_id": annotationID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrAnnotationNotFound
	}

	return nil
}

func (r *annotationRepository) SetStatus(ctx context.Context, annotationID string, status domain.AnnotationStatus, resolvedBy string) error {
	collection := r.db.Collection(db.AnnotationsCollection)

	set := bson.M{"status": status}
	if status == domain.AnnotationResolved {
		set["resolved_by"] = resolvedBy
	}

	result, err := collection.UpdateOne(ctx, bson.M{"_id": annotationID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrAnnotationNotFound
	}

	return nil
}

func (r *annotationRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.AnnotationsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "project_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "file_id", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
