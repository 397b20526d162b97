package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"microlearn/internal/model"
)

type VerificationRepo interface {
	Create(ctx context.Context, result *model.VerificationResult) error
	GetByTopicID(ctx context.Context, topicID int64) (*model.VerificationResult, error)

	// Update replaces a result in place; used by the backfill job when a
	// previously unscored verification is recomputed.
	Update(ctx context.Context, result *model.VerificationResult) error

	// ListUnscored returns results whose overall quality is unset, oldest
	// first, for the backfill pass.
	ListUnscored(ctx context.Context, limit int64) ([]*model.VerificationResult, error)
}

type verificationRepo struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewVerificationRepo(db *mongo.Database) VerificationRepo {
	return &verificationRepo{
		db:         db,
		collection: db.Collection("verifications"),
	}
}

func (r *verificationRepo) Create(ctx context.Context, result *model.VerificationResult) error {
	id, err := nextSequence(ctx, r.db, "verifications")
	if err != nil {
		return err
	}
	result.ID = id
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	_, err = r.collection.InsertOne(ctx, result)
	return err
}

func (r *verificationRepo) GetByTopicID(ctx context.Context, topicID int64) (*model.VerificationResult, error) {
	var result model.VerificationResult
	err := r.collection.FindOne(ctx, bson.M{"topicId": topicID}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *verificationRepo) Update(ctx context.Context, result *model.VerificationResult) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": result.ID}, result)
	return err
}

func (r *verificationRepo) ListUnscored(ctx context.Context, limit int64) ([]*model.VerificationResult, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"overallQuality": nil},
		options.Find().SetSort(bson.M{"createdAt": 1}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*model.VerificationResult
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
