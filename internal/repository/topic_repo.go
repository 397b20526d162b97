package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"microlearn/internal/model"
)

type TopicRepo interface {
	Create(ctx context.Context, topic *model.Topic) error
	GetByID(ctx context.Context, id int64) (*model.Topic, error)
	ListByOwnerCategory(ctx context.Context, ownerID, category string) ([]*model.Topic, error)

	// FindByTitle does a case-insensitive exact title lookup. Used as the
	// opportunistic pre-insert duplicate check; there is no cross-request
	// lock, so concurrent inserts resolve last-write-wins.
	FindByTitle(ctx context.Context, ownerID, category, title string) (*model.Topic, error)

	SetVisibility(ctx context.Context, id int64, isPublic bool) error
	SetPrivacyOverride(ctx context.Context, id int64, visible bool) error
}

type topicRepo struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewTopicRepo(db *mongo.Database) TopicRepo {
	return &topicRepo{
		db:         db,
		collection: db.Collection("topics"),
	}
}

func (r *topicRepo) Create(ctx context.Context, topic *model.Topic) error {
	id, err := nextSequence(ctx, r.db, "topics")
	if err != nil {
		return err
	}
	topic.ID = id
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now()
	}

	_, err = r.collection.InsertOne(ctx, topic)
	return err
}

func (r *topicRepo) GetByID(ctx context.Context, id int64) (*model.Topic, error) {
	var topic model.Topic
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&topic)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepo) ListByOwnerCategory(ctx context.Context, ownerID, category string) ([]*model.Topic, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"ownerId": ownerID, "category": category},
		options.Find().SetSort(bson.M{"createdAt": -1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var topics []*model.Topic
	if err = cursor.All(ctx, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *topicRepo) FindByTitle(ctx context.Context, ownerID, category, title string) (*model.Topic, error) {
	filter := bson.M{
		"ownerId":  ownerID,
		"category": category,
		"title": primitive.Regex{
			Pattern: "^" + regexp.QuoteMeta(title) + "$",
			Options: "i",
		},
	}

	var topic model.Topic
	err := r.collection.FindOne(ctx, filter).Decode(&topic)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepo) SetVisibility(ctx context.Context, id int64, isPublic bool) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isPublic": isPublic}},
	)
	return err
}

func (r *topicRepo) SetPrivacyOverride(ctx context.Context, id int64, visible bool) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"privacyOverride": visible}},
	)
	return err
}
