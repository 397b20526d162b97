package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"microlearn/internal/model"
)

// TopicCache is a read-through cache of an owner's topics per category. It
// feeds the duplicate matcher so repeat generation requests avoid a database
// round trip; it is invalidated whenever a topic is inserted or its
// visibility changes.
type TopicCache interface {
	SetTopics(ctx context.Context, ownerID, category string, topics []*model.Topic) error
	GetTopics(ctx context.Context, ownerID, category string) ([]*model.Topic, error)
	Invalidate(ctx context.Context, ownerID, category string) error
}

type topicCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTopicCache creates a new topic cache
func NewTopicCache(client *redis.Client) TopicCache {
	return &topicCache{
		client: client,
		ttl:    15 * time.Minute,
	}
}

func (c *topicCache) key(ownerID, category string) string {
	return fmt.Sprintf("owner:%s:cat:%s:topics", ownerID, category)
}

func (c *topicCache) SetTopics(ctx context.Context, ownerID, category string, topics []*model.Topic) error {
	data, err := json.Marshal(topics)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(ownerID, category), data, c.ttl).Err()
}

// GetTopics returns nil, nil on a cache miss.
func (c *topicCache) GetTopics(ctx context.Context, ownerID, category string) ([]*model.Topic, error) {
	data, err := c.client.Get(ctx, c.key(ownerID, category)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var topics []*model.Topic
	if err := json.Unmarshal([]byte(data), &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

func (c *topicCache) Invalidate(ctx context.Context, ownerID, category string) error {
	return c.client.Del(ctx, c.key(ownerID, category)).Err()
}
