package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/grovetools/compass/pkg/logging"
)

const messagesKey = "messages"

// Message roles.
const (
	RoleUser  = "user"
	RoleCoach = "coach"
)

// Message is one cached onboarding chat message.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageCache caches onboarding chat messages per user.
type MessageCache struct {
	store Store
	now   func() time.Time
}

// NewMessageCache creates a cache backed by store.
func NewMessageCache(store Store) *MessageCache {
	return &MessageCache{store: store, now: time.Now}
}

// Load returns the cached messages for user, or nil when none are cached.
func (c *MessageCache) Load(ctx context.Context, user string) ([]Message, error) {
	raw, ok, err := c.store.Get(ctx, user, messagesKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return decodeMessages(user, raw)
}

func decodeMessages(user, raw string) ([]Message, error) {
	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("decode cached messages for %q: %w", user, err)
	}
	return messages, nil
}

// Save replaces the cached messages for user.
func (c *MessageCache) Save(ctx context.Context, user string, messages []Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	if err := c.store.Set(ctx, user, messagesKey, string(data)); err != nil {
		return err
	}
	logging.NewLogger("compass.cache").
		WithField("user", user).
		WithField("count", len(messages)).
		Debug("saved onboarding messages")
	return nil
}

// Append adds a message to the user's cache and returns it with its id and
// timestamp assigned. The read and write happen in one store update, so
// concurrent appends for the same user are all kept.
func (c *MessageCache) Append(ctx context.Context, user, role, content string) (Message, error) {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: c.now().UTC(),
	}

	var count int
	err := c.store.Update(ctx, user, messagesKey, func(current string, ok bool) (string, error) {
		var messages []Message
		if ok {
			decoded, err := decodeMessages(user, current)
			if err != nil {
				return "", err
			}
			messages = decoded
		}
		messages = append(messages, msg)
		count = len(messages)

		data, err := json.Marshal(messages)
		if err != nil {
			return "", fmt.Errorf("encode messages: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return Message{}, err
	}

	logging.NewLogger("compass.cache").
		WithField("user", user).
		WithField("count", count).
		Debug("appended onboarding message")
	return msg, nil
}

// Has reports whether anything is cached for user.
func (c *MessageCache) Has(ctx context.Context, user string) (bool, error) {
	return c.store.Has(ctx, user, messagesKey)
}

// Clear drops the user's cached messages.
func (c *MessageCache) Clear(ctx context.Context, user string) error {
	return c.store.Delete(ctx, user, messagesKey)
}
