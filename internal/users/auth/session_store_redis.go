// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/opsdash/internal/platform/apperr"
	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/ctxutil"
)

// RedisSessionStore keeps sessions as JSON documents with a TTL, plus a per-user
// index set so that admin changes can reach every session of a user.
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed [SessionStore].
func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string     { return constants.RedisPrefixSession + id }
func userSessionsKey(id string) string { return constants.RedisPrefixUserSessions + id }

/*
Save writes the session document and indexes it under its user.

Parameters:
  - ctx: context.Context
  - s: *Session

Returns:
  - error: Serialization or storage failures
*/
func (store *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis_session_encode_failed: %w", err)
	}

	// Both writes travel in one round trip
	pipe := store.client.TxPipeline()
	pipe.Set(ctx, sessionKey(s.ID), payload, store.ttl)
	pipe.SAdd(ctx, userSessionsKey(s.User.UserID), s.ID)
	pipe.Expire(ctx, userSessionsKey(s.User.UserID), store.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis_session_save_failed: %w", err)
	}
	return nil
}

/*
Update rewrites a session that still exists.

Description: The document is written with SET XX, so a session deleted by a
logout or termination stays deleted. The index is only touched after the
document write succeeded.

Returns:
  - error: apperr.NotFound when the session is gone, or storage failures
*/
func (store *RedisSessionStore) Update(ctx context.Context, s *Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis_session_encode_failed: %w", err)
	}

	written, err := store.client.SetXX(ctx, sessionKey(s.ID), payload, store.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis_session_update_failed: %w", err)
	}
	if !written {
		return apperr.NotFound("Session")
	}

	pipe := store.client.TxPipeline()
	pipe.SAdd(ctx, userSessionsKey(s.User.UserID), s.ID)
	pipe.Expire(ctx, userSessionsKey(s.User.UserID), store.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis_session_update_failed: %w", err)
	}
	return nil
}

/*
Get loads a session by id.

Description: Returns apperr.NotFound when the key is absent or has expired.
*/
func (store *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := store.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("redis_session_decode_failed: %w", err)
	}
	return &session, nil
}

// Delete removes the session document and its index entry.
func (store *RedisSessionStore) Delete(ctx context.Context, id string) error {
	session, err := store.Get(ctx, id)
	if apperr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := store.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, userSessionsKey(session.User.UserID), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}

// ListByUser loads every indexed session of userID and prunes ids whose document expired.
func (store *RedisSessionStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	ids, err := store.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis_session_list_failed: %w", err)
	}

	var sessions []*Session
	for _, id := range ids {
		session, err := store.Get(ctx, id)
		if apperr.IsNotFound(err) {
			if err := store.client.SRem(ctx, userSessionsKey(userID), id).Err(); err != nil {
				ctxutil.GetLogger(ctx).Debug("redis_session_prune_failed", slog.String("session_id", id), slog.Any("error", err))
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
