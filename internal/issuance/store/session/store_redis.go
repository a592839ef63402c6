package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"policydesk/internal/issuance/models"
	"policydesk/pkg/domain"
	"policydesk/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "issuance:session:"
	quoteKeyPrefix   = "issuance:quote:"
	maxTxRetries     = 3
)

// Redis stores sessions as JSON documents. Writes use WATCH/MULTI so concurrent
// updates to one session are serialized optimistically.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func sessionKey(id domain.SessionID) string {
	return sessionKeyPrefix + id.String()
}

func activeKey(quoteID domain.QuoteID) string {
	return quoteKeyPrefix + quoteID.String() + ":active"
}

func (r *Redis) CreateIfNoneInProgress(ctx context.Context, sess *models.Session) (*models.Session, bool, error) {
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, false, fmt.Errorf("marshal session: %w", err)
	}

	var (
		result  *models.Session
		created bool
	)
	txf := func(tx *redis.Tx) error {
		existingID, err := tx.Get(ctx, activeKey(sess.QuoteID)).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			existing, err := load(ctx, tx, sessionKeyPrefix+existingID)
			if err == nil && existing.IsInProgress() {
				result, created = existing, false
				return nil
			}
			// stale index entry; fall through and replace it
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, sessionKey(sess.ID), payload, 0)
			pipe.Set(ctx, activeKey(sess.QuoteID), sess.ID.String(), 0)
			return nil
		})
		if err != nil {
			return err
		}
		result, created = sess.Clone(), true
		return nil
	}

	if err := r.watch(ctx, txf, activeKey(sess.QuoteID)); err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (r *Redis) FindByID(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	sess, err := load(ctx, r.client, sessionKey(id))
	if err != nil {
		return nil, unavailable(err)
	}
	return sess, nil
}

func (r *Redis) FindInProgressByQuote(ctx context.Context, quoteID domain.QuoteID) (*models.Session, error) {
	id, err := r.client.Get(ctx, activeKey(quoteID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	sess, err := load(ctx, r.client, sessionKeyPrefix+id)
	if err != nil {
		return nil, unavailable(err)
	}
	if !sess.IsInProgress() {
		return nil, sentinel.ErrNotFound
	}
	return sess, nil
}

// Execute loads, validates and mutates one session inside a WATCH transaction,
// retrying a few times when another writer touched the key first.
func (r *Redis) Execute(ctx context.Context, id domain.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	key := sessionKey(id)
	var result *models.Session
	txf := func(tx *redis.Tx) error {
		sess, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := validate(sess); err != nil {
			return err
		}
		mutate(sess)

		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if !sess.IsInProgress() {
				pipe.Del(ctx, activeKey(sess.QuoteID))
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = sess
		return nil
	}

	if err := r.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Redis) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for range maxTxRetries {
		err := r.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return unavailable(err)
	}
	return fmt.Errorf("%w: %w", sentinel.ErrConflict, redis.TxFailedErr)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) (*models.Session, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	if sess.Photos == nil {
		sess.Photos = []models.PhotoRecord{}
	}
	return &sess, nil
}

// unavailable tags transport failures so services can tell them from domain errors.
// Sentinel and coded errors pass through unchanged.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}
