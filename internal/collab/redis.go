package collab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisDirectory reads collaborator state that other subsystems keep in Redis:
//
//	ban:<user>      string, present while banned
//	access:<user>   string, present once the user paid or redeemed a code
//	reports:<user>  set of user ids the user reported
//	intros:<user>   set of user ids introduced to the user
type RedisDirectory struct {
	rdb *redis.Client
}

func NewRedisDirectory(rdb *redis.Client) *RedisDirectory {
	return &RedisDirectory{rdb: rdb}
}

func banKey(id uuid.UUID) string { return "ban:" + id.String() }
func accessKey(id uuid.UUID) string { return "access:" + id.String() }
func reportsKey(id uuid.UUID) string { return "reports:" + id.String() }
func introsKey(id uuid.UUID) string { return "intros:" + id.String() }

func (d *RedisDirectory) IsBanned(ctx context.Context, userID uuid.UUID) (bool, error) {
	status, err := d.rdb.Get(ctx, banKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read ban status: %w", err)
	}
	return status != "", nil
}

func (d *RedisDirectory) HasAccess(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := d.rdb.Exists(ctx, accessKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("read access gate: %w", err)
	}
	return n > 0, nil
}

func (d *RedisDirectory) ReportedBy(ctx context.Context, reporterID uuid.UUID) (map[uuid.UUID]bool, error) {
	return d.members(ctx, reportsKey(reporterID))
}

func (d *RedisDirectory) IntroducedTo(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	return d.members(ctx, introsKey(userID))
}

// members reads a set of user ids. Entries that are not ids are skipped.
func (d *RedisDirectory) members(ctx context.Context, key string) (map[uuid.UUID]bool, error) {
	raw, err := d.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	out := make(map[uuid.UUID]bool, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			out[id] = true
		}
	}
	return out, nil
}

// Ban marks the user banned. A zero ttl bans until the key is removed.
func (d *RedisDirectory) Ban(ctx context.Context, userID uuid.UUID, reason string, ttl time.Duration) error {
	if reason == "" {
		reason = "banned"
	}
	return d.rdb.Set(ctx, banKey(userID), reason, ttl).Err()
}

func (d *RedisDirectory) GrantAccess(ctx context.Context, userID uuid.UUID) error {
	return d.rdb.Set(ctx, accessKey(userID), "granted", 0).Err()
}

func (d *RedisDirectory) Report(ctx context.Context, reporterID, reportedID uuid.UUID) error {
	return d.rdb.SAdd(ctx, reportsKey(reporterID), reportedID.String()).Err()
}

func (d *RedisDirectory) Introduce(ctx context.Context, userID, subjectID uuid.UUID) error {
	return d.rdb.SAdd(ctx, introsKey(userID), subjectID.String()).Err()
}
