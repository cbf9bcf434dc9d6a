// Package storage 快照归档到 Redis
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/for-sale/internal/session"
)

const (
	// Redis key 前缀
	roomKeyPrefix = "forsale:room:"
	historySuffix = ":history"
	lastSuffix    = ":last"

	DefaultHistory = 50
	DefaultTTL     = 2 * time.Hour
)

// ArchiveOptions 归档参数，零值使用默认值
type ArchiveOptions struct {
	History int           // 每个房间保留的快照数
	TTL     time.Duration // key 过期时间
}

// SnapshotArchive Redis 快照归档
type SnapshotArchive struct {
	client  *redis.Client
	history int64
	ttl     time.Duration
}

// NewSnapshotArchive 创建归档
func NewSnapshotArchive(client *redis.Client, opts ArchiveOptions) *SnapshotArchive {
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &SnapshotArchive{client: client, history: int64(opts.History), ttl: opts.TTL}
}

func historyKey(roomID string) string { return roomKeyPrefix + roomID + historySuffix }
func lastKey(roomID string) string    { return roomKeyPrefix + roomID + lastSuffix }

// Record 追加快照到房间历史并更新最新快照
func (a *SnapshotArchive) Record(ctx context.Context, snap session.Snapshot) error {
	if snap.RoomID == "" {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("序列化快照失败: %w", err)
	}

	hk := historyKey(snap.RoomID)
	_, err = a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, hk, data)
		pipe.LTrim(ctx, hk, 0, a.history-1)
		pipe.Expire(ctx, hk, a.ttl)
		pipe.Set(ctx, lastKey(snap.RoomID), data, a.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("归档房间 %s 失败: %w", snap.RoomID, err)
	}
	return nil
}

// Last 返回最新归档的快照，不存在时返回 nil
func (a *SnapshotArchive) Last(ctx context.Context, roomID string) (*session.Snapshot, error) {
	data, err := a.client.Get(ctx, lastKey(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("反序列化快照失败: %w", err)
	}
	return &snap, nil
}

// History 返回房间的快照历史，最新的在前
func (a *SnapshotArchive) History(ctx context.Context, roomID string) ([]session.Snapshot, error) {
	items, err := a.client.LRange(ctx, historyKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]session.Snapshot, 0, len(items))
	for _, item := range items {
		var snap session.Snapshot
		if err := json.Unmarshal([]byte(item), &snap); err != nil {
			return nil, fmt.Errorf("反序列化快照失败: %w", err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Forget 删除房间的全部归档
func (a *SnapshotArchive) Forget(ctx context.Context, roomID string) error {
	return a.client.Del(ctx, historyKey(roomID), lastKey(roomID)).Err()
}
