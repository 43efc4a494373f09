package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
)

// IndexDirtyKey 是记录同步失败文档 ID 的 Redis 集合。
// 它只供运维查看与 archivectl index repair 使用，不会被自动消费。
const IndexDirtyKey = "archive:index:dirty"

// IndexStateRepository 记录搜索索引与记录库之间可能不一致的文档。
type IndexStateRepository interface {
	MarkDirty(ctx context.Context, ids ...uint) error
	ClearDirty(ctx context.Context, ids ...uint) error
	ListDirty(ctx context.Context) ([]uint, error)
	Reset(ctx context.Context) error
}

// NewIndexStateRepository 有 Redis 时使用 Redis 集合，否则退化为进程内集合。
func NewIndexStateRepository(redisClient *redis.Client) IndexStateRepository {
	if redisClient == nil {
		return NewMemoryIndexStateRepository()
	}
	return &redisIndexStateRepository{redisClient: redisClient}
}

type redisIndexStateRepository struct {
	redisClient *redis.Client
}

func (r *redisIndexStateRepository) MarkDirty(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.redisClient.SAdd(ctx, IndexDirtyKey, toMembers(ids)...).Err(); err != nil {
		return fmt.Errorf("failed to mark index dirty: %w", err)
	}
	return nil
}

func (r *redisIndexStateRepository) ClearDirty(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.redisClient.SRem(ctx, IndexDirtyKey, toMembers(ids)...).Err(); err != nil {
		return fmt.Errorf("failed to clear index dirty: %w", err)
	}
	return nil
}

func (r *redisIndexStateRepository) ListDirty(ctx context.Context) ([]uint, error) {
	members, err := r.redisClient.SMembers(ctx, IndexDirtyKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list index dirty: %w", err)
	}
	return parseMembers(members), nil
}

func (r *redisIndexStateRepository) Reset(ctx context.Context) error {
	return r.redisClient.Del(ctx, IndexDirtyKey).Err()
}

// memoryIndexStateRepository 是进程内实现，用于未配置 Redis 的部署与测试。
type memoryIndexStateRepository struct {
	mu  sync.Mutex
	ids map[uint]struct{}
}

// NewMemoryIndexStateRepository 创建进程内的脏集合。
func NewMemoryIndexStateRepository() IndexStateRepository {
	return &memoryIndexStateRepository{ids: make(map[uint]struct{})}
}

func (m *memoryIndexStateRepository) MarkDirty(_ context.Context, ids ...uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
	return nil
}

func (m *memoryIndexStateRepository) ClearDirty(_ context.Context, ids ...uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.ids, id)
	}
	return nil
}

func (m *memoryIndexStateRepository) ListDirty(context.Context) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memoryIndexStateRepository) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = make(map[uint]struct{})
	return nil
}

func toMembers(ids []uint) []interface{} {
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = strconv.FormatUint(uint64(id), 10)
	}
	return members
}

// parseMembers 忽略无法解析的成员，结果按升序排列。
func parseMembers(members []string) []uint {
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
