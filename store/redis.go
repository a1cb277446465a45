// store/redis.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neuralttt/gameserver/models"
)

// RedisStore 生产用实现。棋谱用 list，在线名单用 set，
// undo/redo 靠 LMOVE 的单命令原子性，不需要事务。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration // 房间键的滑动过期时间，0 表示不过期
}

// NewRedisStore 连接 redis 并做一次 ping 探活
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func historyKey(room string) string { return "game:" + room + ":history" }
func futureKey(room string) string  { return "game:" + room + ":future" }
func playersKey(room string) string { return "room:" + room + ":players" }
func metaKey(room string) string    { return "room:" + room + ":metadata" }
func revKey(room string) string     { return "room:" + room + ":revision" }

const globalChatKey = "global_chat_history"

// touch 刷新房间所有键的滑动 TTL
func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, room string) {
	if s.ttl <= 0 {
		return
	}
	for _, key := range []string{historyKey(room), futureKey(room), playersKey(room), metaKey(room), revKey(room)} {
		pipe.Expire(ctx, key, s.ttl)
	}
}

func (s *RedisStore) AppendMove(ctx context.Context, room string, move models.Move) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	raw, err := json.Marshal(move)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, historyKey(room), raw)
	pipe.Del(ctx, futureKey(room))
	s.touch(ctx, pipe, room)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Undo(ctx context.Context, room string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	// 历史尾 -> future 头，单命令原子转移
	err := s.rdb.LMove(ctx, historyKey(room), futureKey(room), "RIGHT", "LEFT").Err()
	if err == redis.Nil {
		return nil // 历史为空，无操作
	}
	return err
}

func (s *RedisStore) Redo(ctx context.Context, room string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	// future 头（最近被撤销的一步）-> 历史尾
	err := s.rdb.LMove(ctx, futureKey(room), historyKey(room), "LEFT", "RIGHT").Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

func (s *RedisStore) Reset(ctx context.Context, room string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	return s.rdb.Del(ctx, historyKey(room), futureKey(room)).Err()
}

func (s *RedisStore) ReadLog(ctx context.Context, room string) ([]models.Move, []models.Move, error) {
	if room == "" {
		return nil, nil, ErrEmptyRoomCode
	}

	pipe := s.rdb.Pipeline()
	historyCmd := pipe.LRange(ctx, historyKey(room), 0, -1)
	futureCmd := pipe.LRange(ctx, futureKey(room), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, nil, err
	}

	history, err := decodeMoves(historyCmd.Val())
	if err != nil {
		return nil, nil, err
	}
	future, err := decodeMoves(futureCmd.Val())
	if err != nil {
		return nil, nil, err
	}
	return history, future, nil
}

func decodeMoves(raw []string) ([]models.Move, error) {
	moves := make([]models.Move, 0, len(raw))
	for _, item := range raw {
		var mv models.Move
		if err := json.Unmarshal([]byte(item), &mv); err != nil {
			return nil, fmt.Errorf("decode move: %w", err)
		}
		moves = append(moves, mv)
	}
	return moves, nil
}

func (s *RedisStore) NextRevision(ctx context.Context, room string) (int64, error) {
	return s.rdb.Incr(ctx, revKey(room)).Result()
}

func (s *RedisStore) JoinRoom(ctx context.Context, room, username string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, playersKey(room), username)
	s.touch(ctx, pipe, room)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) LeaveRoom(ctx context.Context, room, username string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	return s.rdb.SRem(ctx, playersKey(room), username).Err()
}

func (s *RedisStore) Members(ctx context.Context, room string) ([]string, error) {
	if room == "" {
		return nil, ErrEmptyRoomCode
	}
	return s.rdb.SMembers(ctx, playersKey(room)).Result()
}

func (s *RedisStore) SetGridSize(ctx context.Context, room string, n int) (int, error) {
	if room == "" {
		return 0, ErrEmptyRoomCode
	}
	n = ClampGridSize(n)
	if err := s.rdb.HSetNX(ctx, metaKey(room), "gridSize", n).Err(); err != nil {
		return 0, err
	}
	return s.GridSize(ctx, room)
}

func (s *RedisStore) GridSize(ctx context.Context, room string) (int, error) {
	if room == "" {
		return 0, ErrEmptyRoomCode
	}
	val, err := s.rdb.HGet(ctx, metaKey(room), "gridSize").Result()
	if err == redis.Nil {
		return DefaultGridSize, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return DefaultGridSize, nil
	}
	return ClampGridSize(n), nil
}

func (s *RedisStore) PushGlobalChat(ctx context.Context, msg models.ChatMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	// 新消息压到头部，LTRIM 截断成固定长度的环
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, globalChatKey, raw)
	pipe.LTrim(ctx, globalChatKey, 0, GlobalChatCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GlobalChatHistory(ctx context.Context) ([]models.ChatMessage, error) {
	raw, err := s.rdb.LRange(ctx, globalChatKey, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	// 存储顺序是最新在前，回放时反转成最新在后
	msgs := make([]models.ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			return nil, fmt.Errorf("decode chat message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
