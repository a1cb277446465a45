// store/memory.go
package store

import (
	"context"
	"sync"

	"github.com/neuralttt/gameserver/models"
)

// MemoryStore 进程内实现，用于测试和无 redis 的单机部署。
// 一把锁串行化所有房间操作，天然满足原子转移契约。
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*memoryRoom
	chat  []models.ChatMessage // 最新在前，与 redis LPUSH 布局一致
}

type memoryRoom struct {
	history  []models.Move
	future   []models.Move
	players  map[string]struct{}
	gridSize int
	revision int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*memoryRoom)}
}

// roomLocked 不存在的房间当空房间创建，调用方必须持有写锁
func (s *MemoryStore) roomLocked(room string) *memoryRoom {
	r, ok := s.rooms[room]
	if !ok {
		r = &memoryRoom{players: make(map[string]struct{})}
		s.rooms[room] = r
	}
	return r
}

func (s *MemoryStore) AppendMove(_ context.Context, room string, move models.Move) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.roomLocked(room)
	r.history = append(r.history, move)
	r.future = nil
	return nil
}

func (s *MemoryStore) Undo(_ context.Context, room string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.roomLocked(room)
	if len(r.history) == 0 {
		return nil
	}
	last := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	r.future = append([]models.Move{last}, r.future...)
	return nil
}

func (s *MemoryStore) Redo(_ context.Context, room string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.roomLocked(room)
	if len(r.future) == 0 {
		return nil
	}
	first := r.future[0]
	r.future = r.future[1:]
	r.history = append(r.history, first)
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, room string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.roomLocked(room)
	r.history = nil
	r.future = nil
	return nil
}

func (s *MemoryStore) ReadLog(_ context.Context, room string) ([]models.Move, []models.Move, error) {
	if room == "" {
		return nil, nil, ErrEmptyRoomCode
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[room]
	if !ok {
		return []models.Move{}, []models.Move{}, nil
	}
	history := append([]models.Move{}, r.history...)
	future := append([]models.Move{}, r.future...)
	return history, future, nil
}

func (s *MemoryStore) NextRevision(_ context.Context, room string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.roomLocked(room)
	r.revision++
	return r.revision, nil
}

func (s *MemoryStore) JoinRoom(_ context.Context, room, username string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roomLocked(room).players[username] = struct{}{}
	return nil
}

func (s *MemoryStore) LeaveRoom(_ context.Context, room, username string) error {
	if room == "" {
		return ErrEmptyRoomCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rooms[room]; ok {
		delete(r.players, username)
	}
	return nil
}

func (s *MemoryStore) Members(_ context.Context, room string) ([]string, error) {
	if room == "" {
		return nil, ErrEmptyRoomCode
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[room]
	if !ok {
		return []string{}, nil
	}
	members := make([]string, 0, len(r.players))
	for name := range r.players {
		members = append(members, name)
	}
	return members, nil
}

func (s *MemoryStore) SetGridSize(_ context.Context, room string, n int) (int, error) {
	if room == "" {
		return 0, ErrEmptyRoomCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.roomLocked(room)
	if r.gridSize == 0 {
		r.gridSize = ClampGridSize(n)
	}
	return r.gridSize, nil
}

func (s *MemoryStore) GridSize(_ context.Context, room string) (int, error) {
	if room == "" {
		return 0, ErrEmptyRoomCode
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.rooms[room]; ok && r.gridSize != 0 {
		return r.gridSize, nil
	}
	return DefaultGridSize, nil
}

func (s *MemoryStore) PushGlobalChat(_ context.Context, msg models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chat = append([]models.ChatMessage{msg}, s.chat...)
	if len(s.chat) > GlobalChatCap {
		s.chat = s.chat[:GlobalChatCap]
	}
	return nil
}

func (s *MemoryStore) GlobalChatHistory(_ context.Context) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]models.ChatMessage, 0, len(s.chat))
	for i := len(s.chat) - 1; i >= 0; i-- {
		msgs = append(msgs, s.chat[i])
	}
	return msgs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
