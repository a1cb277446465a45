// services/sync_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neuralttt/gameserver/broadcast"
	"github.com/neuralttt/gameserver/game"
	"github.com/neuralttt/gameserver/logger"
	"github.com/neuralttt/gameserver/models"
	"github.com/neuralttt/gameserver/network"
	"github.com/neuralttt/gameserver/room"
	"github.com/neuralttt/gameserver/state"
	"github.com/neuralttt/gameserver/store"
)

// Metrics 同步服务的观测埋点，由 monitor 实现，可以为 nil
type Metrics interface {
	MoveApplied()
	SyncSent(latency time.Duration)
}

// MoveError 被拒绝的落子，带回给发送者的错误码
type MoveError struct {
	Code    string
	Message string
}

func (e *MoveError) Error() string { return e.Message }

func (e *MoveError) Notice() models.ErrorNotice {
	return models.ErrorNotice{Code: e.Code, Message: e.Message}
}

var (
	ErrCellOccupied = &MoveError{Code: "cell_occupied", Message: "cell is already occupied"}
	ErrGameOver     = &MoveError{Code: "game_over", Message: "game is already concluded"}
	ErrOutOfBounds  = &MoveError{Code: "out_of_bounds", Message: "move index out of bounds"}
)

// SyncService 权威对局状态的唯一写入口。
// 落子、悔棋、重做、重置都走这里：先改棋谱，再把重放出的
// 完整状态广播给整个房间。客户端永远不自己推演状态。
type SyncService struct {
	store   store.GameStore
	rooms   *room.Manager
	bcast   broadcast.Broadcaster
	metrics Metrics

	// 同一房间的"读谱-校验-落子"必须串行，否则两个并发
	// 落子可能都通过校验落进同一格
	locks sync.Map // room code -> *sync.Mutex
}

func NewSyncService(st store.GameStore, rooms *room.Manager, b broadcast.Broadcaster, m Metrics) *SyncService {
	return &SyncService{store: st, rooms: rooms, bcast: b, metrics: m}
}

func (s *SyncService) roomLock(code string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(code, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Snapshot 重放棋谱得到当前权威状态并盖上版本号
func (s *SyncService) Snapshot(ctx context.Context, roomCode string) (*models.SyncState, error) {
	history, future, err := s.store.ReadLog(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	gridSize, err := s.store.GridSize(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("read grid size: %w", err)
	}

	if history == nil {
		history = []models.Move{}
	}
	if future == nil {
		future = []models.Move{}
	}

	board := game.ReplayBoard(history, gridSize)
	result := game.Evaluate(board, gridSize)

	st := &models.SyncState{
		Board:         board,
		History:       history,
		Future:        future,
		CurrentPlayer: game.CurrentPlayer(len(history)),
		Winner:        result.Winner,
		WinningCells:  result.WinningCells,
	}
	if st.WinningCells == nil {
		st.WinningCells = []int{}
	}
	if len(history) > 0 {
		last := history[len(history)-1].Index
		st.LastMove = &last
	}

	st.Revision, err = s.store.NextRevision(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("next revision: %w", err)
	}
	return st, nil
}

// Sync 把当前状态广播给房间内所有连接
func (s *SyncService) Sync(ctx context.Context, roomCode string) (*models.SyncState, error) {
	start := time.Now()

	st, err := s.Snapshot(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	// 带着状态机走一遍相位转移，非法跳变会被记下来
	if r, ok := s.rooms.Get(roomCode); ok {
		phase := state.PhaseOf(len(st.History), st.Winner)
		if err := r.Phase.Observe(phase); err != nil {
			logger.Log.Warnw("phase transition rejected",
				"room", roomCode, "to", phase.String(), "error", err)
		}
		r.Touch()
	}

	if err := s.bcast.BroadcastToRoom(roomCode, network.MsgTypeSyncState, st); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SyncSent(time.Since(start))
	}
	return st, nil
}

// ApplyMove 校验并落子。符号由棋谱长度决定（X 先手），
// 不信任客户端自报的执子方。
func (s *SyncService) ApplyMove(ctx context.Context, roomCode string, index int) error {
	mu := s.roomLock(roomCode)
	mu.Lock()
	defer mu.Unlock()

	history, _, err := s.store.ReadLog(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	gridSize, err := s.store.GridSize(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("read grid size: %w", err)
	}

	if index < 0 || index >= gridSize*gridSize {
		return ErrOutOfBounds
	}
	board := game.ReplayBoard(history, gridSize)
	if game.Evaluate(board, gridSize).Winner != "" {
		return ErrGameOver
	}
	if board[index] != game.Empty {
		return ErrCellOccupied
	}

	move := models.Move{Index: index, Symbol: game.NextSymbol(len(history))}
	if err := s.store.AppendMove(ctx, roomCode, move); err != nil {
		return fmt.Errorf("append move: %w", err)
	}
	if s.metrics != nil {
		s.metrics.MoveApplied()
	}

	_, err = s.Sync(ctx, roomCode)
	return err
}

// HandleUndo 回退一步。空历史是无操作，但照样广播一次
// 当前状态，保证请求方不会停在一个陈旧视图上。
func (s *SyncService) HandleUndo(ctx context.Context, roomCode string) error {
	mu := s.roomLock(roomCode)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.Undo(ctx, roomCode); err != nil {
		return fmt.Errorf("undo: %w", err)
	}
	_, err := s.Sync(ctx, roomCode)
	return err
}

// HandleRedo 重做最近一步被回退的落子
func (s *SyncService) HandleRedo(ctx context.Context, roomCode string) error {
	mu := s.roomLock(roomCode)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.Redo(ctx, roomCode); err != nil {
		return fmt.Errorf("redo: %w", err)
	}
	_, err := s.Sync(ctx, roomCode)
	return err
}

// HandleReset 清空棋谱重开一局，棋盘尺寸保持不变
func (s *SyncService) HandleReset(ctx context.Context, roomCode string) error {
	mu := s.roomLock(roomCode)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.Reset(ctx, roomCode); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if r, ok := s.rooms.Get(roomCode); ok {
		r.Phase.Reset()
	}
	_, err := s.Sync(ctx, roomCode)
	return err
}

// ForgetRoom 丢弃房间的串行锁，房间被回收时调用
func (s *SyncService) ForgetRoom(roomCode string) {
	s.locks.Delete(roomCode)
}
