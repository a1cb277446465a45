// store/store.go
package store

import (
	"context"
	"errors"

	"github.com/neuralttt/gameserver/models"
)

var (
	ErrEmptyRoomCode = errors.New("empty room code")
)

const (
	DefaultGridSize = 3
	MinGridSize     = 3
	MaxGridSize     = 10

	// 全局聊天只保留最近 20 条
	GlobalChatCap = 20
)

// GameStore 房间棋谱、在线名单和全局聊天的后端存储。
// 所有操作以房间码为作用域；不存在的房间一律当空房间读，
// 房间因此可以被任意客户端"隐式创建"。
//
// 并发契约：同一房间的 Undo/Redo/AppendMove 必须原子化——
// 两个并发 undo 恰好转移一步，不能重复也不能丢失。
type GameStore interface {
	// AppendMove 追加到历史尾部，并整体清空 future（redo 链断裂）
	AppendMove(ctx context.Context, room string, move models.Move) error
	// Undo 把最近一条历史原子转移到 future 头部，历史为空时无操作
	Undo(ctx context.Context, room string) error
	// Redo 把最近一条 future 原子转移回历史尾部，future 为空时无操作
	Redo(ctx context.Context, room string) error
	// Reset 清空两个栈
	Reset(ctx context.Context, room string) error
	// ReadLog 返回 (history, future) 两个有序序列
	ReadLog(ctx context.Context, room string) (history, future []models.Move, err error)
	// NextRevision 返回该房间单调递增的同步版本号
	NextRevision(ctx context.Context, room string) (int64, error)

	// JoinRoom 加入在线名单，同名重复加入幂等
	JoinRoom(ctx context.Context, room, username string) error
	LeaveRoom(ctx context.Context, room, username string) error
	Members(ctx context.Context, room string) ([]string, error)

	// SetGridSize 首个写入者生效（棋盘尺寸在建房时固定），返回实际尺寸
	SetGridSize(ctx context.Context, room string, n int) (int, error)
	GridSize(ctx context.Context, room string) (int, error)

	PushGlobalChat(ctx context.Context, msg models.ChatMessage) error
	// GlobalChatHistory 返回最近 GlobalChatCap 条，最新的在末尾
	GlobalChatHistory(ctx context.Context) ([]models.ChatMessage, error)

	Close() error
}

// ClampGridSize 非法尺寸回落到默认值 3
func ClampGridSize(n int) int {
	if n < MinGridSize || n > MaxGridSize {
		return DefaultGridSize
	}
	return n
}
