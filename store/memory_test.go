package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralttt/gameserver/models"
)

func TestMemoryStore_UnknownRoomReadsEmpty(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	history, future, err := s.ReadLog(ctx, "NOPE")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, future)

	members, err := s.Members(ctx, "NOPE")
	require.NoError(t, err)
	assert.Empty(t, members)

	n, err := s.GridSize(ctx, "NOPE")
	require.NoError(t, err)
	assert.Equal(t, DefaultGridSize, n)
}

// n 次落子后 n 次撤销必须回到空棋谱，再 n 次重做必须
// 原样恢复原始历史序列
func TestMemoryStore_UndoRedoRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	room := "AB12"

	moves := []models.Move{
		{Index: 0, Symbol: "X"},
		{Index: 4, Symbol: "O"},
		{Index: 8, Symbol: "X"},
		{Index: 2, Symbol: "O"},
	}
	for _, mv := range moves {
		require.NoError(t, s.AppendMove(ctx, room, mv))
	}

	for range moves {
		require.NoError(t, s.Undo(ctx, room))
	}
	history, future, err := s.ReadLog(ctx, room)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Len(t, future, len(moves))

	for range moves {
		require.NoError(t, s.Redo(ctx, room))
	}
	history, future, err = s.ReadLog(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, moves, history)
	assert.Empty(t, future)
}

// 撤销后的新落子（非 redo）必须清空 future：不能 redo 回
// 一条已被放弃的分支
func TestMemoryStore_NewMoveInvalidatesRedo(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	room := "AB12"

	require.NoError(t, s.AppendMove(ctx, room, models.Move{Index: 0, Symbol: "X"}))
	require.NoError(t, s.AppendMove(ctx, room, models.Move{Index: 1, Symbol: "O"}))
	require.NoError(t, s.Undo(ctx, room))

	_, future, err := s.ReadLog(ctx, room)
	require.NoError(t, err)
	require.Len(t, future, 1)

	require.NoError(t, s.AppendMove(ctx, room, models.Move{Index: 5, Symbol: "O"}))

	_, future, err = s.ReadLog(ctx, room)
	require.NoError(t, err)
	assert.Empty(t, future, "future must be cleared by a fresh move")
}

func TestMemoryStore_UndoRedoEmptyNoOp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Undo(ctx, "AB12"))
	require.NoError(t, s.Redo(ctx, "AB12"))

	history, future, err := s.ReadLog(ctx, "AB12")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, future)
}

func TestMemoryStore_Reset(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	room := "AB12"

	require.NoError(t, s.AppendMove(ctx, room, models.Move{Index: 0, Symbol: "X"}))
	require.NoError(t, s.Undo(ctx, room))
	require.NoError(t, s.Reset(ctx, room))

	history, future, err := s.ReadLog(ctx, room)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, future)
}

func TestMemoryStore_PresenceIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	room := "AB12"

	require.NoError(t, s.JoinRoom(ctx, room, "alice"))
	require.NoError(t, s.JoinRoom(ctx, room, "alice"))
	require.NoError(t, s.JoinRoom(ctx, room, "bob"))

	members, err := s.Members(ctx, room)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, members)

	require.NoError(t, s.LeaveRoom(ctx, room, "alice"))
	members, err = s.Members(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, members)
}

// 首个写入者决定棋盘尺寸，后来者拿到的是已定的尺寸
func TestMemoryStore_GridSizeFirstWriterWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	n, err := s.SetGridSize(ctx, "AB12", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = s.SetGridSize(ctx, "AB12", 7)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// 非法尺寸回落到 3
	n, err = s.SetGridSize(ctx, "XY99", 42)
	require.NoError(t, err)
	assert.Equal(t, DefaultGridSize, n)
}

func TestMemoryStore_Revision(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		rev, err := s.NextRevision(ctx, "AB12")
		require.NoError(t, err)
		require.Greater(t, rev, last)
		last = rev
	}

	// 不同房间互不影响
	rev, err := s.NextRevision(ctx, "CD34")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
}

// 推 25 条消息只留最近 20 条，回放顺序最新在后
func TestMemoryStore_GlobalChatRing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		msg := models.ChatMessage{Username: "alice", Text: fmt.Sprintf("msg-%d", i)}
		require.NoError(t, s.PushGlobalChat(ctx, msg))
	}

	history, err := s.GlobalChatHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, GlobalChatCap)
	assert.Equal(t, "msg-6", history[0].Text)
	assert.Equal(t, "msg-25", history[len(history)-1].Text)
}

// 并发 undo 恰好转移一步，不能重复也不能丢
func TestMemoryStore_ConcurrentUndoTransfersOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	room := "AB12"

	require.NoError(t, s.AppendMove(ctx, room, models.Move{Index: 0, Symbol: "X"}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Undo(ctx, room)
		}()
	}
	wg.Wait()

	history, future, err := s.ReadLog(ctx, room)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Len(t, future, 1)
}

func TestMemoryStore_EmptyRoomCodeRejected(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.AppendMove(ctx, "", models.Move{}), ErrEmptyRoomCode)
	assert.ErrorIs(t, s.Undo(ctx, ""), ErrEmptyRoomCode)
	_, _, err := s.ReadLog(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyRoomCode)
}
