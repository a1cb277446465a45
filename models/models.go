// models/models.go
package models

// Move 单步落子，追加到房间历史后不可变
type Move struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol"` // "X" or "O"
}

// SyncState 同步给房间内所有玩家的权威游戏状态
type SyncState struct {
	Board         []string `json:"board"`
	History       []Move   `json:"history"`
	Future        []Move   `json:"future"`
	CurrentPlayer string   `json:"currentPlayer"`
	Winner        string   `json:"winner"` // "X", "O", "Draw" or ""
	WinningCells  []int    `json:"winningCells"`
	LastMove      *int     `json:"lastMove"`
	Revision      int64    `json:"revision"`
}

// RoomStatus 房间在线状态广播
type RoomStatus struct {
	Count    int      `json:"count"`
	Players  []string `json:"players"`
	GridSize int      `json:"gridSize,omitempty"`
	Ready    bool     `json:"ready"`
	Message  string   `json:"message"`
}

// ForfeitNotice 对手逃跑，判定剩余玩家获胜
type ForfeitNotice struct {
	Winner  string `json:"winner"`
	Message string `json:"message"`
}

// ChatMessage 聊天消息（房间内或全局）
type ChatMessage struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Time     string `json:"time"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	XP       int64  `json:"xp"`
	Rank     string `json:"rank"`
}

// UserProfile 对外暴露的用户信息（不含密码）
type UserProfile struct {
	Username string `json:"username"`
	Rank     string `json:"rank"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
	XP       int64  `json:"xp"`
}

// --- 客户端请求 payload ---

type JoinRoomRequest struct {
	Room     string `json:"room"`
	GridSize int    `json:"gridSize"`
}

type RoomRequest struct {
	Room string `json:"room"`
}

type MoveRequest struct {
	Room  string `json:"room"`
	Index int    `json:"index"`
}

type RoomChatRequest struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

type GlobalChatRequest struct {
	Text string `json:"text"`
}

type RecordWinRequest struct {
	Username string `json:"username"`
}

// ErrorNotice 被拒绝的请求回给发送者的错误事件
type ErrorNotice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
