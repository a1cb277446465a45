package network

// 消息ID按功能分段：1xx 房间、2xx 对局、3xx 服务器推送、
// 4xx 聊天、5xx 排行榜
const (
	MsgTypeHeartbeat = 1
	MsgTypeError     = 2

	MsgTypeJoinRoom   = 101
	MsgTypeLeaveRoom  = 102
	MsgTypeRoomStatus = 103

	MsgTypeSendMove    = 201
	MsgTypeRequestUndo = 202
	MsgTypeRequestRedo = 203
	MsgTypeResetGame   = 204

	MsgTypeSyncState       = 301
	MsgTypeOpponentLeftWin = 302

	MsgTypeRoomMessage       = 401
	MsgTypeRoomMessageRecv   = 402
	MsgTypeGlobalMessage     = 403
	MsgTypeGlobalMessageRecv = 404
	MsgTypeGetChatHistory    = 405
	MsgTypeChatHistory       = 406

	MsgTypeRecordWin      = 501
	MsgTypeGetLeaderboard = 502
	MsgTypeLeaderboard    = 503
)
