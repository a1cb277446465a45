// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/neuralttt/gameserver/logger"
	"github.com/neuralttt/gameserver/room"
	"github.com/neuralttt/gameserver/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgID uint16, v interface{}) error
	BroadcastToAll(msgID uint16, v interface{}) error
}

// RoomBroadcaster 按房间的会话集合做扇出。单个连接发送失败
// 只记日志不打断其余成员，掉线连接由网关的断开路径清理。
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomCode string, msgID uint16, v interface{}) error {
	r, exists := b.roomManager.Get(roomCode)
	if !exists {
		return ErrRoomNotFound
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	for _, s := range r.Sessions() {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("Broadcast to session %s in room %s failed: %v", s.GetID(), roomCode, err)
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) BroadcastToAll(msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("Global broadcast to session %s failed: %v", s.GetID(), err)
			continue
		}
	}
	return nil
}
