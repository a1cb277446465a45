package room

import (
	"net"
	"testing"
	"time"

	"github.com/neuralttt/gameserver/network"
	"github.com/neuralttt/gameserver/session"
	"github.com/neuralttt/gameserver/state"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error      { return nil }
func (m *MockConnection) SendJSON(msgID uint16, v interface{}) error { return nil }
func (m *MockConnection) Close() error                              { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                      { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)       {}
func (m *MockConnection) ReadPacket() (*network.Packet, error)      { return nil, nil }

func newTestSession(id string) *session.Session {
	return session.NewSession(id, "user_"+id, &MockConnection{})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewRoomManager()

	room := manager.GetOrCreate("AB12", 4)
	if room == nil {
		t.Fatal("GetOrCreate should not return nil")
	}
	if room.Code != "AB12" {
		t.Errorf("Expected room code AB12, got %s", room.Code)
	}
	if room.GridSize != 4 {
		t.Errorf("Expected grid size 4, got %d", room.GridSize)
	}

	// 再次获取必须拿到同一个实例，gridSize 不被覆盖
	again := manager.GetOrCreate("AB12", 7)
	if again != room {
		t.Fatal("GetOrCreate should return the same room instance")
	}
	if again.GridSize != 4 {
		t.Errorf("Grid size must be fixed at creation, got %d", again.GridSize)
	}

	if manager.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", manager.Count())
	}
}

func TestRoom_AddRemoveSession(t *testing.T) {
	manager := NewRoomManager()
	room := manager.GetOrCreate("AB12", 3)

	s1 := newTestSession("s1")
	s2 := newTestSession("s2")

	room.AddSession(s1)
	room.AddSession(s2)
	if room.SessionCount() != 2 {
		t.Fatalf("Expected 2 sessions, got %d", room.SessionCount())
	}

	room.RemoveSession(s1.GetID())
	if room.SessionCount() != 1 {
		t.Errorf("Expected 1 session after removal, got %d", room.SessionCount())
	}

	sessions := room.Sessions()
	if len(sessions) != 1 || sessions[0] != s2 {
		t.Error("Sessions snapshot should contain only the remaining session")
	}
}

func TestManager_ReapIdle(t *testing.T) {
	manager := NewRoomManager()

	idle := manager.GetOrCreate("IDLE", 3)
	busy := manager.GetOrCreate("BUSY", 3)
	busy.AddSession(newTestSession("s1"))

	// 人为把闲置房间的活跃时间拨到过去
	idle.mutex.Lock()
	idle.lastActive = time.Now().Add(-time.Hour)
	idle.mutex.Unlock()

	reaped := manager.ReapIdle(30 * time.Minute)
	if len(reaped) != 1 || reaped[0] != "IDLE" {
		t.Fatalf("Expected to reap only IDLE, got %v", reaped)
	}

	if _, exists := manager.Get("IDLE"); exists {
		t.Error("Reaped room should be gone")
	}
	if _, exists := manager.Get("BUSY"); !exists {
		t.Error("Room with sessions must survive reaping")
	}
}

func TestManager_CountInPhase(t *testing.T) {
	manager := NewRoomManager()

	a := manager.GetOrCreate("A", 3)
	manager.GetOrCreate("B", 3)

	_ = a.Phase.Observe(state.PhaseInProgress)

	if got := manager.CountInPhase(state.PhaseInProgress); got != 1 {
		t.Errorf("Expected 1 room in progress, got %d", got)
	}
	if got := manager.CountInPhase(state.PhaseEmpty); got != 1 {
		t.Errorf("Expected 1 empty room, got %d", got)
	}
}
