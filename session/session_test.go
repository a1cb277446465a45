package session

import (
	"net"
	"testing"
	"time"

	"github.com/neuralttt/gameserver/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error      { return nil }
func (m *MockConnection) SendJSON(msgID uint16, v interface{}) error { return nil }
func (m *MockConnection) Close() error                              { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                      { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)       {}
func (m *MockConnection) ReadPacket() (*network.Packet, error)      { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, "alice", &MockConnection{})

	// Test Add
	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	// Test Get
	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_GetByUsername(t *testing.T) {
	manager := NewManager()

	manager.Add(NewSession("session1", "alice", &MockConnection{}))
	manager.Add(NewSession("session2", "bob", &MockConnection{}))
	manager.Add(NewSession("session3", "alice", &MockConnection{}))

	aliceSessions := manager.GetByUsername("alice")
	if len(aliceSessions) != 2 {
		t.Errorf("Expected 2 sessions for alice, got %d", len(aliceSessions))
	}

	bobSessions := manager.GetByUsername("bob")
	if len(bobSessions) != 1 {
		t.Errorf("Expected 1 session for bob, got %d", len(bobSessions))
	}

	carolSessions := manager.GetByUsername("carol")
	if len(carolSessions) != 0 {
		t.Errorf("Expected 0 sessions for carol, got %d", len(carolSessions))
	}
}

func TestSession_SetRoom(t *testing.T) {
	sess := NewSession("test_session", "alice", &MockConnection{})

	if sess.Room() != "" {
		t.Fatalf("New session should not be in a room, got %q", sess.Room())
	}

	sess.SetRoom("AB12")
	if sess.Room() != "AB12" {
		t.Errorf("Expected room AB12, got %q", sess.Room())
	}

	sess.SetRoom("")
	if sess.Room() != "" {
		t.Errorf("Expected empty room after clearing, got %q", sess.Room())
	}
}

func TestManager_All(t *testing.T) {
	manager := NewManager()
	manager.Add(NewSession("s1", "alice", &MockConnection{}))
	manager.Add(NewSession("s2", "bob", &MockConnection{}))

	if got := len(manager.All()); got != 2 {
		t.Errorf("Expected 2 sessions in snapshot, got %d", got)
	}
}
