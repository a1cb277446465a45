// server/server_test.go
package server

import (
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralttt/gameserver/auth"
	"github.com/neuralttt/gameserver/logger"
	"github.com/neuralttt/gameserver/models"
	"github.com/neuralttt/gameserver/network"
	"github.com/neuralttt/gameserver/persistence"
	"github.com/neuralttt/gameserver/session"
	"github.com/neuralttt/gameserver/store"
)

func init() {
	logger.Init()
}

// fakeConn 记录发出的每一帧
type fakeConn struct {
	mu     sync.Mutex
	frames []frame
}

type frame struct {
	msgID uint16
	data  []byte
}

func (c *fakeConn) Send(msgID uint16, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame{msgID: msgID, data: data})
	return nil
}

func (c *fakeConn) SendJSON(msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(msgID, data)
}

func (c *fakeConn) Close() error                        { return nil }
func (c *fakeConn) RemoteAddr() net.Addr                { return nil }
func (c *fakeConn) SetHeartbeat(interval time.Duration) {}
func (c *fakeConn) ReadPacket() (*network.Packet, error) {
	return nil, net.ErrClosed
}

func (c *fakeConn) received(msgID uint16) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, f := range c.frames {
		if f.msgID == msgID {
			out = append(out, f.data)
		}
	}
	return out
}

// fakeDB 记录战绩写入
type fakeDB struct {
	mu      sync.Mutex
	results []string // "username/outcome/xp"
}

func (db *fakeDB) CreateUser(user *models.User) error { return nil }
func (db *fakeDB) UserByName(username string) (*models.User, error) {
	return nil, persistence.ErrRecordNotFound
}
func (db *fakeDB) UserByEmail(email string) (*models.User, error) {
	return nil, persistence.ErrRecordNotFound
}
func (db *fakeDB) UserByID(id uint) (*models.User, error) {
	return nil, persistence.ErrRecordNotFound
}

func (db *fakeDB) RecordResult(username, outcome string, xpDelta int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.results = append(db.results, username+"/"+outcome)
	_ = xpDelta
	return nil
}

func (db *fakeDB) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	return []models.LeaderboardEntry{}, nil
}

func (db *fakeDB) Close() error { return nil }

func (db *fakeDB) recorded() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]string(nil), db.results...)
}

func newTestServer(db persistence.Database) *GameServer {
	jwtManager := auth.NewJWTManager("a", "r", time.Minute, time.Hour)
	return NewGameServer(":0", "http://localhost", store.NewMemoryStore(), db, jwtManager, nil, nil)
}

func joinPacket(t *testing.T, roomCode string, gridSize int) *network.Packet {
	t.Helper()
	data, err := json.Marshal(models.JoinRoomRequest{Room: roomCode, GridSize: gridSize})
	require.NoError(t, err)
	return &network.Packet{MsgID: network.MsgTypeJoinRoom, Data: data}
}

func movePacket(t *testing.T, roomCode string, index int) *network.Packet {
	t.Helper()
	data, err := json.Marshal(models.MoveRequest{Room: roomCode, Index: index})
	require.NoError(t, err)
	return &network.Packet{MsgID: network.MsgTypeSendMove, Data: data}
}

func addPlayer(s *GameServer, id, username string) (*session.Session, *fakeConn) {
	conn := &fakeConn{}
	sess := session.NewSession(id, username, conn)
	s.sessionManager.Add(sess)
	return sess, conn
}

func TestDisconnectMidGameAwardsForfeit(t *testing.T) {
	db := &fakeDB{}
	s := newTestServer(db)

	alice, _ := addPlayer(s, "s1", "alice")
	bob, bobConn := addPlayer(s, "s2", "bob")

	s.handlePacket(alice, joinPacket(t, "AB12", 3))
	s.handlePacket(bob, joinPacket(t, "AB12", 3))
	s.handlePacket(alice, movePacket(t, "AB12", 0))

	s.handleDisconnect(alice)

	require.Equal(t, []string{"bob/win", "alice/loss"}, db.recorded())

	notices := bobConn.received(network.MsgTypeOpponentLeftWin)
	require.Len(t, notices, 1)
	var notice models.ForfeitNotice
	require.NoError(t, json.Unmarshal(notices[0], &notice))
	assert.Equal(t, "bob", notice.Winner)
	assert.Equal(t, "alice fled the battle! You win by forfeit.", notice.Message)
}

func TestDisconnectFromLobbyDoesNotScore(t *testing.T) {
	db := &fakeDB{}
	s := newTestServer(db)

	alice, _ := addPlayer(s, "s1", "alice")
	bob, bobConn := addPlayer(s, "s2", "bob")

	s.handlePacket(alice, joinPacket(t, "AB12", 3))
	s.handlePacket(bob, joinPacket(t, "AB12", 3))

	// 没有任何落子就断线：只有名单更新，不记分
	s.handleDisconnect(alice)

	assert.Empty(t, db.recorded())
	assert.Empty(t, bobConn.received(network.MsgTypeOpponentLeftWin))
	assert.NotEmpty(t, bobConn.received(network.MsgTypeRoomStatus))
}

func TestJoinDeliversPresenceAndFullSync(t *testing.T) {
	db := &fakeDB{}
	s := newTestServer(db)

	alice, _ := addPlayer(s, "s1", "alice")
	bob, bobConn := addPlayer(s, "s2", "bob")

	s.handlePacket(alice, joinPacket(t, "AB12", 3))
	s.handlePacket(alice, movePacket(t, "AB12", 4))
	s.handlePacket(bob, joinPacket(t, "AB12", 3))

	statuses := bobConn.received(network.MsgTypeRoomStatus)
	require.NotEmpty(t, statuses)
	var status models.RoomStatus
	require.NoError(t, json.Unmarshal(statuses[len(statuses)-1], &status))
	assert.True(t, status.Ready)
	assert.ElementsMatch(t, []string{"alice", "bob"}, status.Players)

	// 新玩家入房立即拿到包含已有落子的全量状态
	syncs := bobConn.received(network.MsgTypeSyncState)
	require.NotEmpty(t, syncs)
	var st models.SyncState
	require.NoError(t, json.Unmarshal(syncs[len(syncs)-1], &st))
	assert.Equal(t, "X", st.Board[4])
	assert.Len(t, st.History, 1)
}

func TestMoveOutsideRoomRejected(t *testing.T) {
	db := &fakeDB{}
	s := newTestServer(db)

	alice, conn := addPlayer(s, "s1", "alice")
	s.handlePacket(alice, movePacket(t, "nowhere", 0))

	errs := conn.received(network.MsgTypeError)
	require.Len(t, errs, 1)
	var notice models.ErrorNotice
	require.NoError(t, json.Unmarshal(errs[0], &notice))
	assert.Equal(t, "not_in_room", notice.Code)
}
