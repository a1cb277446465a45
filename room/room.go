// room/room.go
package room

import (
	"sync"
	"time"

	"github.com/neuralttt/gameserver/session"
	"github.com/neuralttt/gameserver/state"
)

// Room 一个对局房间在本进程内的视图：广播目标的会话集合加上
// 观测到的对局阶段。权威棋谱和在线名单都在外部存储里，这里
// 只挂当前连到本进程的连接。
type Room struct {
	Code       string
	GridSize   int
	CreatedAt  time.Time
	Phase      *state.Machine
	sessions   map[string]*session.Session // sessionID -> session
	lastActive time.Time
	mutex      sync.RWMutex
}

func newRoom(code string, gridSize int) *Room {
	now := time.Now()
	return &Room{
		Code:       code,
		GridSize:   gridSize,
		CreatedAt:  now,
		Phase:      state.NewMachine(),
		sessions:   make(map[string]*session.Session),
		lastActive: now,
	}
}

// AddSession 挂一条连接到房间的广播集合
func (r *Room) AddSession(s *session.Session) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sessions[s.GetID()] = s
	r.lastActive = time.Now()
}

func (r *Room) RemoveSession(sessionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.sessions, sessionID)
	r.lastActive = time.Now()
}

// Sessions returns a snapshot of all sessions in the room (thread-safe).
func (r *Room) Sessions() []*session.Session {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Room) SessionCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}

// Touch 任何房间事件都会刷新活跃时间，回收器据此判断闲置
func (r *Room) Touch() {
	r.mutex.Lock()
	r.lastActive = time.Now()
	r.mutex.Unlock()
}

func (r *Room) LastActive() time.Time {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.lastActive
}

// --- 房间管理器 ---

// Manager 管理本进程所有房间
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate 房间按需隐式创建：首次 join 就是建房。
// gridSize 只在创建时生效，后续调用忽略。
func (m *Manager) GetOrCreate(code string, gridSize int) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[code]; exists {
		return room
	}
	room := newRoom(code, gridSize)
	m.rooms[code] = room
	return room
}

func (m *Manager) Get(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	return room, exists
}

func (m *Manager) Remove(code string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.rooms, code)
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// CountInPhase 统计处于指定阶段的房间数，供监控用
func (m *Manager) CountInPhase(p state.Phase) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	count := 0
	for _, room := range m.rooms {
		if room.Phase.Current() == p {
			count++
		}
	}
	return count
}

// ReapIdle 回收没有任何连接且闲置超过 maxIdle 的房间，
// 返回回收的房间码。存储侧的键靠自身 TTL 过期。
func (m *Manager) ReapIdle(maxIdle time.Duration) []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	var reaped []string
	for code, room := range m.rooms {
		if room.SessionCount() == 0 && room.LastActive().Before(cutoff) {
			delete(m.rooms, code)
			reaped = append(reaped, code)
		}
	}
	return reaped
}
