// server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/neuralttt/gameserver/auth"
	"github.com/neuralttt/gameserver/broadcast"
	"github.com/neuralttt/gameserver/logger"
	"github.com/neuralttt/gameserver/models"
	"github.com/neuralttt/gameserver/monitor"
	"github.com/neuralttt/gameserver/network"
	"github.com/neuralttt/gameserver/persistence"
	"github.com/neuralttt/gameserver/room"
	"github.com/neuralttt/gameserver/services"
	"github.com/neuralttt/gameserver/session"
	"github.com/neuralttt/gameserver/state"
	"github.com/neuralttt/gameserver/store"
)

// GameServer 网关：认证 WebSocket 连接，把每条消息路由到
// 对应的服务。游戏状态本身不在这里，全在 store 和 sync 服务里。
type GameServer struct {
	addr           string
	apiHandler     http.Handler
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	playerService  *services.PlayerService
	syncService    *services.SyncService
	broadcaster    broadcast.Broadcaster
	store          store.GameStore
	jwt            *auth.JWTManager
	monitor        *monitor.Monitor
	shutdownChan   chan struct{}
}

func NewGameServer(
	addr, allowedOrigin string,
	st store.GameStore,
	db persistence.Database,
	jwtManager *auth.JWTManager,
	mon *monitor.Monitor,
	apiHandler http.Handler,
) *GameServer {
	s := &GameServer{
		addr:           addr,
		apiHandler:     apiHandler,
		roomManager:    room.NewRoomManager(),
		sessionManager: session.NewManager(),
		playerService:  services.NewPlayerService(db),
		store:          st,
		jwt:            jwtManager,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}

	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)

	var metrics services.Metrics
	if mon != nil {
		metrics = mon
	}
	s.syncService = services.NewSyncService(st, s.roomManager, s.broadcaster, metrics)

	return s
}

// PlayerService 给 RPC 服务复用
func (s *GameServer) PlayerService() *services.PlayerService {
	return s.playerService
}

func (s *GameServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.apiHandler != nil {
		mux.Handle("/", s.apiHandler)
	}

	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
}

// ReapIdleRooms 回收闲置房间，由定时器周期调用
func (s *GameServer) ReapIdleRooms(maxIdle time.Duration) {
	reaped := s.roomManager.ReapIdle(maxIdle)
	for _, code := range reaped {
		s.syncService.ForgetRoom(code)
		logger.Log.Infow("idle room reaped", "room", code)
	}
	s.refreshRoomGauges()
}

// authenticate 升级前校验访问令牌，先看 cookie 再看 query 参数
func (s *GameServer) authenticate(r *http.Request) (*auth.Claims, error) {
	tokenString := ""
	if cookie, err := r.Cookie("token"); err == nil {
		tokenString = cookie.Value
	} else if t := r.URL.Query().Get("token"); t != "" {
		tokenString = t
	}
	if tokenString == "" {
		return nil, errors.New("missing token")
	}
	return s.jwt.ValidateAccessToken(tokenString)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		logger.Log.Debugw("websocket auth rejected", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn, claims.Username)
}

func (s *GameServer) handleConnection(conn *websocket.Conn, username string) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), username, wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, user %s, session ID: %s",
		wsConn.RemoteAddr(), username, sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s",
			wsConn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		s.sessionManager.Remove(sess.GetID())
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	sess.Touch()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		// Touch 已经更新了活跃时间
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess)
	case network.MsgTypeSendMove:
		s.handleSendMove(sess, packet)
	case network.MsgTypeRequestUndo:
		s.handleLogRewind(sess, s.syncService.HandleUndo)
	case network.MsgTypeRequestRedo:
		s.handleLogRewind(sess, s.syncService.HandleRedo)
	case network.MsgTypeResetGame:
		s.handleLogRewind(sess, s.syncService.HandleReset)
	case network.MsgTypeRoomMessage:
		s.handleRoomMessage(sess, packet)
	case network.MsgTypeGlobalMessage:
		s.handleGlobalMessage(sess, packet)
	case network.MsgTypeGetChatHistory:
		s.handleGetChatHistory(sess)
	case network.MsgTypeRecordWin:
		s.handleRecordWin(sess)
	case network.MsgTypeGetLeaderboard:
		s.handleGetLeaderboard(sess)
	default:
		logger.Log.Infof("Unknown message type: %d from session %s", packet.MsgID, sess.GetID())
	}
}

func (s *GameServer) refreshRoomGauges() {
	if s.monitor == nil {
		return
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())
	s.monitor.SetRoomsInProgress(s.roomManager.CountInPhase(state.PhaseInProgress))
}

// broadcastRoomStatus 把在线名单变化告诉整个房间
func (s *GameServer) broadcastRoomStatus(ctx context.Context, roomCode, message string) {
	members, err := s.store.Members(ctx, roomCode)
	if err != nil {
		logger.Log.Errorw("read members failed", "room", roomCode, "error", err)
		return
	}
	gridSize, err := s.store.GridSize(ctx, roomCode)
	if err != nil {
		logger.Log.Errorw("read grid size failed", "room", roomCode, "error", err)
		return
	}

	status := models.RoomStatus{
		Count:    len(members),
		Players:  members,
		GridSize: gridSize,
		Ready:    len(members) >= 2,
		Message:  message,
	}
	if status.Message == "" {
		if status.Ready {
			status.Message = "Ready!"
		} else {
			status.Message = "Waiting..."
		}
	}
	s.broadcaster.BroadcastToRoom(roomCode, network.MsgTypeRoomStatus, status)
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req models.JoinRoomRequest
	if err := packet.Unmarshal(&req); err != nil || req.Room == "" {
		logger.Log.Warnw("malformed join_room", "session", sess.GetID(), "error", err)
		return
	}
	ctx := context.Background()

	// 已经在别的房间就先退出去
	if prev := sess.Room(); prev != "" && prev != req.Room {
		s.leaveRoom(sess, prev, "Opponent left.")
	}

	gridSize, err := s.store.SetGridSize(ctx, req.Room, req.GridSize)
	if err != nil {
		logger.Log.Errorw("set grid size failed", "room", req.Room, "error", err)
		return
	}
	if err := s.store.JoinRoom(ctx, req.Room, sess.GetUsername()); err != nil {
		logger.Log.Errorw("join room failed", "room", req.Room, "error", err)
		return
	}

	r := s.roomManager.GetOrCreate(req.Room, gridSize)
	r.AddSession(sess)
	sess.SetRoom(req.Room)

	logger.Log.Infof("Session %s (%s) joined room %s", sess.GetID(), sess.GetUsername(), req.Room)

	s.broadcastRoomStatus(ctx, req.Room, "")
	// 新玩家立刻拿到权威状态
	if _, err := s.syncService.Sync(ctx, req.Room); err != nil {
		logger.Log.Errorw("sync after join failed", "room", req.Room, "error", err)
	}
	s.refreshRoomGauges()
}

// leaveRoom 主动退出：更新名单并通知，不触发弃权判定
func (s *GameServer) leaveRoom(sess *session.Session, roomCode, message string) {
	ctx := context.Background()

	if err := s.store.LeaveRoom(ctx, roomCode, sess.GetUsername()); err != nil {
		logger.Log.Errorw("leave room failed", "room", roomCode, "error", err)
	}
	if r, ok := s.roomManager.Get(roomCode); ok {
		r.RemoveSession(sess.GetID())
		if r.SessionCount() == 0 {
			s.roomManager.Remove(roomCode)
			s.syncService.ForgetRoom(roomCode)
		}
	}
	sess.SetRoom("")

	s.broadcastRoomStatus(ctx, roomCode, message)
	s.refreshRoomGauges()
}

func (s *GameServer) handleLeaveRoom(sess *session.Session) {
	if roomCode := sess.Room(); roomCode != "" {
		s.leaveRoom(sess, roomCode, "Opponent left.")
	}
}

// handleDisconnect 掉线处理。对局已开始且房间里只剩一个人时，
// 判剩下的玩家弃权获胜并立即记入战绩。
func (s *GameServer) handleDisconnect(sess *session.Session) {
	roomCode := sess.Room()
	if roomCode == "" {
		return
	}
	ctx := context.Background()
	username := sess.GetUsername()

	if err := s.store.LeaveRoom(ctx, roomCode, username); err != nil {
		logger.Log.Errorw("leave room failed", "room", roomCode, "error", err)
	}
	remaining, err := s.store.Members(ctx, roomCode)
	if err != nil {
		logger.Log.Errorw("read members failed", "room", roomCode, "error", err)
		return
	}
	history, _, err := s.store.ReadLog(ctx, roomCode)
	if err != nil {
		logger.Log.Errorw("read log failed", "room", roomCode, "error", err)
		return
	}

	if len(remaining) == 1 && len(history) > 0 {
		s.awardForfeit(ctx, roomCode, remaining[0], username)
	}

	if r, ok := s.roomManager.Get(roomCode); ok {
		r.RemoveSession(sess.GetID())
		if r.SessionCount() == 0 {
			s.roomManager.Remove(roomCode)
			s.syncService.ForgetRoom(roomCode)
		}
	}

	s.broadcastRoomStatus(ctx, roomCode, fmt.Sprintf("%s left.", username))
	s.refreshRoomGauges()
}

func (s *GameServer) awardForfeit(ctx context.Context, roomCode, winner, deserter string) {
	// 记分失败只记日志，弃权通知照常广播
	if err := s.playerService.RecordWin(winner); err != nil {
		logger.Log.Errorw("forfeit reward failed", "winner", winner, "error", err)
	} else {
		s.broadcastLeaderboard()
	}
	if err := s.playerService.RecordLoss(deserter); err != nil {
		logger.Log.Errorw("forfeit loss record failed", "deserter", deserter, "error", err)
	}
	if s.monitor != nil {
		s.monitor.IncForfeits()
	}

	notice := models.ForfeitNotice{
		Winner:  winner,
		Message: fmt.Sprintf("%s fled the battle! You win by forfeit.", deserter),
	}
	s.broadcaster.BroadcastToRoom(roomCode, network.MsgTypeOpponentLeftWin, notice)

	logger.Log.Infow("win by forfeit", "room", roomCode, "winner", winner, "deserter", deserter)
}

func (s *GameServer) handleSendMove(sess *session.Session, packet *network.Packet) {
	var req models.MoveRequest
	if err := packet.Unmarshal(&req); err != nil {
		logger.Log.Warnw("malformed send_move", "session", sess.GetID(), "error", err)
		return
	}
	roomCode := sess.Room()
	if roomCode == "" {
		sess.SendJSON(network.MsgTypeError, models.ErrorNotice{
			Code: "not_in_room", Message: "join a room first",
		})
		return
	}

	if err := s.syncService.ApplyMove(context.Background(), roomCode, req.Index); err != nil {
		var moveErr *services.MoveError
		if errors.As(err, &moveErr) {
			sess.SendJSON(network.MsgTypeError, moveErr.Notice())
			return
		}
		logger.Log.Errorw("apply move failed", "room", roomCode, "error", err)
	}
}

func (s *GameServer) handleLogRewind(sess *session.Session, op func(context.Context, string) error) {
	roomCode := sess.Room()
	if roomCode == "" {
		return
	}
	if err := op(context.Background(), roomCode); err != nil {
		logger.Log.Errorw("log rewind failed", "room", roomCode, "error", err)
	}
}

func (s *GameServer) handleRoomMessage(sess *session.Session, packet *network.Packet) {
	var req models.RoomChatRequest
	if err := packet.Unmarshal(&req); err != nil || req.Text == "" {
		return
	}
	roomCode := sess.Room()
	if roomCode == "" {
		return
	}

	msg := models.ChatMessage{
		Username: sess.GetUsername(),
		Text:     req.Text,
		Time:     time.Now().Format("15:04"),
	}
	s.broadcaster.BroadcastToRoom(roomCode, network.MsgTypeRoomMessageRecv, msg)
}

func (s *GameServer) handleGlobalMessage(sess *session.Session, packet *network.Packet) {
	var req models.GlobalChatRequest
	if err := packet.Unmarshal(&req); err != nil || req.Text == "" {
		return
	}

	msg := models.ChatMessage{
		ID:       uuid.New().String(),
		Username: sess.GetUsername(),
		Text:     req.Text,
		Time:     time.Now().Format("15:04"),
	}
	if err := s.store.PushGlobalChat(context.Background(), msg); err != nil {
		logger.Log.Errorw("push global chat failed", "error", err)
		return
	}
	s.broadcaster.BroadcastToAll(network.MsgTypeGlobalMessageRecv, msg)
}

func (s *GameServer) handleGetChatHistory(sess *session.Session) {
	history, err := s.store.GlobalChatHistory(context.Background())
	if err != nil {
		logger.Log.Errorw("read global chat failed", "error", err)
		return
	}
	sess.SendJSON(network.MsgTypeChatHistory, history)
}

// handleRecordWin 客户端上报赢了一局。赢家取会话绑定的用户名，
// 不信任 payload 里自报的名字。
func (s *GameServer) handleRecordWin(sess *session.Session) {
	if err := s.playerService.RecordWin(sess.GetUsername()); err != nil {
		logger.Log.Errorw("record win failed", "username", sess.GetUsername(), "error", err)
		return
	}
	s.broadcastLeaderboard()
}

func (s *GameServer) handleGetLeaderboard(sess *session.Session) {
	entries, err := s.playerService.Leaderboard()
	if err != nil {
		logger.Log.Errorw("read leaderboard failed", "error", err)
		return
	}
	sess.SendJSON(network.MsgTypeLeaderboard, entries)
}

func (s *GameServer) broadcastLeaderboard() {
	entries, err := s.playerService.Leaderboard()
	if err != nil {
		logger.Log.Errorw("read leaderboard failed", "error", err)
		return
	}
	s.broadcaster.BroadcastToAll(network.MsgTypeLeaderboard, entries)
}
