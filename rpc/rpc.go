package rpc

import (
	"net"
	"net/rpc"

	"github.com/neuralttt/gameserver/logger"
	"github.com/neuralttt/gameserver/models"
	"github.com/neuralttt/gameserver/services"
)

// Server manages the RPC listener used by internal ops tooling.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server and registers the admin service.
func NewServer(addr string, admin *AdminService) (*Server, error) {
	if err := rpc.RegisterName("Admin", admin); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes read-only player data over net/rpc.
// Methods follow the net/rpc signature: exported method, exported
// arguments, second argument is a pointer, return type is error.
type AdminService struct {
	playerService *services.PlayerService
}

func NewAdminService(ps *services.PlayerService) *AdminService {
	return &AdminService{playerService: ps}
}

type LeaderboardArgs struct{}

type LeaderboardReply struct {
	Entries []models.LeaderboardEntry
}

func (a *AdminService) Leaderboard(_ *LeaderboardArgs, reply *LeaderboardReply) error {
	entries, err := a.playerService.Leaderboard()
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}

type PlayerStatsArgs struct {
	Username string
}

type PlayerStatsReply struct {
	Profile *models.UserProfile
}

func (a *AdminService) PlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	profile, err := a.playerService.Profile(args.Username)
	if err != nil {
		return err
	}
	reply.Profile = profile
	return nil
}
