// services/player_service.go
package services

import (
	"errors"

	"github.com/neuralttt/gameserver/logger"
	"github.com/neuralttt/gameserver/models"
	"github.com/neuralttt/gameserver/persistence"
)

const (
	// 每场胜利奖励的经验值
	WinXPReward = 100
	// 排行榜长度
	LeaderboardSize = 10
)

// PlayerService 玩家战绩与排行榜
type PlayerService struct {
	db persistence.Database
}

func NewPlayerService(db persistence.Database) *PlayerService {
	return &PlayerService{db: db}
}

// RecordWin 记录一场胜利：wins +1，xp +100
func (s *PlayerService) RecordWin(username string) error {
	if username == "" {
		return errors.New("empty username")
	}
	err := s.db.RecordResult(username, persistence.OutcomeWin, WinXPReward)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		// 未注册玩家（游客）不计入战绩
		logger.Log.Debugw("win for unknown user ignored", "username", username)
		return nil
	}
	return err
}

// RecordLoss 记录一场失败，不扣经验
func (s *PlayerService) RecordLoss(username string) error {
	if username == "" {
		return errors.New("empty username")
	}
	err := s.db.RecordResult(username, persistence.OutcomeLoss, 0)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil
	}
	return err
}

// RecordDraw 记录一场平局
func (s *PlayerService) RecordDraw(username string) error {
	if username == "" {
		return errors.New("empty username")
	}
	err := s.db.RecordResult(username, persistence.OutcomeDraw, 0)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil
	}
	return err
}

// Leaderboard 返回前十名，按 wins 降序、xp 降序
func (s *PlayerService) Leaderboard() ([]models.LeaderboardEntry, error) {
	entries, err := s.db.Leaderboard(LeaderboardSize)
	if err != nil {
		return nil, err
	}
	// 保证空榜返回 [] 而不是 null
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}

// Profile 返回玩家公开资料
func (s *PlayerService) Profile(username string) (*models.UserProfile, error) {
	user, err := s.db.UserByName(username)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}
