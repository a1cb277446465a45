// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/neuralttt/gameserver/models"
)

// 对局结果，决定哪个计数字段自增
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeDraw = "draw"
)

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateUser  = errors.New("username or email already taken")
)

// Database 账号存储接口，两个实现：GORM 和原生 database/sql
type Database interface {
	CreateUser(user *models.User) error
	UserByName(username string) (*models.User, error)
	UserByEmail(email string) (*models.User, error)
	UserByID(id uint) (*models.User, error)
	// RecordResult 按结果自增 wins/losses/draws 并累加 xp，原子操作
	RecordResult(username, outcome string, xpDelta int64) error
	// Leaderboard 胜场降序、XP 降序取前 limit 名
	Leaderboard(limit int) ([]models.LeaderboardEntry, error)
	Close() error
}
