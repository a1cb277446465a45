// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// 段位枚举
const (
	RankBronze   = "Bronze"
	RankSilver   = "Silver"
	RankGold     = "Gold"
	RankPlatinum = "Platinum"
	RankLegend   = "Neural Legend"
)

// User 用户模型，胜场记录路径是唯一的写入方
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;size:15;not null"`
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null"` // bcrypt hash
	Rank     string `gorm:"default:Bronze"`
	Wins     int    `gorm:"default:0"`
	Losses   int    `gorm:"default:0"`
	Draws    int    `gorm:"default:0"`
	XP       int64  `gorm:"default:0"`
}

// Profile 返回不含密码散列的视图
func (u *User) Profile() UserProfile {
	return UserProfile{
		Username: u.Username,
		Rank:     u.Rank,
		Wins:     u.Wins,
		Losses:   u.Losses,
		Draws:    u.Draws,
		XP:       u.XP,
	}
}
