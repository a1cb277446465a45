// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/neuralttt/gameserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) CreateUser(user *models.User) error {
	err := p.db.Create(user).Error
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrDuplicateUser
	}
	return err
}

func (p *GormPostgreSQL) UserByName(username string) (*models.User, error) {
	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (p *GormPostgreSQL) UserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := p.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (p *GormPostgreSQL) UserByID(id uint) (*models.User, error) {
	var user models.User
	if err := p.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// RecordResult 用事务里的表达式自增保证并发安全
func (p *GormPostgreSQL) RecordResult(username, outcome string, xpDelta int64) error {
	column, err := outcomeColumn(outcome)
	if err != nil {
		return err
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("username = ?", username).
			Updates(map[string]interface{}{
				column: gorm.Expr(column+" + ?", 1),
				"xp":   gorm.Expr("xp + ?", xpDelta),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
}

func (p *GormPostgreSQL) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := p.db.Model(&models.User{}).
		Select("username, wins, xp, rank").
		Order("wins DESC, xp DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func outcomeColumn(outcome string) (string, error) {
	switch outcome {
	case OutcomeWin:
		return "wins", nil
	case OutcomeLoss:
		return "losses", nil
	case OutcomeDraw:
		return "draws", nil
	}
	return "", fmt.Errorf("unknown outcome %q", outcome)
}
