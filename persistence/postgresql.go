// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/neuralttt/gameserver/models"
)

// PostgreSQL 不经 ORM 的 database/sql 实现，部署方不想带 GORM 时用
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构，与 GORM 的迁移结果保持兼容
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ,
            updated_at TIMESTAMPTZ,
            deleted_at TIMESTAMPTZ,
            username VARCHAR(15) UNIQUE NOT NULL,
            email TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            rank TEXT DEFAULT 'Bronze',
            wins INTEGER DEFAULT 0,
            losses INTEGER DEFAULT 0,
            draws INTEGER DEFAULT 0,
            xp BIGINT DEFAULT 0
        )`)
	return err
}

func (p *PostgreSQL) CreateUser(user *models.User) error {
	now := time.Now()
	err := p.db.QueryRow(`
        INSERT INTO users (created_at, updated_at, username, email, password, rank)
        VALUES ($1, $1, $2, $3, $4, $5)
        ON CONFLICT DO NOTHING
        RETURNING id`,
		now, user.Username, user.Email, user.Password, models.RankBronze,
	).Scan(&user.ID)
	if err == sql.ErrNoRows {
		return ErrDuplicateUser
	}
	return err
}

func (p *PostgreSQL) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password,
		&user.Rank, &user.Wins, &user.Losses, &user.Draws, &user.XP)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

const userColumns = "id, username, email, password, rank, wins, losses, draws, xp"

func (p *PostgreSQL) UserByName(username string) (*models.User, error) {
	return p.scanUser(p.db.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE username = $1 AND deleted_at IS NULL", username))
}

func (p *PostgreSQL) UserByEmail(email string) (*models.User, error) {
	return p.scanUser(p.db.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE email = $1 AND deleted_at IS NULL", email))
}

func (p *PostgreSQL) UserByID(id uint) (*models.User, error) {
	return p.scanUser(p.db.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE id = $1 AND deleted_at IS NULL", id))
}

func (p *PostgreSQL) RecordResult(username, outcome string, xpDelta int64) error {
	column, err := outcomeColumn(outcome)
	if err != nil {
		return err
	}

	result, err := p.db.Exec(
		"UPDATE users SET "+column+" = "+column+" + 1, xp = xp + $1, updated_at = $2 WHERE username = $3",
		xpDelta, time.Now(), username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *PostgreSQL) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	rows, err := p.db.Query(`
        SELECT username, wins, xp, rank FROM users
        WHERE deleted_at IS NULL
        ORDER BY wins DESC, xp DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Wins, &e.XP, &e.Rank); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
