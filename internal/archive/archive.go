package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/DoyleJ11/typing-battle-backend/internal/engine"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxRecent = 50

// Match is one finished match.
type Match struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Room       string    `gorm:"index;not null" json:"room"`
	MatchID    uint64    `json:"matchId"`
	WinnerTeam int       `json:"winnerTeam"` // 0 on a tied timeout
	Reason     string    `gorm:"type:varchar(16)" json:"reason,omitempty"`
	HPOne      float64   `json:"hpTeam1"`
	HPTwo      float64   `json:"hpTeam2"`
	MaxHPOne   float64   `json:"maxHpTeam1"`
	MaxHPTwo   float64   `json:"maxHpTeam2"`
	Players    int       `json:"players"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `gorm:"index" json:"endedAt"`
}

func FromResult(room string, res engine.Result, players int) Match {
	return Match{
		Room:       room,
		MatchID:    res.MatchID,
		WinnerTeam: int(res.Winner),
		Reason:     res.Reason,
		HPOne:      res.HP[engine.TeamOne],
		HPTwo:      res.HP[engine.TeamTwo],
		MaxHPOne:   res.MaxHP[engine.TeamOne],
		MaxHPTwo:   res.MaxHP[engine.TeamTwo],
		Players:    players,
		StartedAt:  res.StartedAt,
		EndedAt:    res.EndedAt,
	}
}

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.AutoMigrate(&Match{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Store{db: db}, nil
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) RecordMatch(ctx context.Context, room string, res engine.Result, players int) error {
	m := FromResult(room, res, players)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("record match: %w", err)
	}
	return nil
}

// Recent returns up to limit matches played in room, newest first.
func (s *Store) Recent(ctx context.Context, room string, limit int) ([]Match, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	var out []Match
	err := s.db.WithContext(ctx).
		Where("room = ?", room).
		Order("ended_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("recent matches: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Nop is the recorder used when no database is configured.
type Nop struct{}

func (Nop) RecordMatch(context.Context, string, engine.Result, int) error { return nil }
