package archive

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/typing-battle-backend/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// dryRunDB builds SQL without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=test dbname=test sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	require.NoError(t, err)
	return db
}

func sampleResult() engine.Result {
	return engine.Result{
		MatchID:   3,
		Winner:    engine.TeamTwo,
		Reason:    engine.ReasonTimeout,
		HP:        map[engine.Team]float64{engine.TeamOne: 12, engine.TeamTwo: 40},
		MaxHP:     map[engine.Team]float64{engine.TeamOne: 250, engine.TeamTwo: 250},
		StartedAt: t0,
		EndedAt:   t0.Add(time.Minute),
	}
}

func TestFromResult(t *testing.T) {
	m := FromResult("R1", sampleResult(), 4)
	assert.Equal(t, Match{
		Room:       "R1",
		MatchID:    3,
		WinnerTeam: 2,
		Reason:     "timeout",
		HPOne:      12,
		HPTwo:      40,
		MaxHPOne:   250,
		MaxHPTwo:   250,
		Players:    4,
		StartedAt:  t0,
		EndedAt:    t0.Add(time.Minute),
	}, m)
}

func TestRecordMatch_BuildsInsert(t *testing.T) {
	db := dryRunDB(t)
	s := New(db)
	require.NoError(t, s.RecordMatch(context.Background(), "R1", sampleResult(), 4))

	m := FromResult("R1", sampleResult(), 4)
	stmt := db.Session(&gorm.Session{DryRun: true}).Create(&m).Statement
	assert.Contains(t, stmt.SQL.String(), `INSERT INTO "matches"`)
	assert.Contains(t, stmt.Vars, "R1")
}

func TestRecent_BuildsQuery(t *testing.T) {
	db := dryRunDB(t)
	s := New(db)
	got, err := s.Recent(context.Background(), "R1", 500)
	require.NoError(t, err)
	assert.Empty(t, got)

	var out []Match
	stmt := db.Session(&gorm.Session{DryRun: true}).
		Where("room = ?", "R1").Order("ended_at DESC").Limit(maxRecent).
		Find(&out).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, `FROM "matches"`)
	assert.Contains(t, sql, "ORDER BY ended_at DESC")
	assert.Contains(t, sql, "LIMIT")
}

func TestNop(t *testing.T) {
	var n Nop
	assert.NoError(t, n.RecordMatch(context.Background(), "R1", sampleResult(), 2))
}
