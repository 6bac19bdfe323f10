package store

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/pkg/logger"
)

var testDBSeq atomic.Int64

// testDB opens a fresh in-memory database per test. The pool is capped
// at one connection so concurrent store calls serialize at the driver
// instead of tripping sqlite's single-writer lock.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	return log
}

// seedUser inserts a minimal user row and returns its id.
func seedUser(t *testing.T, db *gorm.DB, nickname string) int64 {
	t.Helper()
	user := &model.User{
		Nickname:     nickname,
		PasswordHash: "x",
		Role:         model.RoleClient,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}
