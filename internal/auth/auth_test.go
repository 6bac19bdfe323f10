package auth

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nellx/marketplace-api/internal/middleware"
	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/internal/store"
)

const testSecret = "test-secret"

var authDBSeq atomic.Int64

func newAuthService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:authtest%d?mode=memory&cache=shared", authDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, store.Migrate(db))

	return NewService(store.NewUserStore(db), testSecret, time.Hour), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, model.RegisterRequest{
		Nickname: "newcomer",
		Password: "correct horse battery",
		Name:     "New Comer",
	})
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.NotEmpty(t, token.AccessToken)
	require.NotNil(t, token.User)
	assert.Equal(t, model.RoleClient, token.User.Role)

	userID, role, err := middleware.ParseToken(token.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, token.User.ID, userID)
	assert.Equal(t, string(model.RoleClient), role)

	login, err := svc.Login(ctx, model.LoginRequest{Nickname: "newcomer", Password: "correct horse battery"})
	require.NoError(t, err)
	assert.Equal(t, token.User.ID, login.User.ID)
}

func TestRegisterNicknameTaken(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, model.RegisterRequest{Nickname: "dup", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, model.RegisterRequest{Nickname: "dup", Password: "password2"})
	assert.ErrorIs(t, err, ErrNicknameTaken)
}

func TestLoginFailures(t *testing.T) {
	svc, db := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, model.RegisterRequest{Nickname: "victim", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, model.LoginRequest{Nickname: "victim", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, model.LoginRequest{Nickname: "nobody", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Banned accounts get the same error as bad credentials.
	require.NoError(t, db.Model(&model.User{}).Where("nickname = ?", "victim").Update("is_banned", true).Error)
	_, err = svc.Login(ctx, model.LoginRequest{Nickname: "victim", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsForgery(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, model.RegisterRequest{Nickname: "honest", Password: "password1"})
	require.NoError(t, err)

	_, _, err = middleware.ParseToken(token.AccessToken, "other-secret")
	assert.Error(t, err)
	_, _, err = middleware.ParseToken("garbage", testSecret)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewService(nil, testSecret, -time.Minute)
	resp, err := svc.issueToken(&model.User{ID: 1, Role: model.RoleClient})
	require.NoError(t, err)

	_, _, err = middleware.ParseToken(resp.AccessToken, testSecret)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)
	assert.True(t, CheckPassword("s3cret-password", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
