package services

import (
	"os"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-board/internal/models"
)

func setupAuthDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Token{}))
	return db
}

func registerTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user, err := NewRegisterService().RegisterUser(db, RegistrationRequest{
		Email:       "ada@example.com",
		Password:    "correct horse",
		DisplayName: "Ada Lovelace",
	})
	require.NoError(t, err)
	return user
}

func TestRegisterUser(t *testing.T) {
	db := setupAuthDB(t)

	user := registerTestUser(t, db)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "correct horse", user.Password, "password must be stored hashed")
	assert.True(t, VerifyPassword(user.Password, "correct horse"))
}

func TestRegisterUserDuplicateEmail(t *testing.T) {
	db := setupAuthDB(t)
	registerTestUser(t, db)

	_, err := NewRegisterService().RegisterUser(db, RegistrationRequest{
		Email:       "ada@example.com",
		Password:    "another pass",
		DisplayName: "Impostor",
	})
	require.Error(t, err)

	var authErr *models.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestLoginUser(t *testing.T) {
	db := setupAuthDB(t)
	registered := registerTestUser(t, db)
	svc := NewAuthService()

	user, err := svc.LoginUser(db, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.LoginUser(db, "ada@example.com", "wrong password")
	assert.Error(t, err)

	_, err = svc.LoginUser(db, "nobody@example.com", "correct horse")
	assert.Error(t, err)
}

func TestGenerateTokenCarriesIdentity(t *testing.T) {
	os.Setenv("JWT_SECRET", "token-test-secret")
	defer os.Unsetenv("JWT_SECRET")

	db := setupAuthDB(t)
	user := registerTestUser(t, db)
	svc := NewAuthService()

	access, refresh, err := svc.GenerateToken(db, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	parsed, err := jwt.Parse(access, func(token *jwt.Token) (interface{}, error) {
		return []byte("token-test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["user_id"])
	assert.Equal(t, "task-board", claims["iss"])
}

func TestRefreshTokenRotation(t *testing.T) {
	db := setupAuthDB(t)
	user := registerTestUser(t, db)
	svc := NewAuthService()

	_, refresh, err := svc.GenerateToken(db, user.ID)
	require.NoError(t, err)

	access2, refresh2, expiresIn, err := svc.RefreshToken(db, refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access2)
	assert.NotEqual(t, refresh, refresh2, "refresh tokens rotate on use")
	assert.Equal(t, int64(3600), expiresIn)

	// The consumed token is dead.
	_, _, _, err = svc.RefreshToken(db, refresh)
	assert.Error(t, err, "a used refresh token must not work twice")
}

func TestRevokeToken(t *testing.T) {
	db := setupAuthDB(t)
	user := registerTestUser(t, db)
	svc := NewAuthService()

	_, refresh, err := svc.GenerateToken(db, user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(db, refresh))

	_, _, _, err = svc.RefreshToken(db, refresh)
	assert.Error(t, err, "revoked token must not refresh")
}

func TestGetUserByID(t *testing.T) {
	db := setupAuthDB(t)
	user := registerTestUser(t, db)
	svc := NewAuthService()

	got, err := svc.GetUserByID(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.GetUserByID(db, uuid.Must(uuid.NewV4()))
	assert.Error(t, err)
}
