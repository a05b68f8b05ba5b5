package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backupflow/backend/internal/infrastructure/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                "test-secret-key-32-characters-long",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "backupflow-test",
	}
}

func TestJWTService_GenerateToken(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateToken(userID, "ops@example.com", RoleOperator)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, RoleOperator, claims.Role)
	assert.Equal(t, "backupflow-test", claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestJWTService_ValidateToken(t *testing.T) {
	svc := NewJWTService(testJWTConfig())

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		otherCfg := testJWTConfig()
		otherCfg.Secret = "another-secret-key-32-chars-long!"
		other := NewJWTService(otherCfg)

		token, _, err := other.GenerateToken(uuid.New(), "x@example.com", RoleOperator)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		cfg := testJWTConfig()
		cfg.AccessTokenExpiration = -time.Minute
		expired := NewJWTService(cfg)

		token, _, err := expired.GenerateToken(uuid.New(), "x@example.com", RoleOperator)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects a non-HMAC signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.New().String()})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a token without user_id", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(testJWTConfig().Secret))
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrMissingUserID)
	})
}

func TestClaims_IsAdmin(t *testing.T) {
	assert.True(t, (&Claims{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&Claims{Role: RoleOperator}).IsAdmin())
	assert.False(t, (&Claims{}).IsAdmin())
}

func TestClaims_GetUserUUID(t *testing.T) {
	userID := uuid.New()

	parsed, err := (&Claims{UserID: userID.String()}).GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)

	_, err = (&Claims{UserID: "nope"}).GetUserUUID()
	assert.Error(t, err)
}

func TestJWTService_GetAccessTokenExpiration(t *testing.T) {
	svc := NewJWTService(testJWTConfig())

	assert.Equal(t, 15*time.Minute, svc.GetAccessTokenExpiration())
}
