package jwt

import (
	"testing"
	"time"

	"pingpong/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(secret string, expire time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     secret,
		ExpireTime: expire,
		Issuer:     "pingpong-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService("test-secret", time.Hour)

	token, err := svc.GenerateToken("42", map[string]interface{}{"username": "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "alice", claims.Data["username"])
	assert.Equal(t, "pingpong-test", claims.Issuer)
}

func TestGenerateTokenRequiresUserID(t *testing.T) {
	svc := newTestService("test-secret", time.Hour)
	_, err := svc.GenerateToken("", nil)
	assert.Error(t, err)
}

func TestValidateTokenRejectsInvalid(t *testing.T) {
	svc := newTestService("test-secret", time.Hour)
	token, err := svc.GenerateToken("42", nil)
	require.NoError(t, err)

	// 空令牌
	_, err = svc.ValidateToken("")
	assert.Error(t, err)

	// 篡改后的令牌
	_, err = svc.ValidateToken(token + "x")
	assert.Error(t, err)

	// 不同密钥签发的令牌
	other := newTestService("other-secret", time.Hour)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestService("test-secret", -time.Minute)
	token, err := svc.GenerateToken("42", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
