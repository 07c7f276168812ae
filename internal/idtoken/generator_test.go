package idtoken

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "nlportal/pkg/domain-errors"
)

var secret32 = strings.Repeat("s", 32)

func parse(t *testing.T, token string) (*Claims, jwt.MapClaims) {
	t.Helper()
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret32), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	raw := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, raw)
	require.NoError(t, err)
	return claims, raw
}

func Test_GenerateToken_ShortSecret(t *testing.T) {
	token, err := GenerateToken(strings.Repeat("s", 24), "testClientId")
	require.Error(t, err)
	assert.Empty(t, token)
	assert.Equal(t, "SecretKey needs to be at least 32 in length", err.Error())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func Test_GenerateToken_DefaultIdentity(t *testing.T) {
	token, err := GenerateToken(secret32, "testClientId")
	require.NoError(t, err)

	claims, raw := parse(t, token)
	assert.Equal(t, "testClientId", claims.Issuer)
	assert.Equal(t, "testClientId", claims.ClientID)
	assert.Equal(t, "Valtimo", claims.UserID)
	assert.Equal(t, "Valtimo", claims.UserRepresentation)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Minute)
	assert.NotContains(t, raw, "exp")
}

func Test_GenerateToken_WithUser(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := GenerateToken(secret32, "portal",
		WithUser("user-42", "Jan Jansen"),
		WithClock(func() time.Time { return issued }),
	)
	require.NoError(t, err)

	claims, _ := parse(t, token)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, "Jan Jansen", claims.UserRepresentation)
	assert.True(t, issued.Equal(claims.IssuedAt.Time))
}
