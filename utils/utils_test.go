package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Tapis":                 "tapis",
		"Tapis Élégance N°2":    "tapis-elegance-n-2",
		"  Cœur   de   Pierre ": "coeur-de-pierre",
		"---":                   "",
		"Baguette_01!":          "baguette-01",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	ConfigureJWT("test-secret", time.Hour)

	token, exp, err := GenerateToken("usr-1", "admin")
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "secret"))
	assert.False(t, CheckPassword(hash, "Secret"))
}

func TestGenerateID(t *testing.T) {
	id, err := GenerateID("prod")
	require.NoError(t, err)
	assert.Len(t, id, len("prod-")+16)
	assert.Regexp(t, `^prod-[0-9a-f]{16}$`, id)
}

func TestFormatDateTimeForDB(t *testing.T) {
	assert.Empty(t, FormatDateTimeForDB(time.Time{}))

	// 12:00 UTC in July is 14:00 in Paris
	ts := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-07-01 14:00:00", FormatDateTimeForDB(ts))

	assert.Same(t, ParisLocation(), ParisLocation())
	assert.Len(t, FormatDateTimeForDB(NowParis()), len("2006-01-02 15:04:05"))
}
