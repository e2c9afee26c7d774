package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/showtime/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("s3cret", time.Hour)
	who := models.Identity{ID: "u1", DisplayName: "Ada", Admin: true}

	tok, err := iss.Issue(who)
	require.NoError(t, err)
	got, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, who, got)
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("s3cret", time.Minute)
	tok, err := iss.Issue(models.Identity{ID: "u1"})
	require.NoError(t, err)

	_, err = NewIssuer("other", time.Minute).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong key")

	_, err = iss.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	iss.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = iss.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Name: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewIssuer("s3cret", time.Minute).Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")
}

func TestGuest(t *testing.T) {
	g := NewGuest("")
	assert.True(t, g.Guest)
	assert.Contains(t, g.DisplayName, "Guest-")
	assert.NotEqual(t, g.ID, NewGuest("").ID)
	assert.Equal(t, "Bo", NewGuest("Bo").DisplayName)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
	assert.False(t, CheckPassword("garbage", "hunter2"))
}
