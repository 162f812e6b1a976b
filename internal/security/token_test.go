package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)

	access, err := svc.IssueAccess("u1")
	assert.NoError(t, err)

	userID, err := svc.ParseAccess(access)
	assert.NoError(t, err)
	assert.Equal(t, "u1", userID)

	refresh, err := svc.IssueRefresh("u1")
	assert.NoError(t, err)

	userID, err = svc.ParseRefresh(refresh)
	assert.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestTokenKindsDoNotCross(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)

	refresh, err := svc.IssueRefresh("u1")
	assert.NoError(t, err)

	_, err = svc.ParseAccess(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	access, err := svc.IssueAccess("u1")
	assert.NoError(t, err)

	_, err = svc.ParseRefresh(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", -time.Minute, time.Hour)

	access, err := svc.IssueAccess("u1")
	assert.NoError(t, err)

	_, err = svc.ParseAccess(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTamperedTokenRejected(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)
	other := NewTokenService("other-secret", "refresh-secret", time.Minute, time.Hour)

	access, err := other.IssueAccess("u1")
	assert.NoError(t, err)

	_, err = svc.ParseAccess(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
