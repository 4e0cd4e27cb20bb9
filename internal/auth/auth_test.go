package auth

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"learninghouse/internal/fault"
)

func init() {
	hashCost = bcrypt.MinCost
}

func newTestService(t *testing.T, dir string) *Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	s, err := NewService(dir, NewTokenIssuer("secret", 10*time.Minute), "learninghouse", log)
	require.NoError(t, err)
	return s
}

func TestRoles(t *testing.T) {
	assert.True(t, RoleAdmin.Allows(RoleTrainer))
	assert.True(t, RoleTrainer.Allows(RoleUser))
	assert.False(t, RoleUser.Allows(RoleTrainer))
	assert.False(t, Role("").Allows(RoleUser))

	_, err := ParseAPIKeyRole("admin")
	assert.Error(t, err)
}

func TestLoginAndAuthorize(t *testing.T) {
	s := newTestService(t, t.TempDir())
	assert.True(t, s.InitialPassword())

	_, err := s.Login("wrong")
	assert.Equal(t, fault.Unauthorized, fault.KindOf(err))

	token, err := s.Login("learninghouse")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, 600, token.ExpiresIn)

	role, err := s.Authorize(token.AccessToken, "")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = s.Authorize("garbage", "")
	assert.Equal(t, fault.Unauthorized, fault.KindOf(err))

	_, err = s.Authorize("", "")
	assert.Equal(t, fault.Unauthorized, fault.KindOf(err))
}

func TestExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.Issue(RoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Minute).Validate(token.AccessToken)
	assert.Error(t, err)

	_, err = NewTokenIssuer("other", time.Minute).Validate(token.AccessToken)
	assert.Error(t, err)
}

func TestChangePasswordPersists(t *testing.T) {
	dir := t.TempDir()
	s := newTestService(t, dir)

	err := s.ChangePassword("wrong", "new-password")
	assert.Equal(t, fault.Unauthorized, fault.KindOf(err))

	err = s.ChangePassword("learninghouse", "short")
	assert.Equal(t, fault.BadRequest, fault.KindOf(err))

	require.NoError(t, s.ChangePassword("learninghouse", "new-password"))
	assert.False(t, s.InitialPassword())

	reloaded := newTestService(t, dir)
	assert.False(t, reloaded.InitialPassword())
	_, err = reloaded.Login("new-password")
	assert.NoError(t, err)
}

func TestAPIKeys(t *testing.T) {
	dir := t.TempDir()
	s := newTestService(t, dir)

	_, err := s.CreateAPIKey("homeassistant", RoleTrainer)
	assert.Equal(t, fault.Forbidden, fault.KindOf(err))

	require.NoError(t, s.ChangePassword("learninghouse", "new-password"))

	_, err = s.CreateAPIKey("x", RoleUser)
	assert.Equal(t, fault.BadRequest, fault.KindOf(err))
	_, err = s.CreateAPIKey("homeassistant", RoleAdmin)
	assert.Equal(t, fault.BadRequest, fault.KindOf(err))

	key, err := s.CreateAPIKey("homeassistant", RoleTrainer)
	require.NoError(t, err)
	assert.NotEmpty(t, key.Key)

	_, err = s.CreateAPIKey("homeassistant", RoleUser)
	assert.Equal(t, fault.APIKeyExists, fault.KindOf(err))

	role, err := s.Authorize("", key.Key)
	require.NoError(t, err)
	assert.Equal(t, RoleTrainer, role)

	_, err = s.Authorize("", key.ID+".wrong")
	assert.Equal(t, fault.Unauthorized, fault.KindOf(err))

	reloaded := newTestService(t, dir)
	keys, err := reloaded.ListAPIKeys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "homeassistant", keys[0].Description)

	require.NoError(t, reloaded.DeleteAPIKey(key.ID))
	err = reloaded.DeleteAPIKey(key.ID)
	assert.Equal(t, fault.NoAPIKey, fault.KindOf(err))

	_, err = reloaded.Authorize("", key.Key)
	assert.Equal(t, fault.Unauthorized, fault.KindOf(err))
}
