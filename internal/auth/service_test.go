package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labeldesk/backend/internal/audit"
	"github.com/labeldesk/backend/internal/config"
	"github.com/labeldesk/backend/internal/models"
	"github.com/labeldesk/backend/internal/security"
	"github.com/labeldesk/backend/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAccounts struct {
	mu      sync.Mutex
	byID    map[string]*models.Account
	byEmail map[string]string
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byID: map[string]*models.Account{}, byEmail: map[string]string{}}
}

func (m *memoryAccounts) Create(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[a.Email]; ok {
		return ErrEmailTaken
	}
	cp := *a
	m.byID[a.ID] = &cp
	m.byEmail[a.Email] = a.ID
	return nil
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *memoryAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeDevices struct {
	trusted map[string]bool
	devices map[string]*models.Device
}

func (f *fakeDevices) Register(_ context.Context, accountID, fingerprint, label string) (*models.Device, error) {
	key := accountID + "/" + fingerprint
	d, ok := f.devices[key]
	if !ok {
		d = &models.Device{ID: uuid.NewString(), AccountID: accountID, Fingerprint: fingerprint, Label: label, CreatedAt: time.Now()}
		f.devices[key] = d
	}
	if f.trusted[fingerprint] && d.TrustedAt == nil {
		now := time.Now()
		d.TrustedAt = &now
	}
	return d, nil
}

type fixture struct {
	svc    *Service
	store  *tokens.MemoryStore
	sink   *audit.MemorySink
	access *AccessTokens
}

func newFixture(t *testing.T, trusted ...string) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	hasher := security.NewHasher(config.Argon2Config{Time: 1, Memory: 1024, Threads: 1, KeyLength: 32, SaltLength: 16})
	store := tokens.NewMemoryStore()
	guard := tokens.NewGuard(store, hasher, tokens.Config{TTL: time.Hour, SecretBytes: 32}, logger)
	access := NewAccessTokens(config.JWTConfig{SecretKey: "test-secret", AccessTTL: time.Minute, Issuer: "labeldesk"})
	sink := audit.NewMemorySink()

	devices := &fakeDevices{trusted: map[string]bool{}, devices: map[string]*models.Device{}}
	for _, fp := range trusted {
		devices.trusted[fp] = true
	}

	svc := NewService(newMemoryAccounts(), devices, guard, access, hasher, sink, logger)
	return &fixture{svc: svc, store: store, sink: sink, access: access}
}

func TestService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.svc.Register(ctx, "  User@Example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", account.Email)
	assert.Equal(t, models.RoleUser, account.Role)
	assert.True(t, account.Balance.IsZero())
	assert.NotContains(t, account.PasswordHash, "password123")

	session, err := f.svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Nil(t, session.Device)

	claims, err := f.access.Parse(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.Subject)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Empty(t, claims.DeviceID)

	entries := f.sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ResultLoginSucceeded, entries[0].Result)
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "dup@example.com", "password123")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "DUP@example.com", "password123")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_LoginFailuresAreAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.svc.Register(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	entries := f.sink.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ResultLoginFailed, entries[0].Result)
	assert.Equal(t, "bad_password", entries[0].Reason)
	assert.Equal(t, account.ID, *entries[0].AccountID)
	assert.Equal(t, "unknown_email", entries[1].Reason)
	assert.Nil(t, entries[1].AccountID)
}

func TestService_LoginBindsOnlyTrustedDevices(t *testing.T) {
	f := newFixture(t, "trusted-fp")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	untrusted, err := f.svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "password123", Fingerprint: "new-fp"})
	require.NoError(t, err)
	require.NotNil(t, untrusted.Device)
	assert.False(t, untrusted.Device.Trusted())
	rec, err := f.svc.sessions.Verify(ctx, untrusted.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, rec.DeviceID)

	trusted, err := f.svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "password123", Fingerprint: "trusted-fp"})
	require.NoError(t, err)
	rec, err = f.svc.sessions.Verify(ctx, trusted.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, rec.DeviceID)
	assert.Equal(t, trusted.Device.ID, *rec.DeviceID)

	claims, err := f.access.Parse(trusted.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, trusted.Device.ID, claims.DeviceID)
}

func TestService_RefreshThenReplayForcesRelogin(t *testing.T) {
	f := newFixture(t, "phone")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	login, err := f.svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "password123", Fingerprint: "phone"})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	claims, err := f.access.Parse(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, login.Device.ID, claims.DeviceID)

	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, tokens.ErrReuseDetected)

	_, err = f.svc.Refresh(ctx, refreshed.RefreshToken)
	assert.ErrorIs(t, err, tokens.ErrReuseDetected)

	again, err := f.svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "password123", Fingerprint: "phone"})
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx, again.RefreshToken)
	assert.NoError(t, err)
}

func TestService_Logout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "user@example.com", "password123")
	require.NoError(t, err)
	session, err := f.svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, session.RefreshToken))

	_, err = f.svc.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, tokens.ErrReuseDetected)

	err = f.svc.Logout(ctx, "garbage")
	assert.ErrorIs(t, err, tokens.ErrInvalidToken)
}

func TestService_LogoutAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.svc.Register(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	var sessions []*Session
	for i := 0; i < 3; i++ {
		s, err := f.svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "password123"})
		require.NoError(t, err)
		sessions = append(sessions, s)
	}

	n, err := f.svc.LogoutAll(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for _, s := range sessions {
		_, err := f.svc.Refresh(ctx, s.RefreshToken)
		assert.Error(t, err)
	}

	last := f.sink.Entries()
	var found bool
	for _, e := range last {
		if e.Result == audit.ResultLogoutAll {
			found = true
			assert.True(t, strings.HasPrefix(e.Reason, "revoked=3"))
		}
	}
	assert.True(t, found)
}
