package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

type mockUserRepo struct {
	byID    map[uuid.UUID]User
	byEmail map[string]User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:    make(map[uuid.UUID]User),
		byEmail: make(map[string]User),
	}
}

func (m *mockUserRepo) Create(ctx context.Context, user User) error {
	if _, exists := m.byEmail[user.Email]; exists {
		return shared.ErrConflict
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func newTestService() (*Service, *mockUserRepo) {
	repo := newMockUserRepo()
	tokens := NewTokenIssuer("test-secret", "atlas-erp-test", time.Hour)
	return NewService(repo, tokens), repo
}

func TestRegister(t *testing.T) {
	svc, repo := newTestService()

	user, err := svc.Register(context.Background(), "Sales User", "sales@example.com", "password123", RoleSales)
	require.NoError(t, err)
	assert.Equal(t, RoleSales, user.Role)
	assert.NotEqual(t, uuid.Nil, user.ID)

	stored := repo.byEmail["sales@example.com"]
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")))
}

func TestRegisterUnknownRole(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Register(context.Background(), "X", "x@example.com", "password123", Role("SUPERUSER"))
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.byEmail)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), "A", "dup@example.com", "password123", RoleCustomer)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "B", "dup@example.com", "password123", RoleCustomer)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService()
	registered, err := svc.Register(context.Background(), "Sales User", "sales@example.com", "password123", RoleSales)
	require.NoError(t, err)

	user, token, err := svc.Authenticate(context.Background(), "sales@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	require.NotEmpty(t, token)

	principal, err := svc.tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, principal.ID)
	assert.Equal(t, RoleSales, principal.Role)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(context.Background(), "Sales User", "sales@example.com", "password123", RoleSales)
	require.NoError(t, err)

	_, _, err = svc.Authenticate(context.Background(), "sales@example.com", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc, _ := newTestService()

	// Unknown email and wrong password report the same error.
	_, _, err := svc.Authenticate(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestMe(t *testing.T) {
	svc, _ := newTestService()
	registered, err := svc.Register(context.Background(), "Sales User", "sales@example.com", "password123", RoleSales)
	require.NoError(t, err)

	user, err := svc.Me(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "sales@example.com", user.Email)

	_, err = svc.Me(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRoleIn(t *testing.T) {
	tests := []struct {
		role    Role
		allowed []Role
		want    bool
	}{
		{RoleSales, []Role{RoleSales}, true},
		{RoleAdmin, []Role{RoleSales}, false},
		{RoleCustomer, []Role{RoleAdmin, RoleSales}, false},
		{RoleAdmin, []Role{RoleAdmin, RoleSales}, true},
		{RoleSales, nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.role.In(tt.allowed...), "%s in %v", tt.role, tt.allowed)
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleSales.Valid())
	assert.True(t, RoleCustomer.Valid())
	assert.False(t, Role("sales").Valid())
	assert.False(t, Role("").Valid())
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenIssuer("secret", "atlas-erp-test", time.Hour)
	user := &User{ID: uuid.New(), Role: RoleAdmin}

	signed, err := tokens.Issue(user)
	require.NoError(t, err)

	principal, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.ID)
	assert.Equal(t, RoleAdmin, principal.Role)
}

func TestTokenExpired(t *testing.T) {
	tokens := NewTokenIssuer("secret", "atlas-erp-test", -time.Minute)
	signed, err := tokens.Issue(&User{ID: uuid.New(), Role: RoleSales})
	require.NoError(t, err)

	_, err = tokens.Parse(signed)
	assert.Error(t, err)
}

func TestTokenBadSignature(t *testing.T) {
	tokens := NewTokenIssuer("secret", "atlas-erp-test", time.Hour)
	other := NewTokenIssuer("different-secret", "atlas-erp-test", time.Hour)

	signed, err := tokens.Issue(&User{ID: uuid.New(), Role: RoleSales})
	require.NoError(t, err)

	_, err = other.Parse(signed)
	assert.Error(t, err)
}

func TestTokenTampered(t *testing.T) {
	tokens := NewTokenIssuer("secret", "atlas-erp-test", time.Hour)
	signed, err := tokens.Issue(&User{ID: uuid.New(), Role: RoleCustomer})
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	parts[1] = strings.Repeat("A", len(parts[1]))
	_, err = tokens.Parse(strings.Join(parts, "."))
	assert.Error(t, err)
}
