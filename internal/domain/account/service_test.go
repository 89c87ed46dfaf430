package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/auth"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/cache"
	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/mailer"
)

// -- Mock Repository --

type mockRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*Account
	email map[string]uuid.UUID
	// updateDelay simulates a database round trip in UpdatePassword.
	updateDelay time.Duration
	updates     int
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: make(map[uuid.UUID]*Account), email: make(map[string]uuid.UUID)}
}

func (m *mockRepo) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[a.Email]; ok {
		return ErrDuplicateEmail
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.byID[a.ID] = a
	m.email[a.Email] = a.ID
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.email[email]
	if !ok {
		return nil, ErrNotFound
	}
	return m.byID[id], nil
}

func (m *mockRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	time.Sleep(m.updateDelay)
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = hash
	m.updates++
	return nil
}

type captureMailer struct {
	sent []mailer.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	svc    *Service
	repo   *mockRepo
	kv     *cache.MemoryKV
	mail   *captureMailer
	issuer *auth.TokenIssuer
	revoke *auth.RevocationStore
}

func newTestEnv() *testEnv {
	repo := newMockRepo()
	kv := cache.NewMemoryKV()
	mail := &captureMailer{}
	issuer := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	revoke := auth.NewRevocationStore(kv)
	svc := NewService(repo, issuer, revoke, kv, mail,
		ResetConfig{URLBase: "https://clinic.example/reset"}, zerolog.Nop())
	svc.cost = bcrypt.MinCost
	return &testEnv{svc: svc, repo: repo, kv: kv, mail: mail, issuer: issuer, revoke: revoke}
}

func (e *testEnv) signUp(t *testing.T) *Account {
	t.Helper()
	a, err := e.svc.SignUp(context.Background(), NewAccount{
		Email: " Staff@Clinic.Example ", Password: "correct-horse", DisplayName: "김간호",
	})
	require.NoError(t, err)
	return a
}

func jwtSubject(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: sub}
}

func resetToken(t *testing.T, msg mailer.Message) string {
	t.Helper()
	_, after, ok := strings.Cut(msg.Text, "?token=")
	require.True(t, ok, "reset mail has no link: %s", msg.Text)
	return strings.TrimSpace(after)
}

// -- Tests --

func TestSignUp(t *testing.T) {
	e := newTestEnv()
	a := e.signUp(t)

	assert.Equal(t, "staff@clinic.example", a.Email)
	assert.Equal(t, auth.RoleStaff, a.Role)
	assert.NotEqual(t, "correct-horse", a.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("correct-horse")))
}

func TestSignUp_IgnoresRequestedRole(t *testing.T) {
	e := newTestEnv()
	a, err := e.svc.SignUp(context.Background(), NewAccount{
		Email: "x@clinic.example", Password: "password1", DisplayName: "x", Role: auth.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleStaff, a.Role)
}

func TestSignUp_Duplicate(t *testing.T) {
	e := newTestEnv()
	e.signUp(t)
	_, err := e.svc.SignUp(context.Background(), NewAccount{
		Email: "staff@clinic.example", Password: "another-pass", DisplayName: "dup",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   NewAccount
	}{
		{"bad email", NewAccount{Email: "not-an-email", Password: "password1", DisplayName: "a"}},
		{"no name", NewAccount{Email: "a@b.kr", Password: "password1"}},
		{"short password", NewAccount{Email: "a@b.kr", Password: "short", DisplayName: "a"}},
		{"unknown role", NewAccount{Email: "a@b.kr", Password: "password1", DisplayName: "a", Role: "janitor"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEnv().svc.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestCreate_WithRole(t *testing.T) {
	a, err := newTestEnv().svc.Create(context.Background(), NewAccount{
		Email: "doc@clinic.example", Password: "password1", DisplayName: "이원장", Role: auth.RoleDoctor,
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleDoctor, a.Role)
}

func TestSignIn(t *testing.T) {
	e := newTestEnv()
	a := e.signUp(t)

	sess, err := e.svc.SignIn(context.Background(), "STAFF@clinic.example", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", sess.TokenType)
	assert.Equal(t, a.ID, sess.Account.ID)

	claims, err := e.issuer.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, a.ID.String(), claims.Subject)
	assert.Equal(t, []string{auth.RoleStaff}, claims.Roles)
}

func TestSignIn_Failures(t *testing.T) {
	e := newTestEnv()
	e.signUp(t)

	_, err := e.svc.SignIn(context.Background(), "staff@clinic.example", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.svc.SignIn(context.Background(), "nobody@clinic.example", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOut_RevokesToken(t *testing.T) {
	e := newTestEnv()
	e.signUp(t)
	sess, err := e.svc.SignIn(context.Background(), "staff@clinic.example", "correct-horse")
	require.NoError(t, err)
	claims, err := e.issuer.Parse(sess.Token)
	require.NoError(t, err)

	require.NoError(t, e.svc.SignOut(context.Background(), claims))
	revoked, err := e.revoke.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.NoError(t, e.svc.SignOut(context.Background(), nil))
}

func TestCurrent(t *testing.T) {
	e := newTestEnv()
	a := e.signUp(t)

	got, err := e.svc.Current(context.Background(), &auth.Claims{RegisteredClaims: jwtSubject(a.ID.String())})
	require.NoError(t, err)
	assert.Equal(t, a.Email, got.Email)

	_, err = e.svc.Current(context.Background(), &auth.Claims{RegisteredClaims: jwtSubject("dev-user")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	e := newTestEnv()
	e.signUp(t)

	require.NoError(t, e.svc.RequestPasswordReset(context.Background(), "staff@clinic.example"))
	require.Len(t, e.mail.sent, 1)
	msg := e.mail.sent[0]
	assert.Equal(t, "staff@clinic.example", msg.To)
	assert.Contains(t, msg.Text, "https://clinic.example/reset?token=")

	token := resetToken(t, msg)
	require.NoError(t, e.svc.ConfirmPasswordReset(context.Background(), token, "brand-new-pass"))

	_, err := e.svc.SignIn(context.Background(), "staff@clinic.example", "brand-new-pass")
	assert.NoError(t, err)
	_, err = e.svc.SignIn(context.Background(), "staff@clinic.example", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = e.svc.ConfirmPasswordReset(context.Background(), token, "third-password")
	assert.ErrorIs(t, err, ErrInvalidResetToken, "token must be single use")
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	e := newTestEnv()
	assert.NoError(t, e.svc.RequestPasswordReset(context.Background(), "ghost@clinic.example"))
	assert.Empty(t, e.mail.sent)
}

func TestPasswordReset_ShortPasswordKeepsToken(t *testing.T) {
	e := newTestEnv()
	e.signUp(t)
	require.NoError(t, e.svc.RequestPasswordReset(context.Background(), "staff@clinic.example"))
	token := resetToken(t, e.mail.sent[0])

	assert.ErrorIs(t, e.svc.ConfirmPasswordReset(context.Background(), token, "short"), ErrInvalid)
	assert.NoError(t, e.svc.ConfirmPasswordReset(context.Background(), token, "long-enough"))
}

func TestPasswordReset_ConcurrentConfirmUsesTokenOnce(t *testing.T) {
	e := newTestEnv()
	e.signUp(t)
	e.repo.updateDelay = 20 * time.Millisecond
	require.NoError(t, e.svc.RequestPasswordReset(context.Background(), "staff@clinic.example"))
	token := resetToken(t, e.mail.sent[0])

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.svc.ConfirmPasswordReset(context.Background(), token, "concurrent-pass")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, e.repo.updates)
}

func TestPasswordReset_MailFailureDropsToken(t *testing.T) {
	e := newTestEnv()
	e.signUp(t)
	e.mail.err = errors.New("smtp down")

	err := e.svc.RequestPasswordReset(context.Background(), "staff@clinic.example")
	assert.Error(t, err)
	assert.Empty(t, e.mail.sent)
}

func TestConfirmPasswordReset_UnknownToken(t *testing.T) {
	e := newTestEnv()
	assert.ErrorIs(t, e.svc.ConfirmPasswordReset(context.Background(), "", "long-enough"), ErrInvalidResetToken)
	assert.ErrorIs(t, e.svc.ConfirmPasswordReset(context.Background(), "deadbeef", "long-enough"), ErrInvalidResetToken)
}
