package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/whitehat88/recruitment-auth/internal/core/domain"
	"github.com/whitehat88/recruitment-auth/internal/infra/config"
	"github.com/whitehat88/recruitment-auth/internal/infra/security"
	"github.com/whitehat88/recruitment-auth/internal/repository"
	"github.com/whitehat88/recruitment-auth/internal/usecase"
)

var gateClock = time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)

type gateUserRepo struct {
	user *domain.User
	err  error
}

func (f *gateUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, errors.New("unexpected call")
}

func (f *gateUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.user == nil || f.user.ID != id {
		return nil, repository.ErrNotFound
	}
	user := *f.user
	return &user, nil
}

func (f *gateUserRepo) GetAccount(ctx context.Context, userID int64, role domain.Role) (*domain.Account, error) {
	return nil, repository.ErrNotFound
}

func (f *gateUserRepo) RecordLogin(ctx context.Context, userID, accountID int64, role domain.Role, at time.Time) error {
	return errors.New("unexpected call")
}

func (f *gateUserRepo) RecordLogout(ctx context.Context, userID, accountID int64, role domain.Role, at time.Time) error {
	return errors.New("unexpected call")
}

func (f *gateUserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string, changedAt time.Time) error {
	return errors.New("unexpected call")
}

type gateSessionStore struct {
	closed       []int64
	closedAllFor []int64
	touched      []int64
}

func (f *gateSessionStore) Create(ctx context.Context, record domain.SessionRecord) (int64, error) {
	return 0, errors.New("unexpected call")
}

func (f *gateSessionStore) Close(ctx context.Context, recordID int64, at time.Time) error {
	f.closed = append(f.closed, recordID)
	return nil
}

func (f *gateSessionStore) CloseAllForUser(ctx context.Context, userID int64, at time.Time) (int, error) {
	f.closedAllFor = append(f.closedAllFor, userID)
	return 1, nil
}

func (f *gateSessionStore) Touch(ctx context.Context, recordID int64, at time.Time) error {
	f.touched = append(f.touched, recordID)
	return nil
}

func (f *gateSessionStore) ListActiveByUser(ctx context.Context, userID int64) ([]domain.SessionRecord, error) {
	return nil, errors.New("unexpected call")
}

type gateEvents struct{}

func (gateEvents) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	return nil
}

func (gateEvents) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	return nil
}

func (gateEvents) PublishSessionClosed(ctx context.Context, event domain.SessionClosedEvent) error {
	return nil
}

func (gateEvents) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	return nil
}

func (gateEvents) PublishPasswordResetCompleted(ctx context.Context, event domain.PasswordResetCompletedEvent) error {
	return nil
}

func gateSettings() config.SessionSettings {
	return config.SessionSettings{
		TTL:            24 * time.Hour,
		CookieName:     "recruit_session",
		PersistTimeout: time.Second,
	}
}

func newGateService(t *testing.T, users *gateUserRepo, sessions *gateSessionStore) (*usecase.AuthService, *security.SessionTokenCodec) {
	t.Helper()

	settings := gateSettings()
	cfg := &config.AppConfig{Session: settings}
	codec := security.NewSessionTokenCodec("gate-secret").WithClock(func() time.Time { return gateClock })
	hasher := security.NewPasswordHasher(bcrypt.MinCost)

	svc := usecase.NewAuthService(cfg, users, sessions, hasher, codec, gateEvents{}, zaptest.NewLogger(t))
	svc.WithClock(func() time.Time { return gateClock })
	return svc, codec
}

func gateSession() domain.LocalSession {
	return domain.LocalSession{
		UserID:      42,
		AccountID:   7,
		RecordID:    100,
		Role:        domain.RoleHR,
		DisplayName: "Dina Maro",
		Email:       "dina@whitehat88.example",
		IssuedAt:    gateClock,
		ExpiresAt:   gateClock.Add(24 * time.Hour),
	}
}

func gateUser() *domain.User {
	return &domain.User{
		ID:       42,
		Email:    "dina@whitehat88.example",
		Role:     domain.RoleHR,
		IsActive: true,
	}
}

func mintGateToken(t *testing.T, codec *security.SessionTokenCodec, session domain.LocalSession) string {
	t.Helper()

	token, err := codec.Mint(session)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func newGateRouter(svc *usecase.AuthService, captured *domain.LocalSession) *gin.Engine {
	router := gin.New()
	router.GET("/dashboard", RequireSession(svc, gateSettings()), func(c *gin.Context) {
		if session, ok := GetSession(c); ok && captured != nil {
			*captured = session
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequireSessionAcceptsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := &gateUserRepo{user: gateUser()}
	sessions := &gateSessionStore{}
	svc, codec := newGateService(t, users, sessions)

	var captured domain.LocalSession
	router := newGateRouter(svc, &captured)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "recruit_session", Value: mintGateToken(t, codec, gateSession())})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rr.Code, rr.Body.String())
	}

	if captured.UserID != 42 || captured.Role != domain.RoleHR {
		t.Fatalf("unexpected session in context: %+v", captured)
	}

	if got := rr.Header().Get("Set-Cookie"); got != "" {
		t.Fatalf("expected no cookie refresh, got %q", got)
	}

	if len(sessions.touched) != 1 || sessions.touched[0] != 100 {
		t.Fatalf("expected record 100 touched, got %v", sessions.touched)
	}
}

func TestRequireSessionAcceptsBearerFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := &gateUserRepo{user: gateUser()}
	svc, codec := newGateService(t, users, &gateSessionStore{})

	router := newGateRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+mintGateToken(t, codec, gateSession()))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireSessionRefreshesDriftedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := &gateUserRepo{user: gateUser()}
	sessions := &gateSessionStore{}
	svc, codec := newGateService(t, users, sessions)

	var captured domain.LocalSession
	router := newGateRouter(svc, &captured)

	// The directory moved the user to hr after this token was minted.
	stale := gateSession()
	stale.Role = domain.RoleApplicant

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "recruit_session", Value: mintGateToken(t, codec, stale)})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	if captured.Role != domain.RoleHR {
		t.Fatalf("expected reconciled role hr, got %q", captured.Role)
	}

	setCookie := rr.Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, "recruit_session=") {
		t.Fatalf("expected refreshed session cookie, got %q", setCookie)
	}
}

func TestRequireSessionClearsCookieWhenUserGone(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := &gateUserRepo{}
	sessions := &gateSessionStore{}
	svc, codec := newGateService(t, users, sessions)

	router := newGateRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "recruit_session", Value: mintGateToken(t, codec, gateSession())})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	setCookie := rr.Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, "recruit_session=") || !strings.Contains(setCookie, "Max-Age=0") {
		t.Fatalf("expected expired session cookie, got %q", setCookie)
	}

	if len(sessions.closed) != 1 || sessions.closed[0] != 100 {
		t.Fatalf("expected record 100 closed, got %v", sessions.closed)
	}
}

func TestRequireSessionRedirectsBrowserClients(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := &gateUserRepo{}
	svc, codec := newGateService(t, users, &gateSessionStore{})

	router := newGateRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: "recruit_session", Value: mintGateToken(t, codec, gateSession())})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}

	if got := rr.Header().Get("Location"); got != "/login" {
		t.Fatalf("expected redirect to /login, got %q", got)
	}

	setCookie := rr.Header().Get("Set-Cookie")
	if !strings.Contains(setCookie, "Max-Age=0") {
		t.Fatalf("expected expired session cookie, got %q", setCookie)
	}
}

func TestRequireSessionKeepsCookieWhenDirectoryUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := &gateUserRepo{err: errors.New("connection refused")}
	sessions := &gateSessionStore{}
	svc, codec := newGateService(t, users, sessions)

	router := newGateRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "recruit_session", Value: mintGateToken(t, codec, gateSession())})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	if got := rr.Header().Get("Set-Cookie"); got != "" {
		t.Fatalf("expected cookie left alone, got %q", got)
	}

	if len(sessions.closed) != 0 || len(sessions.closedAllFor) != 0 {
		t.Fatalf("expected no records closed on transient failure, got %v %v", sessions.closed, sessions.closedAllFor)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error != "session could not be verified" {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
}

func TestRequireSessionRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc, _ := newGateService(t, &gateUserRepo{}, &gateSessionStore{})
	router := newGateRouter(svc, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := &gateUserRepo{user: gateUser()}
	svc, codec := newGateService(t, users, &gateSessionStore{})

	router := gin.New()
	router.GET("/admin", RequireSession(svc, gateSettings()), RequireRole(domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "recruit_session", Value: mintGateToken(t, codec, gateSession())})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := &gateUserRepo{user: gateUser()}
	svc, codec := newGateService(t, users, &gateSessionStore{})

	router := gin.New()
	router.GET("/staff", RequireSession(svc, gateSettings()), RequireRole(domain.RoleAdmin, domain.RoleHR), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.AddCookie(&http.Cookie{Name: "recruit_session", Value: mintGateToken(t, codec, gateSession())})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
