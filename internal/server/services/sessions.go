package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/cryptox"
	"github.com/dmitrijs2005/netguard/internal/logging"
	"github.com/dmitrijs2005/netguard/internal/server/auth"
	"github.com/dmitrijs2005/netguard/internal/server/config"
	"github.com/dmitrijs2005/netguard/internal/server/metrics"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/repomanager"
)

// sessionTokenBytes is the entropy of a session token; the hex form is twice
// as long.
const sessionTokenBytes = 32

// LoginResult is what a successful browser login hands back.
type LoginResult struct {
	Token       string
	Expires     time.Time
	Account     *models.Account
	Destination string
}

// SessionService issues and resolves browser sessions and sensor access
// tokens.
type SessionService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	accounts       *AccountService
	jwtSecret      []byte
	sessionTTL     time.Duration
	accessTokenTTL time.Duration
	metrics        *metrics.Metrics
	log            logging.Logger
	now            func() time.Time
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, accounts *AccountService, cfg *config.Config, mt *metrics.Metrics, log logging.Logger) *SessionService {
	return &SessionService{
		db:             db,
		repomanager:    m,
		accounts:       accounts,
		jwtSecret:      []byte(cfg.SecretKey),
		sessionTTL:     cfg.SessionTTL,
		accessTokenTTL: cfg.AccessTokenTTL,
		metrics:        mt,
		log:            log.With("module", "sessions"),
		now:            time.Now,
	}
}

// HomeFor is the landing page for a role after login.
func HomeFor(role models.Role) string {
	switch role {
	case models.RoleSuperAdmin:
		return "/admin/dashboard"
	case models.RoleAdmin:
		return "/admin/users"
	default:
		return "/dashboard"
	}
}

// SafeNext reports whether next is a local path that may be used as a
// redirect target. Scheme-relative ("//host") and backslash tricks are
// rejected.
func SafeNext(next string) bool {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return false
	}
	return !strings.ContainsAny(next, "\\\r\n")
}

// Login authenticates and opens a session. The destination is next when it
// is a safe local path, otherwise the role's home page.
func (s *SessionService) Login(ctx context.Context, userName, password, next string) (*LoginResult, error) {
	acc, err := s.accounts.Authenticate(ctx, userName, password)
	if err != nil {
		s.metrics.Login(metrics.LoginFailure)
		s.log.Info(ctx, "login failed", "username", userName)
		return nil, err
	}

	token, err := common.MakeRandHexString(sessionTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	session := &models.Session{
		Token:     cryptox.TokenDigest(token),
		AccountID: acc.ID,
		Expires:   s.now().Add(s.sessionTTL),
	}
	if err := s.repomanager.Sessions(s.db).Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	dest := HomeFor(acc.Role)
	if SafeNext(next) {
		dest = next
	}

	s.metrics.Login(metrics.LoginSuccess)
	s.log.Info(ctx, "login", "account_id", acc.ID, "role", acc.Role)

	return &LoginResult{Token: token, Expires: session.Expires, Account: acc, Destination: dest}, nil
}

// Resolve returns the account behind a live session token. Expired
// sessions are removed.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Sessions(s.db)
	digest := cryptox.TokenDigest(token)

	session, err := repo.Find(ctx, digest)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}

	if !session.Expires.After(s.now()) {
		if err := repo.Delete(ctx, digest); err != nil {
			s.log.Warn(ctx, "could not delete expired session", "error", err)
		}
		return nil, common.ErrorUnauthorized
	}

	return s.activeAccount(ctx, session.AccountID)
}

func (s *SessionService) activeAccount(ctx context.Context, id string) (*models.Account, error) {
	acc, err := s.repomanager.Accounts(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}
	if !acc.Active {
		return nil, common.ErrorUnauthorized
	}
	return acc, nil
}

// Logout ends a session. Unknown tokens are ignored.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repomanager.Sessions(s.db).Delete(ctx, cryptox.TokenDigest(token)); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// IssueAccessToken authenticates a sensor and signs an access token for it.
func (s *SessionService) IssueAccessToken(ctx context.Context, userName, password string) (string, *models.Account, error) {
	acc, err := s.accounts.Authenticate(ctx, userName, password)
	if err != nil {
		s.metrics.Login(metrics.LoginFailure)
		return "", nil, err
	}

	token, err := auth.GenerateToken(acc.ID, string(acc.Role), s.jwtSecret, s.accessTokenTTL)
	if err != nil {
		return "", nil, common.ErrorInternal
	}

	s.metrics.Login(metrics.LoginSuccess)
	s.log.Info(ctx, "access token issued", "account_id", acc.ID)
	return token, acc, nil
}

// PrincipalFromAccessToken verifies token and reloads its account, so
// deleted or deactivated accounts lose access before the token expires.
func (s *SessionService) PrincipalFromAccessToken(ctx context.Context, token string) (*models.Account, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return s.activeAccount(ctx, claims.AccountID)
}
