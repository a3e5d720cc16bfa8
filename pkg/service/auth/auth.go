package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/amirasaad/securebank/pkg/domain/user"
	"github.com/amirasaad/securebank/pkg/eventbus"
	"github.com/amirasaad/securebank/pkg/repository"
	"github.com/amirasaad/securebank/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID    int64
	AccountID int64
	Username  string
}

// ClientInfo describes where a login attempt came from.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type Strategy interface {
	Login(ctx context.Context, username, password string) (*user.User, error)
	GenerateToken(ctx context.Context, u *user.User, accountID int64) (string, error)
	Identity(token *jwt.Token) (*Identity, error)
}

type Service struct {
	uow      repository.UnitOfWork
	strategy Strategy
	bus      eventbus.Bus
	logger   *slog.Logger
	now      func() time.Time
}

func New(
	uow repository.UnitOfWork,
	strategy Strategy,
	bus eventbus.Bus,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:      uow,
		strategy: strategy,
		bus:      bus,
		logger:   logger.With("service", "auth"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func NewWithJWT(
	uow repository.UnitOfWork,
	bus eventbus.Bus,
	cfg *config.Jwt,
	logger *slog.Logger,
) *Service {
	return New(uow, NewJWTStrategy(uow, cfg, logger), bus, logger)
}

// Login checks credentials and publishes the outcome. Unknown users and
// wrong passwords both yield user.ErrUserUnauthorized.
func (s *Service) Login(
	ctx context.Context,
	username, password string,
	client ClientInfo,
) (u *user.User, err error) {
	log := s.logger.With("context", "Login", "username", username, "ip", client.IP)
	log.Debug("Login called")

	u, err = s.strategy.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, user.ErrUserUnauthorized) {
			log.Warn("Login failed")
			s.emit(ctx, events.LoginFailed{
				Username:   username,
				IP:         client.IP,
				UserAgent:  client.UserAgent,
				OccurredAt: s.now(),
			})
		} else {
			log.Error("Login failed", "error", err)
		}
		return nil, err
	}

	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := users.TouchLastLogin(ctx, u.ID, now); err != nil {
		log.Warn("Failed to record last login", "error", err)
	} else {
		u.LastLogin = &now
	}

	s.emit(ctx, events.LoginSucceeded{
		UserID:     u.ID,
		Username:   u.Username,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		OccurredAt: now,
	})
	log.Info("Login successful", "userID", u.ID)
	return u, nil
}

// GenerateToken issues a token for u bound to u's account.
func (s *Service) GenerateToken(ctx context.Context, u *user.User) (string, error) {
	log := s.logger.With("userID", u.ID)
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return "", err
	}
	acc, err := accounts.GetByUserID(ctx, u.ID)
	if err != nil {
		log.Error("GenerateToken failed", "error", err)
		return "", err
	}
	token, err := s.strategy.GenerateToken(ctx, u, acc.ID)
	if err != nil {
		log.Error("GenerateToken failed", "error", err)
		return "", err
	}
	log.Debug("GenerateToken successful")
	return token, nil
}

// Identity extracts the caller from a token verified by the JWT middleware.
func (s *Service) Identity(token *jwt.Token) (*Identity, error) {
	id, err := s.strategy.Identity(token)
	if err != nil {
		s.logger.Warn("Identity failed", "error", err)
		return nil, err
	}
	return id, nil
}

// CurrentUser loads the user behind a verified token.
func (s *Service) CurrentUser(ctx context.Context, token *jwt.Token) (*user.User, *Identity, error) {
	id, err := s.Identity(token)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, nil, err
	}
	u, err := users.Get(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, nil, user.ErrUserUnauthorized
		}
		return nil, nil, err
	}
	return u, id, nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, event); err != nil {
		s.logger.Error("Failed to emit event", "type", event.Type(), "error", err)
	}
}

// JWTStrategy implements Strategy with bcrypt credentials and HS256 tokens.
type JWTStrategy struct {
	uow    repository.UnitOfWork
	cfg    *config.Jwt
	logger *slog.Logger
}

func NewJWTStrategy(
	uow repository.UnitOfWork,
	cfg *config.Jwt,
	logger *slog.Logger,
) *JWTStrategy {
	return &JWTStrategy{uow: uow, cfg: cfg, logger: logger}
}

func (s *JWTStrategy) Login(ctx context.Context, username, password string) (*user.User, error) {
	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository: %w", err)
	}
	u, err := users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			return nil, err
		}
		// Always check a password hash to avoid a timing oracle.
		utils.BurnPasswordCheck(password)
		return nil, user.ErrUserUnauthorized
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, user.ErrUserUnauthorized
	}
	return u, nil
}

func (s *JWTStrategy) GenerateToken(ctx context.Context, u *user.User, accountID int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    u.ID,
		"account_id": accountID,
		"username":   u.Username,
		"iat":        now.Unix(),
		"exp":        now.Add(s.cfg.Expiry).Unix(),
	})
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *JWTStrategy) Identity(token *jwt.Token) (*Identity, error) {
	if token == nil || !token.Valid {
		return nil, user.ErrUserUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, user.ErrUserUnauthorized
	}
	userID, ok := intClaim(claims, "user_id")
	if !ok {
		return nil, user.ErrUserUnauthorized
	}
	accountID, ok := intClaim(claims, "account_id")
	if !ok {
		return nil, user.ErrUserUnauthorized
	}
	username, _ := claims["username"].(string)
	return &Identity{UserID: userID, AccountID: accountID, Username: username}, nil
}

// intClaim reads a positive integer claim. JSON numbers decode as float64.
func intClaim(claims jwt.MapClaims, name string) (int64, bool) {
	var v int64
	switch n := claims[name].(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		v = int64(n)
	case int64:
		v = n
	case int:
		v = int64(n)
	default:
		return 0, false
	}
	return v, v > 0
}
