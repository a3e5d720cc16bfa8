// Package testutils runs the full HTTP stack against a throwaway database
// for end-to-end tests.
package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	"github.com/amirasaad/securebank/infra/initializer"
	"github.com/amirasaad/securebank/pkg/app"
	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/amirasaad/securebank/webapi"
	"github.com/amirasaad/securebank/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// TestPassword is the password of every user created through CreateTestUser.
const TestPassword = "password123"

// NewTestConfig returns a complete configuration for an in-process server
// backed by sqlite at dsn.
func NewTestConfig(dsn string) *config.App {
	return &config.App{
		Env:    "test",
		Server: &config.Server{Scheme: "http", Host: "localhost", Port: 0, ProxyHeader: fiber.HeaderXForwardedFor},
		Log:    &config.Log{Format: "text", Prefix: "[test]"},
		DB:     &config.DB{Driver: "sqlite", Url: dsn},
		Auth: &config.Auth{
			Jwt:        &config.Jwt{Secret: "e2e-secret", Expiry: time.Hour},
			BcryptCost: 4,
		},
		EventBus:  &config.EventBus{Driver: "memory"},
		RateLimit: &config.RateLimit{MaxRequests: 100000, Window: time.Minute},
		Cors:      &config.Cors{AllowOrigins: "http://localhost:3000"},
		Ledger: &config.Ledger{
			MaxTransferAmount: "10000.00",
			Currency:          "USD",
			OperationTimeout:  5 * time.Second,
			ConflictRetries:   3,
			DefaultPageSize:   50,
			MaxPageSize:       100,
			TreasuryUsername:  "treasury",
			TreasuryOpening:   "1000000.00",
		},
	}
}

// TestUser is a user registered through the API.
type TestUser struct {
	ID        int64
	AccountID int64
	Username  string
	Token     string
}

// E2ETestSuite provides a test suite running the real app over sqlite.
type E2ETestSuite struct {
	suite.Suite
	App    *app.App
	Fiber  *fiber.App
	Config *config.App
}

// SetupSuite builds the dependencies, services and HTTP app once per suite.
func (s *E2ETestSuite) SetupSuite() {
	s.Config = NewTestConfig(filepath.Join(s.T().TempDir(), "e2e.db"))
	s.setup()
}

// SetupWithConfig lets suites that need different settings build the app themselves.
func (s *E2ETestSuite) SetupWithConfig(cfg *config.App) {
	s.Config = cfg
	s.setup()
}

func (s *E2ETestSuite) setup() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps, err := initializer.InitializeWithLogger(s.Config, logger)
	s.Require().NoError(err)

	s.App, err = app.New(deps, s.Config)
	s.Require().NoError(err)
	s.Fiber = webapi.SetupApp(s.App)
	log.SetOutput(io.Discard)
}

// TearDownSuite closes the database and bus.
func (s *E2ETestSuite) TearDownSuite() {
	if s.App != nil {
		_ = s.App.Deps.Close()
	}
}

// MakeRequest is a helper for making HTTP requests in tests.
func (s *E2ETestSuite) MakeRequest(method, path, body, token string, headers ...string) *http.Response {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.Fiber.Test(req, 10000)
	s.Require().NoError(err)
	return resp
}

// Decode reads a success envelope and decodes its data into out.
func (s *E2ETestSuite) Decode(resp *http.Response, out any) {
	defer resp.Body.Close() //nolint:errcheck
	var envelope struct {
		common.Response
		Data json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	if out != nil {
		s.Require().NoError(json.Unmarshal(envelope.Data, out))
	}
}

// Problem reads a problem details body.
func (s *E2ETestSuite) Problem(resp *http.Response) common.ProblemDetails {
	defer resp.Body.Close() //nolint:errcheck
	s.Equal("application/problem+json", resp.Header.Get("Content-Type"))
	var pd common.ProblemDetails
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&pd))
	return pd
}

// CreateTestUser registers a user with a random name and logs it in.
func (s *E2ETestSuite) CreateTestUser() *TestUser {
	username := "user_" + uuid.NewString()[:8]
	body := fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":%q}`, username, username, TestPassword)
	resp := s.MakeRequest(http.MethodPost, "/auth/register", body, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var created struct {
		UserID    int64 `json:"user_id"`
		AccountID int64 `json:"account_id"`
	}
	s.Decode(resp, &created)
	return &TestUser{
		ID:        created.UserID,
		AccountID: created.AccountID,
		Username:  username,
		Token:     s.LoginUser(username, TestPassword),
	}
}

// LoginUser makes an actual HTTP request to login and returns the JWT token.
func (s *E2ETestSuite) LoginUser(username, password string) string {
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	resp := s.MakeRequest(http.MethodPost, "/auth/login", body, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	s.Decode(resp, &out)
	s.Require().NotEmpty(out.Token)
	return out.Token
}

// Fund credits amount straight in storage so a test can start from a known
// balance without a funding transfer.
func (s *E2ETestSuite) Fund(u *TestUser, amount string) {
	res := s.App.Deps.DB.Exec(
		"UPDATE accounts SET balance = balance + ? WHERE id = ?",
		money.MustParse(amount).Cents(), u.AccountID,
	)
	s.Require().NoError(res.Error)
	s.Require().EqualValues(1, res.RowsAffected)
}
