package webapi_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/amirasaad/securebank/pkg/domain/audit"
	"github.com/amirasaad/securebank/webapi/testutils"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
)

type txView struct {
	ID            int64  `json:"id"`
	SenderID      int64  `json:"sender_id"`
	ReceiverID    int64  `json:"receiver_id"`
	Direction     string `json:"direction"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

type listView struct {
	Transactions []txView `json:"transactions"`
	Limit        int      `json:"limit"`
	Offset       int      `json:"offset"`
}

type LedgerAPITestSuite struct {
	testutils.E2ETestSuite
}

func TestLedgerAPITestSuite(t *testing.T) {
	suite.Run(t, new(LedgerAPITestSuite))
}

func (s *LedgerAPITestSuite) balance(u *testutils.TestUser) string {
	resp := s.MakeRequest(http.MethodGet, "/balance", "", u.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var out struct {
		AccountID int64  `json:"account_id"`
		Balance   string `json:"balance"`
		Currency  string `json:"currency"`
	}
	s.Decode(resp, &out)
	s.Equal(u.AccountID, out.AccountID)
	s.Equal("USD", out.Currency)
	return out.Balance
}

func (s *LedgerAPITestSuite) transfer(from, to *testutils.TestUser, amount, description string, headers ...string) *http.Response {
	body := fmt.Sprintf(`{"receiver_id":%d,"amount":%q,"description":%q}`, to.AccountID, amount, description)
	return s.MakeRequest(http.MethodPost, "/transfer", body, from.Token, headers...)
}

func (s *LedgerAPITestSuite) list(u *testutils.TestUser, query string) listView {
	resp := s.MakeRequest(http.MethodGet, "/transactions"+query, "", u.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var out listView
	s.Decode(resp, &out)
	return out
}

func (s *LedgerAPITestSuite) TestHealth() {
	resp := s.MakeRequest(http.MethodGet, "/health", "", "")
	defer resp.Body.Close() //nolint:errcheck
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *LedgerAPITestSuite) TestRegisterLoginMe() {
	u := s.CreateTestUser()

	resp := s.MakeRequest(http.MethodGet, "/auth/me", "", u.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var me struct {
		UserID    int64  `json:"user_id"`
		Username  string `json:"username"`
		AccountID int64  `json:"account_id"`
		Balance   string `json:"balance"`
	}
	s.Decode(resp, &me)
	s.Equal(u.ID, me.UserID)
	s.Equal(u.Username, me.Username)
	s.Equal(u.AccountID, me.AccountID)
	s.Equal("0.00", me.Balance)
}

func (s *LedgerAPITestSuite) TestRegister_DuplicateUsername() {
	u := s.CreateTestUser()
	body := fmt.Sprintf(`{"username":%q,"password":"another-password"}`, u.Username)
	resp := s.MakeRequest(http.MethodPost, "/auth/register", body, "")
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.NotEmpty(s.Problem(resp).CorrelationID)
}

func (s *LedgerAPITestSuite) TestRegister_Invalid() {
	for _, body := range []string{
		`{"username":"ab","password":"password123"}`,
		`{"username":"valid_name","password":"short"}`,
		`{"username":"valid_name","password":"password123","role":"admin"}`,
		`{"username":"valid_name","email":"not-an-email","password":"password123"}`,
	} {
		resp := s.MakeRequest(http.MethodPost, "/auth/register", body, "")
		s.Equal(http.StatusBadRequest, resp.StatusCode, body)
		_ = resp.Body.Close()
	}
}

func (s *LedgerAPITestSuite) TestLogin_FailuresLookAlike() {
	u := s.CreateTestUser()

	wrong := s.MakeRequest(http.MethodPost, "/auth/login",
		fmt.Sprintf(`{"username":%q,"password":"wrong-password"}`, u.Username), "")
	unknown := s.MakeRequest(http.MethodPost, "/auth/login",
		`{"username":"nobody_here","password":"wrong-password"}`, "")

	s.Equal(http.StatusUnauthorized, wrong.StatusCode)
	s.Equal(http.StatusUnauthorized, unknown.StatusCode)
	a, b := s.Problem(wrong), s.Problem(unknown)
	s.Equal(a.Title, b.Title)
	s.Equal(a.Detail, b.Detail)
}

func (s *LedgerAPITestSuite) TestLogin_IsAudited() {
	u := s.CreateTestUser()
	resp := s.MakeRequest(http.MethodPost, "/auth/login",
		fmt.Sprintf(`{"username":%q,"password":%q}`, u.Username, testutils.TestPassword), "",
		"User-Agent", "e2e-agent")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = s.MakeRequest(http.MethodGet, "/auth/activity?limit=5", "", u.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var entries []struct {
		Action    string `json:"action"`
		UserAgent string `json:"user_agent"`
	}
	s.Decode(resp, &entries)
	s.Require().NotEmpty(entries)
	s.LessOrEqual(len(entries), 5)
	s.Equal(audit.ActionLoginSucceeded, entries[0].Action)
	s.Equal("e2e-agent", entries[0].UserAgent)
	s.Equal(audit.ActionUserRegistered, entries[len(entries)-1].Action)
}

func (s *LedgerAPITestSuite) TestActivity_OnlyOwnEntries() {
	alice, bob := s.CreateTestUser(), s.CreateTestUser()
	// Failed logins against bob carry no user id and never reach his feed.
	resp := s.MakeRequest(http.MethodPost, "/auth/login",
		fmt.Sprintf(`{"username":%q,"password":"wrong-password"}`, bob.Username), "")
	_ = resp.Body.Close()

	entries, err := s.App.AuditService.Recent(s.T().Context(), alice.ID, 0)
	s.Require().NoError(err)
	for _, e := range entries {
		s.Require().NotNil(e.UserID)
		s.Equal(alice.ID, *e.UserID)
	}

	resp = s.MakeRequest(http.MethodGet, "/auth/activity?limit=500", "", alice.Token)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *LedgerAPITestSuite) TestProfile_GetAndUpdate() {
	u := s.CreateTestUser()

	resp := s.MakeRequest(http.MethodGet, "/auth/profile", "", u.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var profile struct {
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
	}
	s.Decode(resp, &profile)
	s.Equal(u.ID, profile.UserID)
	s.Equal(u.Username+"@example.com", profile.Email)
	s.Empty(profile.FullName)

	resp = s.MakeRequest(http.MethodPut, "/auth/profile",
		`{"email":"new@example.com","full_name":"Alice Liddell","phone":"+1 555 0100","address":"1 Rabbit Hole"}`, u.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Decode(resp, &profile)
	s.Equal("Alice Liddell", profile.FullName)

	resp = s.MakeRequest(http.MethodGet, "/auth/profile", "", u.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Decode(resp, &profile)
	s.Equal("new@example.com", profile.Email)
	s.Equal("+1 555 0100", profile.Phone)
	s.Equal("1 Rabbit Hole", profile.Address)
	s.Equal(u.Username, profile.Username)
}

func (s *LedgerAPITestSuite) TestProfile_UpdateRejected() {
	u := s.CreateTestUser()
	for _, body := range []string{
		`{"email":"not-an-email"}`,
		`{"phone":"call me maybe"}`,
		`{"username":"someone_else"}`,
	} {
		resp := s.MakeRequest(http.MethodPut, "/auth/profile", body, u.Token)
		s.Equal(http.StatusBadRequest, resp.StatusCode, body)
		_ = resp.Body.Close()
	}
}

func (s *LedgerAPITestSuite) TestChangePassword() {
	u := s.CreateTestUser()

	resp := s.MakeRequest(http.MethodPost, "/auth/password",
		`{"current_password":"wrong-password","new_password":"brand-new-pass"}`, u.Token)
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
	s.Equal("current password is incorrect", s.Problem(resp).Detail)

	resp = s.MakeRequest(http.MethodPost, "/auth/password",
		fmt.Sprintf(`{"current_password":%q,"new_password":"brand-new-pass"}`, testutils.TestPassword), u.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	old := s.MakeRequest(http.MethodPost, "/auth/login",
		fmt.Sprintf(`{"username":%q,"password":%q}`, u.Username, testutils.TestPassword), "")
	s.Equal(http.StatusUnauthorized, old.StatusCode)
	_ = old.Body.Close()
	s.NotEmpty(s.LoginUser(u.Username, "brand-new-pass"))

	entries, err := s.App.AuditService.Recent(s.T().Context(), u.ID, 0)
	s.Require().NoError(err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, audit.ActionPasswordChanged)
}

func (s *LedgerAPITestSuite) TestChangePassword_Rejected() {
	u := s.CreateTestUser()
	for _, body := range []string{
		fmt.Sprintf(`{"current_password":%q,"new_password":"short"}`, testutils.TestPassword),
		fmt.Sprintf(`{"current_password":%q,"new_password":%q}`, testutils.TestPassword, testutils.TestPassword),
		`{"new_password":"brand-new-pass"}`,
		fmt.Sprintf(`{"current_password":%q,"new_password":"brand-new-pass","user_id":1}`, testutils.TestPassword),
	} {
		resp := s.MakeRequest(http.MethodPost, "/auth/password", body, u.Token)
		s.Equal(http.StatusBadRequest, resp.StatusCode, body)
		_ = resp.Body.Close()
	}
}

func (s *LedgerAPITestSuite) TestLogout() {
	u := s.CreateTestUser()
	resp := s.MakeRequest(http.MethodPost, "/auth/logout", "", u.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("no-store", resp.Header.Get("Cache-Control"))
	_ = resp.Body.Close()

	resp = s.MakeRequest(http.MethodPost, "/auth/logout", "", "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *LedgerAPITestSuite) TestProtectedRoutesRequireToken() {
	for _, path := range []string{"/balance", "/transactions", "/transactions/1", "/transactions/export", "/auth/me", "/auth/profile", "/auth/activity"} {
		resp := s.MakeRequest(http.MethodGet, path, "", "")
		s.Equal(http.StatusUnauthorized, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
	resp := s.MakeRequest(http.MethodGet, "/balance", "", "not.a.token")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *LedgerAPITestSuite) TestTransfer_RentScenario() {
	alice, bob := s.CreateTestUser(), s.CreateTestUser()
	s.Fund(alice, "100.00")

	resp := s.transfer(alice, bob, "40.00", "rent")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var tx txView
	s.Decode(resp, &tx)
	s.Equal("40.00", tx.Amount)
	s.Equal("completed", tx.Status)
	s.Equal("debit", tx.Direction)
	s.Equal(alice.AccountID, tx.SenderID)
	s.Equal(bob.AccountID, tx.ReceiverID)

	s.Equal("60.00", s.balance(alice))
	s.Equal("40.00", s.balance(bob))

	received := s.list(bob, "")
	s.Require().Len(received.Transactions, 1)
	s.Equal("credit", received.Transactions[0].Direction)
}

func (s *LedgerAPITestSuite) TestTransfer_InsufficientFunds() {
	alice, bob := s.CreateTestUser(), s.CreateTestUser()
	s.Fund(alice, "30.00")

	resp := s.transfer(alice, bob, "50.00", "too much")
	s.Equal(http.StatusConflict, resp.StatusCode)
	pd := s.Problem(resp)
	s.Equal("insufficient funds", pd.Detail)
	s.NotContains(pd.Detail, "30.00")

	s.Equal("30.00", s.balance(alice))
	s.Equal("0.00", s.balance(bob))

	history := s.list(alice, "")
	s.Require().Len(history.Transactions, 1)
	s.Equal("failed", history.Transactions[0].Status)

	s.Empty(s.list(bob, "").Transactions)
	resp = s.MakeRequest(http.MethodGet, fmt.Sprintf("/transactions/%d", history.Transactions[0].ID), "", bob.Token)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func (s *LedgerAPITestSuite) TestTransfer_Rejections() {
	alice, bob := s.CreateTestUser(), s.CreateTestUser()
	s.Fund(alice, "100.00")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"self transfer", fmt.Sprintf(`{"receiver_id":%d,"amount":"1.00"}`, alice.AccountID), http.StatusBadRequest},
		{"three decimals", fmt.Sprintf(`{"receiver_id":%d,"amount":"10.999"}`, bob.AccountID), http.StatusBadRequest},
		{"negative", fmt.Sprintf(`{"receiver_id":%d,"amount":"-5.00"}`, bob.AccountID), http.StatusBadRequest},
		{"zero", fmt.Sprintf(`{"receiver_id":%d,"amount":"0"}`, bob.AccountID), http.StatusBadRequest},
		{"exponent", fmt.Sprintf(`{"receiver_id":%d,"amount":"1e3"}`, bob.AccountID), http.StatusBadRequest},
		{"over limit", fmt.Sprintf(`{"receiver_id":%d,"amount":"10000.01"}`, bob.AccountID), http.StatusBadRequest},
		{"json number", fmt.Sprintf(`{"receiver_id":%d,"amount":10}`, bob.AccountID), http.StatusBadRequest},
		{"sender in body", fmt.Sprintf(`{"sender_id":%d,"receiver_id":%d,"amount":"1.00"}`, bob.AccountID, alice.AccountID), http.StatusBadRequest},
		{"receiver as string", fmt.Sprintf(`{"receiver_id":"%d","amount":"1.00"}`, bob.AccountID), http.StatusBadRequest},
		{"unknown receiver", `{"receiver_id":99999999,"amount":"1.00"}`, http.StatusNotFound},
		{"empty body", ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp := s.MakeRequest(http.MethodPost, "/transfer", tt.body, alice.Token)
			s.Equal(tt.want, resp.StatusCode)
			pd := s.Problem(resp)
			s.NotEmpty(pd.CorrelationID)
		})
	}
	s.Equal("100.00", s.balance(alice))
}

func (s *LedgerAPITestSuite) TestTransfer_IdempotencyKey() {
	alice, bob := s.CreateTestUser(), s.CreateTestUser()
	s.Fund(alice, "100.00")

	first := s.transfer(alice, bob, "25.00", "invoice 7", "Idempotency-Key", "invoice-7")
	s.Require().Equal(http.StatusCreated, first.StatusCode)
	var original txView
	s.Decode(first, &original)

	again := s.transfer(alice, bob, "25.00", "invoice 7", "Idempotency-Key", "invoice-7")
	s.Require().Equal(http.StatusOK, again.StatusCode)
	s.Equal("true", again.Header.Get("Idempotent-Replayed"))
	var replay txView
	s.Decode(again, &replay)
	s.Equal(original.ID, replay.ID)

	reused := s.transfer(alice, bob, "26.00", "invoice 7", "Idempotency-Key", "invoice-7")
	s.Equal(http.StatusConflict, reused.StatusCode)
	_ = reused.Body.Close()

	bad := s.transfer(alice, bob, "1.00", "", "Idempotency-Key", "has spaces!")
	s.Equal(http.StatusBadRequest, bad.StatusCode)
	_ = bad.Body.Close()

	s.Equal("75.00", s.balance(alice))
	s.Equal("25.00", s.balance(bob))
}

func (s *LedgerAPITestSuite) TestTransfer_ConcurrentOverdraft() {
	alice, bob := s.CreateTestUser(), s.CreateTestUser()
	s.Fund(alice, "100.00")

	const attempts = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := s.transfer(alice, bob, "30.00", "race")
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusCreated {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(3, created)
	s.Equal("10.00", s.balance(alice))
	s.Equal("90.00", s.balance(bob))
}

func (s *LedgerAPITestSuite) TestTransactions_FilterAndPagination() {
	alice, bob := s.CreateTestUser(), s.CreateTestUser()
	s.Fund(alice, "100.00")
	for _, d := range []string{"rent march", "groceries", "Rent april", "100% cotton"} {
		resp := s.transfer(alice, bob, "1.00", d)
		s.Require().Equal(http.StatusCreated, resp.StatusCode)
		_ = resp.Body.Close()
	}

	s.Len(s.list(alice, "").Transactions, 4)
	s.Len(s.list(alice, "?filter=rent").Transactions, 2)
	s.Len(s.list(alice, "?filter="+url.QueryEscape("100%")).Transactions, 1)
	s.Len(s.list(alice, "?filter="+url.QueryEscape("' OR '1'='1")).Transactions, 0)
	s.Len(s.list(alice, "?filter="+url.QueryEscape("%")).Transactions, 1)

	page := s.list(alice, "?limit=3&offset=0")
	s.Len(page.Transactions, 3)
	s.Equal(3, page.Limit)
	s.Equal("100% cotton", page.Transactions[0].Description)
	s.Len(s.list(alice, "?limit=3&offset=3").Transactions, 1)
	s.Equal(100, s.list(alice, "?limit=1000").Limit)

	for _, q := range []string{"?limit=abc", "?offset=-1", "?limit=-5"} {
		resp := s.MakeRequest(http.MethodGet, "/transactions"+q, "", alice.Token)
		s.Equal(http.StatusBadRequest, resp.StatusCode, q)
		_ = resp.Body.Close()
	}
}

func (s *LedgerAPITestSuite) TestGetTransaction_OnlyParties() {
	alice, bob, eve := s.CreateTestUser(), s.CreateTestUser(), s.CreateTestUser()
	s.Fund(alice, "10.00")
	resp := s.transfer(alice, bob, "5.00", "lunch")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var tx txView
	s.Decode(resp, &tx)

	path := fmt.Sprintf("/transactions/%d", tx.ID)
	for _, u := range []*testutils.TestUser{alice, bob} {
		r := s.MakeRequest(http.MethodGet, path, "", u.Token)
		s.Equal(http.StatusOK, r.StatusCode)
		_ = r.Body.Close()
	}

	outsider := s.MakeRequest(http.MethodGet, path, "", eve.Token)
	s.Equal(http.StatusNotFound, outsider.StatusCode)
	missing := s.MakeRequest(http.MethodGet, "/transactions/999999", "", eve.Token)
	s.Equal(http.StatusNotFound, missing.StatusCode)
	s.Equal(s.Problem(outsider).Title, s.Problem(missing).Title)
}

func (s *LedgerAPITestSuite) TestExportTransactions() {
	alice, bob := s.CreateTestUser(), s.CreateTestUser()
	s.Fund(alice, "50.00")
	for _, d := range []string{"=HYPERLINK(\"http://evil\")", "books"} {
		resp := s.transfer(alice, bob, "2.50", d)
		s.Require().Equal(http.StatusCreated, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp := s.MakeRequest(http.MethodGet, "/transactions/export", "", alice.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Disposition"), "attachment")
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	_ = resp.Body.Close()

	f, err := excelize.OpenReader(bytes.NewReader(body))
	s.Require().NoError(err)
	defer f.Close() //nolint:errcheck
	rows, err := f.GetRows("Transactions")
	s.Require().NoError(err)
	s.Len(rows, 6) // title, balance, blank, header, two transactions

	formula, err := f.GetCellFormula("Transactions", "G5")
	s.Require().NoError(err)
	s.Empty(formula)
}

type RateLimitTestSuite struct {
	testutils.E2ETestSuite
}

func TestRateLimitTestSuite(t *testing.T) {
	suite.Run(t, new(RateLimitTestSuite))
}

func (s *RateLimitTestSuite) SetupSuite() {
	cfg := testutils.NewTestConfig(filepath.Join(s.T().TempDir(), "ratelimit.db"))
	cfg.RateLimit.MaxRequests = 5
	s.SetupWithConfig(cfg)
}

func (s *RateLimitTestSuite) TestRateLimit_IgnoresUntrustedForwardingHeaders() {
	for i := range 6 {
		// A direct client rotating forwarding headers still shares one bucket.
		resp := s.MakeRequest(http.MethodGet, "/", "", "",
			"X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1),
			"X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		_ = resp.Body.Close()
		if i < 5 {
			s.Equal(http.StatusOK, resp.StatusCode, "request %d", i+1)
		} else {
			s.Equal(http.StatusTooManyRequests, resp.StatusCode, "request %d", i+1)
			s.Equal("application/problem+json", resp.Header.Get("Content-Type"))
		}
	}
}

type TrustedProxyRateLimitTestSuite struct {
	testutils.E2ETestSuite
}

func TestTrustedProxyRateLimitTestSuite(t *testing.T) {
	suite.Run(t, new(TrustedProxyRateLimitTestSuite))
}

func (s *TrustedProxyRateLimitTestSuite) SetupSuite() {
	cfg := testutils.NewTestConfig(filepath.Join(s.T().TempDir(), "proxied.db"))
	cfg.RateLimit.MaxRequests = 5
	// In-process requests arrive from 0.0.0.0.
	cfg.Server.TrustedProxies = []string{"0.0.0.0"}
	s.SetupWithConfig(cfg)
}

func (s *TrustedProxyRateLimitTestSuite) TestRateLimit_KeysOnForwardedClient() {
	for i := range 6 {
		resp := s.MakeRequest(http.MethodGet, "/", "", "", "X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		_ = resp.Body.Close()
		if i < 5 {
			s.Equal(http.StatusOK, resp.StatusCode, "request %d", i+1)
		} else {
			s.Equal(http.StatusTooManyRequests, resp.StatusCode, "request %d", i+1)
		}
	}

	other := s.MakeRequest(http.MethodGet, "/", "", "", "X-Forwarded-For", "198.51.100.1")
	defer other.Body.Close() //nolint:errcheck
	s.Equal(http.StatusOK, other.StatusCode)
}
