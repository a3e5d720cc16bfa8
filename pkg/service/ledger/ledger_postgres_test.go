//go:build integration

package ledger_test

import (
	"testing"

	"github.com/amirasaad/securebank/pkg/testutils"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// LedgerPostgresSuite runs the storage-backed ledger tests against a real
// PostgreSQL server, where row locks and the conditional debit actually
// contend across connections.
type LedgerPostgresSuite struct {
	LedgerSQLiteSuite
	db *gorm.DB
}

func TestLedgerPostgresSuite(t *testing.T) {
	suite.Run(t, new(LedgerPostgresSuite))
}

func (s *LedgerPostgresSuite) SetupSuite() {
	s.db, _ = testutils.StartPostgres(s.T())
}

func (s *LedgerPostgresSuite) SetupTest() {
	s.Require().NoError(s.db.Exec(
		"TRUNCATE audit_logs, transactions, accounts, users RESTART IDENTITY CASCADE",
	).Error)
	s.useDB(s.db)
}
