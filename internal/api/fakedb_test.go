package api_test

import (
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/require"
)

// handlerDriver backs the *sql.DB the services under test open transactions
// against. Store traffic goes through the in-memory stubs, so the driver
// only hands out connections whose transactions commit without error.
type handlerDriver struct{}

func (handlerDriver) Open(name string) (driver.Conn, error) { return handlerConn{}, nil }

type handlerConn struct{}

func (handlerConn) Prepare(query string) (driver.Stmt, error) { return nil, sql.ErrNoRows }
func (handlerConn) Close() error                              { return nil }
func (handlerConn) Begin() (driver.Tx, error)                 { return handlerTx{}, nil }

type handlerTx struct{}

func (handlerTx) Commit() error   { return nil }
func (handlerTx) Rollback() error { return nil }

func init() {
	sql.Register("handlerfake", handlerDriver{})
}

func newHandlerDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("handlerfake", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
