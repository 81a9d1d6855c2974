// Package repomanager wires repository constructors to a database backend
// and exposes a schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dkovalenko/contactbook/internal/dbx"
	"github.com/dkovalenko/contactbook/internal/server/repositories/contacts"
	"github.com/dkovalenko/contactbook/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same repository code inside or outside a transaction.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Contacts(db dbx.DBTX) contacts.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
