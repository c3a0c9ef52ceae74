package repomanager

import (
	"context"
	"database/sql"

	"github.com/forkful/authcore/internal/dbx"
	"github.com/forkful/authcore/internal/server/repositories/sessions"
	"github.com/forkful/authcore/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
