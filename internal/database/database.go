// Package database holds the process-local stores. Nothing here survives a restart.
package database

import (
	"cagchat/internal/utils"
	"context"
)

type UserRepository interface {
	Create(ctx context.Context, u NewUser) (utils.User, error)
	GetByEmail(ctx context.Context, email string) (utils.User, error)
}

type DocumentRepository interface {
	Exists(ctx context.Context, id string) bool
	Get(ctx context.Context, id string) (utils.Document, error)
	Create(ctx context.Context, d utils.Document) error
	Append(ctx context.Context, id, text string) (utils.Document, error)
	Delete(ctx context.Context, id string) (utils.Document, error)
	List(ctx context.Context) []utils.DocumentInfo
}

type Manager struct {
	Users     *UserStore
	Documents *DocumentStore
}

func NewDatabaseManager() *Manager {
	return &Manager{}
}

// Connect allocates empty stores. It keeps main wiring the stores the way
// it would wire a real backend.
func (dbm *Manager) Connect() error {
	dbm.Users = NewUserStore()
	dbm.Documents = NewDocumentStore()
	return nil
}

// Close drops every record held by the stores.
func (dbm *Manager) Close() error {
	if dbm.Users != nil {
		dbm.Users.reset()
	}
	if dbm.Documents != nil {
		dbm.Documents.reset()
	}
	return nil
}
