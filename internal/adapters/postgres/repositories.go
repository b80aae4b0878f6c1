package postgres

import (
	"context"

	"github.com/playnatela/volante-express/internal/ports"
	"gorm.io/gorm"
)

func NewRepositories(db *gorm.DB) ports.Repositories {
	return ports.Repositories{
		Regions:       &regionRepository{db: db},
		Installers:    &installerRepository{db: db},
		Appointments:  &appointmentRepository{db: db},
		Accounts:      &accountRepository{db: db},
		Rates:         &rateRepository{db: db},
		Inventory:     &inventoryRepository{db: db},
		Expenses:      &expenseRepository{db: db},
		WebhookEvents: &webhookEventRepository{db: db},
		Outbox:        &outboxRepository{db: db},
	}
}

// TxRunner binds a fresh set of repositories to one database transaction.
type TxRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) InTx(ctx context.Context, fn func(tx ports.Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
