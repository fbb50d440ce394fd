package finance

import (
	"context"
	"fmt"
	"time"

	"lodge-ops/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Ledger is the store for accounts and financial transactions.
type Ledger struct {
	Bun *bun.DB
}

func NewLedger(db *bun.DB) *Ledger {
	return &Ledger{Bun: db}
}

// ListAccounts returns accounts in creation order.
func (l *Ledger) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := l.Bun.NewSelect().
		Model(&accounts).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	return accounts, err
}

func (l *Ledger) CreateAccount(ctx context.Context, account models.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	_, err := l.Bun.NewInsert().Model(&account).Exec(ctx)
	return err
}

func (l *Ledger) CreateTransaction(ctx context.Context, tx models.FinancialTransaction) (*models.FinancialTransaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	if _, err := l.Bun.NewInsert().Model(&tx).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &tx, nil
}

func (l *Ledger) UpdateTransactionAmount(ctx context.Context, id string, amount decimal.Decimal) error {
	res, err := l.Bun.NewUpdate().
		Model((*models.FinancialTransaction)(nil)).
		Set("amount = ?", amount).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %s not found", id)
	}
	return nil
}

func (l *Ledger) ListTransactions(ctx context.Context) ([]models.FinancialTransaction, error) {
	var txs []models.FinancialTransaction
	err := l.Bun.NewSelect().Model(&txs).Order("created_at ASC").Scan(ctx)
	return txs, err
}

// SelectAccount picks the account a beneficence collection is booked to: the
// cash/till account, else the first account. ok is false when there are none.
func SelectAccount(accounts []models.Account) (account models.Account, ok bool) {
	for _, a := range accounts {
		if a.Type == models.AccountTypeCash {
			return a, true
		}
	}
	if len(accounts) > 0 {
		return accounts[0], true
	}
	return models.Account{}, false
}

// BeneficenceTransaction builds the income entry mirroring a session's collection.
func BeneficenceTransaction(record models.SessionRecord, eventTitle, accountID string, amount decimal.Decimal) models.FinancialTransaction {
	return models.FinancialTransaction{
		Date:            record.Date,
		Description:     fmt.Sprintf("Tronco de beneficência - %s", eventTitle),
		Category:        models.CategoryBeneficenceCollection,
		Type:            models.TransactionTypeIncome,
		Amount:          amount,
		AccountID:       accountID,
		SessionRecordID: record.ID,
	}
}
