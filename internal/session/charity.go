package session

import (
	"context"
	"fmt"
	"strings"

	"lodge-ops/internal/finance"
	"lodge-ops/internal/models"

	"github.com/shopspring/decimal"
)

// CharityPolicy decides what happens to the ledger when the collection of an
// already finalized session is edited.
type CharityPolicy string

const (
	// CharitySkip leaves the ledger untouched on edits.
	CharitySkip CharityPolicy = "skip"
	// CharityUpdate rewrites the amount of the linked transaction.
	CharityUpdate CharityPolicy = "update"
	// CharityDelta books the difference as a new transaction.
	CharityDelta CharityPolicy = "delta"
)

func ParseCharityPolicy(value string) (CharityPolicy, error) {
	switch p := CharityPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case CharitySkip, CharityUpdate, CharityDelta:
		return p, nil
	case "":
		return CharitySkip, nil
	default:
		return "", fmt.Errorf("unknown charity edit policy %q", value)
	}
}

// applyCharity performs the ledger side effect of a save. It returns the
// transaction it created, if any.
func (s *Service) applyCharity(ctx context.Context, event models.Event, existing, saved *models.SessionRecord) (*models.FinancialTransaction, error) {
	if existing == nil {
		if !saved.CharityCollection.IsPositive() {
			return nil, nil
		}
		return s.bookCollection(ctx, event, saved, saved.CharityCollection)
	}

	delta := saved.CharityCollection.Sub(existing.CharityCollection)
	if delta.IsZero() {
		return nil, nil
	}

	switch s.opts.CharityPolicy {
	case CharityUpdate:
		if saved.FinancialTxID == "" {
			if !saved.CharityCollection.IsPositive() {
				return nil, nil
			}
			return s.bookCollection(ctx, event, saved, saved.CharityCollection)
		}
		if err := s.Ledger.UpdateTransactionAmount(ctx, saved.FinancialTxID, saved.CharityCollection); err != nil {
			return nil, fmt.Errorf("update transaction %s: %w", saved.FinancialTxID, err)
		}
		s.Logger.LogFinance("AMOUNT_UPDATED", saved.FinancialTxID, fmt.Sprintf("amount=%s", saved.CharityCollection.StringFixed(2)))
		return nil, nil
	case CharityDelta:
		return s.bookCollection(ctx, event, saved, delta)
	default:
		s.Logger.Info("FINANCE", fmt.Sprintf("Collection of session %s changed by %s; ledger left unchanged", saved.ID, delta.StringFixed(2)))
		return nil, nil
	}
}

func (s *Service) bookCollection(ctx context.Context, event models.Event, record *models.SessionRecord, amount decimal.Decimal) (*models.FinancialTransaction, error) {
	accounts, err := s.Ledger.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	account, ok := finance.SelectAccount(accounts)
	if !ok {
		s.Logger.Warn("FINANCE", fmt.Sprintf("No account available for the collection of session %s", record.ID))
	}

	entry := finance.BeneficenceTransaction(*record, event.Title, account.ID, amount)
	if amount.IsNegative() {
		entry.Type = models.TransactionTypeExpense
		entry.Amount = amount.Abs()
	}

	tx, err := s.Ledger.CreateTransaction(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.Logger.LogFinance("CREATED", tx.ID, fmt.Sprintf("session=%s amount=%s type=%s", record.ID, tx.Amount.StringFixed(2), tx.Type))

	if record.FinancialTxID == "" {
		if err := s.DB.SetFinancialTransaction(ctx, record.ID, tx.ID); err != nil {
			return nil, fmt.Errorf("link transaction %s: %w", tx.ID, err)
		}
	}
	return tx, nil
}
