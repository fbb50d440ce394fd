package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const (
	AccountTypeCash = "cash"
	AccountTypeBank = "bank"

	TransactionTypeIncome  = "income"
	TransactionTypeExpense = "expense"

	CategoryBeneficenceCollection = "Beneficence Collection"
)

type Account struct {
	bun.BaseModel `bun:"table:accounts"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Type      string    `bun:"type,notnull" json:"type"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type FinancialTransaction struct {
	bun.BaseModel `bun:"table:financial_transactions"`

	ID              string          `bun:"id,pk" json:"id"`
	Date            string          `bun:"date,notnull" json:"date"`
	Description     string          `bun:"description" json:"description"`
	Category        string          `bun:"category,notnull" json:"category"`
	Type            string          `bun:"type,notnull" json:"type"`
	Amount          decimal.Decimal `bun:"amount,type:decimal(12,2),notnull" json:"amount"`
	AccountID       string          `bun:"account_id" json:"account_id"`
	SessionRecordID string          `bun:"session_record_id,nullzero" json:"session_record_id,omitempty"`
	CreatedAt       time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
