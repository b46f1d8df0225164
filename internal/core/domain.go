package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Checking  AccountKind = "CHECKING"
	Wallet    AccountKind = "WALLET"
	GoalVault AccountKind = "GOAL_VAULT"

	Income  TransactionKind = "RECEITA"
	Expense TransactionKind = "DESPESA"

	// TransferCategoryName is the reserved system category carried by both
	// legs of every transfer.
	TransferCategoryName = "Transferências"

	maxNameLength        = 60
	maxDescriptionLength = 200
)

type (
	AccountKind     string
	TransactionKind string

	Account struct {
		ID             int64
		OwnerID        int64
		Name           string
		Kind           AccountKind
		OpeningBalance Money
		Balance        Money
	}

	Category struct {
		ID      int64
		OwnerID int64
		Name    string
		Default bool // system-provided, cannot be edited or deleted
	}

	// Transaction is a signed movement on one account. A transfer is two
	// transactions: a debit leg on the source and a credit leg on the
	// destination, both in the transfer category.
	Transaction struct {
		ID          int64
		OwnerID     int64
		AccountID   int64
		CategoryID  int64
		Amount      Money
		Description string
		OperatedAt  Timestamp

		// Denormalized names as reported by the collaborator. Views join
		// against the category and account collections instead.
		CategoryName string
		AccountName  string
	}

	// Goal is a savings target backed by its own GOAL_VAULT account. The
	// amount saved is the vault balance and is never stored on the goal.
	Goal struct {
		ID             int64
		OwnerID        int64
		Name           string
		Target         Money
		TargetDate     Date
		VaultAccountID int64
	}

	Profile struct {
		ID    int64
		Name  string
		Email string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = errors.New("name too long")
	ErrEmptyDescription = errors.New("empty description")
	ErrSignMismatch     = errors.New("amount sign does not match transaction type")
	ErrInvalidKind      = errors.New("invalid kind")
)

var accountWireNames = map[AccountKind]string{
	Checking:  "CONTA_CORRENTE",
	Wallet:    "CARTEIRA",
	GoalVault: "META",
}

// WireName returns the collaborator's name for the kind.
func (k AccountKind) WireName() string {
	if n, ok := accountWireNames[k]; ok {
		return n
	}
	return string(k)
}

// Transactable reports whether direct transactions may be entered on an
// account of this kind. Vaults only move through transfers.
func (k AccountKind) Transactable() bool {
	return k == Checking || k == Wallet
}

// ParseAccountKind accepts both the internal and the wire spelling.
func ParseAccountKind(s string) (AccountKind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for kind, wire := range accountWireNames {
		if s == string(kind) || s == wire {
			return kind, nil
		}
	}
	if s == "COFRINHO" {
		return GoalVault, nil
	}
	return "", fmt.Errorf("%w: account kind %q", ErrInvalidKind, s)
}

func ParseTransactionKind(s string) (TransactionKind, error) {
	switch k := TransactionKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case Income, Expense:
		return k, nil
	default:
		return "", fmt.Errorf("%w: transaction kind %q", ErrInvalidKind, s)
	}
}

// KindFor derives the transaction type from a signed amount.
func KindFor(m Money) TransactionKind {
	if m.IsNegative() {
		return Expense
	}
	return Income
}

// Signed applies the direction of kind to a positive amount.
func Signed(kind TransactionKind, amount Money) Money {
	if kind == Expense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// CheckSign enforces that a signed amount agrees with its type flag.
func CheckSign(kind TransactionKind, amount Money) error {
	switch {
	case amount.IsZero():
		return ErrInvalidAmount
	case kind == Income && amount.IsNegative(), kind == Expense && amount.IsPositive():
		return ErrSignMismatch
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len([]rune(name)) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (a Account) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	if _, err := ParseAccountKind(string(a.Kind)); err != nil {
		return err
	}
	return nil
}

// IsTransfer reports whether this is the reserved transfer category. Names
// are unique per owner and this one is reserved, so the name alone decides.
func (c Category) IsTransfer() bool {
	return c.Name == TransferCategoryName
}

// Protected reports whether the category is a system default or the
// transfer category.
func (c Category) Protected() bool {
	return c.Default || c.IsTransfer()
}

func (c Category) Validate() error {
	return validateName(c.Name)
}

// Kind derives the transaction type from the amount sign.
func (t Transaction) Kind() TransactionKind {
	return KindFor(t.Amount)
}

func (t Transaction) Validate() error {
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if t.OperatedAt.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLength {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (g Goal) Validate() error {
	if err := validateName(g.Name); err != nil {
		return err
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	return g.TargetDate.Validate()
}
