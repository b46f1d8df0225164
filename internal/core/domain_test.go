package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseAccountKind(t *testing.T) {
	cases := map[string]AccountKind{
		"CONTA_CORRENTE": Checking,
		"checking":       Checking,
		"CARTEIRA":       Wallet,
		"META":           GoalVault,
		"GOAL_VAULT":     GoalVault,
	}
	for in, want := range cases {
		got, err := ParseAccountKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseAccountKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAccountKind("POUPANCA"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if Checking.WireName() != "CONTA_CORRENTE" || GoalVault.Transactable() {
		t.Fatalf("unexpected kind metadata")
	}
}

func TestCheckSign(t *testing.T) {
	cases := []struct {
		kind   TransactionKind
		amount int64
		want   error
	}{
		{Income, 100, nil},
		{Expense, -100, nil},
		{Income, -100, ErrSignMismatch},
		{Expense, 100, ErrSignMismatch},
		{Expense, 0, ErrInvalidAmount},
	}
	for _, tc := range cases {
		if err := CheckSign(tc.kind, Cents(tc.amount)); !errors.Is(err, tc.want) {
			t.Errorf("CheckSign(%s, %d) = %v, want %v", tc.kind, tc.amount, err, tc.want)
		}
	}
	if Signed(Expense, Cents(3000)).Cents != -3000 || Signed(Income, Cents(-3000)).Cents != 3000 {
		t.Fatalf("Signed did not apply direction")
	}
}

func TestCategoryTransferFlag(t *testing.T) {
	if !(Category{Name: TransferCategoryName, Default: true}).IsTransfer() {
		t.Fatalf("default transfer category not recognised")
	}
	c := Category{Name: TransferCategoryName}
	if !c.IsTransfer() || !c.Protected() {
		t.Fatalf("transfer category without the default flag not recognised")
	}
	if (Category{Name: "Mercado"}).Protected() {
		t.Fatalf("user category reported as protected")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		AccountID:   1,
		CategoryID:  2,
		Amount:      Cents(-3000),
		Description: "Mercado",
		OperatedAt:  NewTimestamp(2024, 1, 5, 12, 0),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Kind() != Expense {
		t.Fatalf("kind = %s", good.Kind())
	}

	bads := []Transaction{
		{Amount: Cents(0), Description: "a", OperatedAt: good.OperatedAt},
		{Amount: Cents(1), Description: " ", OperatedAt: good.OperatedAt},
		{Amount: Cents(1), Description: "a"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestGoalValidate(t *testing.T) {
	g := Goal{Name: "Viagem", Target: Cents(500000), TargetDate: NewDate(2025, 12, 1)}
	if err := g.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	g.Target = Cents(0)
	if err := g.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
