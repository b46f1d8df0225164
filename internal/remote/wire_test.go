package remote

import (
	"encoding/json"
	"errors"
	"testing"

	"expresso/internal/core"
)

func TestTransactionSignNormalization(t *testing.T) {
	cases := []struct {
		body string
		want int64
	}{
		{`{"id":1,"contaId":1,"categoriaId":2,"tipo":"DESPESA","valor":30.00,"descricao":"x","dataOperacao":"2024-01-05T12:00:00"}`, -3000},
		{`{"id":2,"contaId":1,"categoriaId":2,"tipo":"DESPESA","valor":-30.00,"descricao":"x","dataOperacao":"2024-01-05T12:00:00"}`, -3000},
		{`{"id":3,"contaId":1,"categoriaId":2,"tipo":"RECEITA","valor":50,"descricao":"x","dataOperacao":"2024-01-10T09:00"}`, 5000},
		{`{"id":4,"contaId":1,"categoriaId":2,"valor":-12.5,"descricao":"x","dataOperacao":"2024-01-10T09:00"}`, -1250},
	}
	for _, tc := range cases {
		var dto TransactionDTO
		if err := json.Unmarshal([]byte(tc.body), &dto); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.body, err)
		}
		tx, err := dto.Transaction()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if tx.Amount.Cents != tc.want {
			t.Errorf("id %d amount = %d, want %d", dto.ID, tx.Amount.Cents, tc.want)
		}
	}
}

func TestTransactionRequestKeepsKind(t *testing.T) {
	dto := TransactionDTO{Tipo: "RECEITA", Valor: core.Cents(-100)}
	req, err := dto.Request()
	if err != nil {
		t.Fatal(err)
	}
	if req.Kind != core.Income || req.Amount.Cents != -100 {
		t.Fatalf("mismatched pair must reach the collaborator untouched: %+v", req)
	}
	if _, err := (TransactionDTO{Tipo: "OUTRO"}).Request(); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestAccountKindWireNames(t *testing.T) {
	var dto AccountDTO
	if err := json.Unmarshal([]byte(`{"id":9,"nome":"Viagem","tipoConta":"META","saldoAbertura":0,"saldoAtual":"40.00"}`), &dto); err != nil {
		t.Fatal(err)
	}
	a, err := dto.Account()
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != core.GoalVault || a.Balance.Cents != 4000 {
		t.Fatalf("unexpected account %+v", a)
	}
	if AccountToDTO(a).TipoConta != "META" {
		t.Fatalf("kind not encoded with wire name")
	}
}

func TestGoalIgnoresStoredSavedAmount(t *testing.T) {
	var dto GoalDTO
	if err := json.Unmarshal([]byte(`{"id":3,"nome":"Viagem","valorAlvo":100,"dataAlvo":"2025-12-01","contaAssociadaId":9,"valorAtual":75}`), &dto); err != nil {
		t.Fatal(err)
	}
	g := dto.Goal()
	if g.VaultAccountID != 9 || g.Target.Cents != 10000 {
		t.Fatalf("unexpected goal %+v", g)
	}
	b, _ := json.Marshal(GoalToDTO(g))
	var back map[string]any
	_ = json.Unmarshal(b, &back)
	if _, ok := back["valorAtual"]; ok {
		t.Fatalf("valorAtual must not be encoded: %s", b)
	}
}

func TestProfileUpdateOmitsEmptyPassword(t *testing.T) {
	b, _ := json.Marshal(ProfileUpdateRequestDTO(ProfileUpdate{Name: "Ana", Email: "a@x", CurrentPassword: "old"}))
	if string(b) != `{"nome":"Ana","email":"a@x","senhaAtual":"old","novaSenha":null}` {
		t.Fatalf("unexpected body %s", b)
	}
}

func TestErrorClasses(t *testing.T) {
	var err error = &Rejection{Status: 400, Message: "Saldo insuficiente"}
	wrapped := errors.Join(errors.New("ctx"), err)
	if !IsRejection(wrapped) || IsTransport(wrapped) {
		t.Fatalf("rejection not detected through wrapping")
	}
	if msg, _ := RejectionMessage(wrapped); msg != "Saldo insuficiente" {
		t.Fatalf("message = %q", msg)
	}
	tr := &TransportError{Op: "list accounts", Err: errors.New("dial tcp: refused")}
	if !IsTransport(tr) || IsRejection(tr) {
		t.Fatalf("transport not detected")
	}
}
