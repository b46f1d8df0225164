package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expresso/internal/core"
	"expresso/internal/ledger"
	"expresso/internal/ledger/memstore"
	"expresso/internal/remote"
	"expresso/internal/remote/httpclient"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server, int64) {
	t.Helper()
	svc := ledger.NewService(memstore.New())
	p, err := svc.RegisterOwner(context.Background(), core.Profile{Name: "Ana", Email: "ana@example.com"}, "segredo1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	srv := NewServer(":0", svc, opts)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return srv, ts, p.ID
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil || body["status"] != "ok" {
		t.Fatalf("body=%v err=%v", body, err)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("request id not echoed")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestClientRoundTrip(t *testing.T) {
	_, ts, owner := newTestServer(t, Options{})
	ctx := context.Background()
	client, err := httpclient.New(ts.URL+"/api", 5*time.Second)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	acct, err := client.CreateAccount(ctx, remote.AccountRequest{OwnerID: owner, Name: "Nubank", Kind: core.Checking, OpeningBalance: core.Cents(10000)})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	goal, err := client.CreateGoal(ctx, remote.GoalRequest{OwnerID: owner, Name: "Viagem", Target: core.Cents(50000), TargetDate: core.NewDate(2026, 1, 1)})
	if err != nil || goal.VaultAccountID == 0 {
		t.Fatalf("create goal: %+v %v", goal, err)
	}
	legs, err := client.CreateTransfer(ctx, remote.TransferRequest{OwnerID: owner, SourceID: acct.ID, DestinationID: goal.VaultAccountID, Amount: core.Cents(2500), OperatedAt: core.NewTimestamp(2024, 4, 2, 9, 0)})
	if err != nil || len(legs) != 2 {
		t.Fatalf("transfer: %v %v", legs, err)
	}
	if legs[0].Amount.Cents != -2500 {
		t.Fatalf("debit leg must stay negative over the wire: %+v", legs[0])
	}

	cats, err := client.ListCategories(ctx, owner)
	if err != nil || len(cats) == 0 {
		t.Fatalf("categories: %v %v", cats, err)
	}
	pets, err := client.CreateCategory(ctx, owner, "Pets")
	if err != nil || pets.ID == 0 {
		t.Fatalf("create category: %+v %v", pets, err)
	}
	tx, err := client.CreateTransaction(ctx, remote.TransactionRequest{
		OwnerID: owner, AccountID: acct.ID, CategoryID: pets.ID, Kind: core.Expense,
		Amount: core.Cents(-1999), Description: "Ração", OperatedAt: core.NewTimestamp(2024, 4, 3, 9, 0),
	})
	if err != nil || tx.Amount.Cents != -1999 || tx.CategoryName != "Pets" {
		t.Fatalf("create transaction: %+v %v", tx, err)
	}

	accounts, err := client.ListAccounts(ctx, owner)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	for _, a := range accounts {
		if a.ID == acct.ID && a.Balance.Cents != 10000-2500-1999 {
			t.Fatalf("balance = %d", a.Balance.Cents)
		}
	}

	if err := client.DeleteTransaction(ctx, owner, tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := client.DeleteCategory(ctx, owner, pets.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	txs, _ := client.ListTransactions(ctx, owner)
	if len(txs) != 2 {
		t.Fatalf("transactions left = %d, want the two transfer legs", len(txs))
	}
}

func TestRejectionsArePlainText(t *testing.T) {
	_, ts, owner := newTestServer(t, Options{})
	ctx := context.Background()
	client, _ := httpclient.New(ts.URL+"/api", 5*time.Second)

	err := client.DeleteTransaction(ctx, owner, 4242)
	var rej *remote.Rejection
	if !errors.As(err, &rej) || rej.Status != http.StatusNotFound || rej.Message != "Transação não encontrada." {
		t.Fatalf("err = %#v", err)
	}

	_, _ = client.CreateCategory(ctx, owner, "Pets")
	_, err = client.CreateCategory(ctx, owner, "Pets")
	if !errors.As(err, &rej) || rej.Status != http.StatusConflict || rej.Message != "Categoria 'Pets' já existe." {
		t.Fatalf("err = %#v", err)
	}

	resp, err := http.Get(ts.URL + "/api/contas")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Fatalf("missing clienteId: status=%d type=%s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestDeleteTransactionOwnerFromBody(t *testing.T) {
	srv, _, owner := newTestServer(t, Options{})
	body := strings.NewReader(`{"clienteId": ` + jsonInt(owner) + `}`)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/transacoes/999", body))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{CORSOrigins: []string{"http://localhost:5173"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/transacoes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv, _, owner := newTestServer(t, Options{RateLimit: 2})
	post := func() int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/categorias", strings.NewReader(`{"clienteId":`+jsonInt(owner)+`,"nome":"X"}`))
		req.RemoteAddr = "10.0.0.1:5555"
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	_ = post()
	_ = post()
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("third POST status=%d", code)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/categorias?clienteId="+jsonInt(owner), nil)
	req.RemoteAddr = "10.0.0.1:5555"
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, status=%d", rr.Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := &rateLimiter{limit: 1, clients: map[string]*clientInfo{}, stopCleanup: make(chan struct{})}
	now := time.Now()
	if !rl.allowAt("a", now) || rl.allowAt("a", now.Add(time.Second)) {
		t.Fatalf("limit of one not enforced")
	}
	if !rl.allowAt("a", now.Add(61*time.Second)) {
		t.Fatalf("window did not reset")
	}
	rl.cleanupStaleEntries(now.Add(time.Hour))
	if len(rl.clients) != 0 {
		t.Fatalf("stale clients kept: %v", rl.clients)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Mer\x00cado\t "); got != "Mercado" {
		t.Fatalf("got %q", got)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
