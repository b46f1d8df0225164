package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"expresso/internal/core"
	applog "expresso/internal/log"
	"expresso/internal/remote"
)

var _ remote.Collaborator = (*Service)(nil)

// Service applies the collaborator's rules over a Repository. Business
// failures are returned as *remote.Rejection with the text shown to users.
// Mutations are serialized so a balance check and the write it guards
// cannot interleave with another mutation.
type Service struct {
	repo       Repository
	events     EventPublisher
	logger     *applog.Logger
	categories []string
	now        func() time.Time

	mu sync.Mutex
}

type Option func(*Service)

// WithEvents publishes every successful mutation. A nil publisher is allowed.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(applog.ComponentLedger) }
}

// WithDefaultCategories replaces the categories seeded for new owners.
func WithDefaultCategories(names []string) Option {
	return func(s *Service) {
		if len(names) > 0 {
			s.categories = names
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		logger:     applog.Discard(),
		categories: DefaultCategories,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Close() error {
	return s.repo.Close()
}

func badRequest(msg string) error { return &remote.Rejection{Status: http.StatusBadRequest, Message: msg} }
func notFound(msg string) error   { return &remote.Rejection{Status: http.StatusNotFound, Message: msg} }
func conflict(msg string) error   { return &remote.Rejection{Status: http.StatusConflict, Message: msg} }

// lookup turns ErrNotFound into a 404 rejection and wraps anything else.
func lookup(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return notFound(msg)
	}
	return fmt.Errorf("%s: %w", strings.TrimSuffix(msg, "."), err)
}

// RegisterOwner creates a profile with the default categories. A non-zero
// p.ID registers under that id; registering an existing id is a no-op that
// returns the stored profile.
func (s *Service) RegisterOwner(ctx context.Context, p core.Profile, password string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID != 0 {
		if existing, _, err := s.repo.GetProfile(ctx, p.ID); err == nil {
			return existing, nil
		} else if !errors.Is(err, ErrNotFound) {
			return core.Profile{}, err
		}
	}
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Email) == "" {
		return core.Profile{}, badRequest("Nome e email são obrigatórios.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.Profile{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.repo.InsertProfile(ctx, p, string(hash))
	if err != nil {
		return core.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	names := append([]string{core.TransferCategoryName}, s.categories...)
	for i, name := range names {
		if i > 0 && name == core.TransferCategoryName {
			continue
		}
		if _, err := s.repo.InsertCategory(ctx, core.Category{OwnerID: created.ID, Name: name, Default: true}); err != nil {
			return core.Profile{}, fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	s.logger.InfoContext(ctx, "Owner registered", applog.FieldOwnerID, created.ID)
	return created, nil
}

// Accounts

func (s *Service) ListAccounts(ctx context.Context, ownerID int64) ([]core.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := s.repo.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	sums := map[int64]core.Money{}
	for _, t := range txs {
		sums[t.AccountID] = sums[t.AccountID].Add(t.Amount)
	}
	for i := range accounts {
		accounts[i].Balance = accounts[i].OpeningBalance.Add(sums[accounts[i].ID])
	}
	return accounts, nil
}

func (s *Service) balance(ctx context.Context, a core.Account) (core.Money, error) {
	txs, err := s.repo.ListTransactions(ctx, a.OwnerID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list transactions: %w", err)
	}
	b := a.OpeningBalance
	for _, t := range txs {
		if t.AccountID == a.ID {
			b = b.Add(t.Amount)
		}
	}
	return b, nil
}

func (s *Service) CreateAccount(ctx context.Context, req remote.AccountRequest) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(ctx, req.OwnerID); err != nil {
		return core.Account{}, err
	}
	a := core.Account{OwnerID: req.OwnerID, Name: strings.TrimSpace(req.Name), Kind: req.Kind, OpeningBalance: req.OpeningBalance}
	if err := a.Validate(); err != nil {
		return core.Account{}, badRequest("Nome da conta inválido.")
	}
	if !a.Kind.Transactable() {
		return core.Account{}, badRequest("Tipo de conta inválido. Contas de meta são criadas com a meta.")
	}
	created, err := s.repo.InsertAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	created.Balance = created.OpeningBalance
	s.publish(ctx, EventAccountCreated, created.OwnerID, created.ID)
	return created, nil
}

// Categories

func (s *Service) ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error) {
	cats, err := s.repo.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *Service) CreateCategory(ctx context.Context, ownerID int64, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(ctx, ownerID); err != nil {
		return core.Category{}, err
	}
	name = strings.TrimSpace(name)
	if err := (core.Category{Name: name}).Validate(); err != nil {
		return core.Category{}, badRequest("Nome da categoria é obrigatório.")
	}
	if err := s.uniqueCategory(ctx, ownerID, 0, name); err != nil {
		return core.Category{}, err
	}
	created, err := s.repo.InsertCategory(ctx, core.Category{OwnerID: ownerID, Name: name})
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	s.publish(ctx, EventCategoryCreated, ownerID, created.ID)
	return created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, ownerID, id int64, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := s.repo.GetCategory(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, lookup(err, "Categoria não encontrada.")
	}
	if cat.Protected() {
		return core.Category{}, badRequest("Não é permitido atualizar uma categoria padrão.")
	}
	name = strings.TrimSpace(name)
	if err := (core.Category{Name: name}).Validate(); err != nil {
		return core.Category{}, badRequest("Nome da categoria é obrigatório.")
	}
	if err := s.uniqueCategory(ctx, ownerID, id, name); err != nil {
		return core.Category{}, err
	}
	cat.Name = name
	if err := s.repo.UpdateCategory(ctx, cat); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.publish(ctx, EventCategoryUpdated, ownerID, id)
	return cat, nil
}

// DeleteCategory refuses categories still referenced by transactions.
func (s *Service) DeleteCategory(ctx context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := s.repo.GetCategory(ctx, ownerID, id)
	if err != nil {
		return lookup(err, "Categoria não encontrada.")
	}
	if cat.Protected() {
		return badRequest("Não é permitido deletar uma categoria padrão.")
	}
	txs, err := s.repo.ListTransactions(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	for _, t := range txs {
		if t.CategoryID == id {
			return conflict(fmt.Sprintf("A categoria '%s' está em uso por transações.", cat.Name))
		}
	}
	if err := s.repo.DeleteCategory(ctx, ownerID, id); err != nil {
		return lookup(err, "Categoria não encontrada.")
	}
	s.publish(ctx, EventCategoryDeleted, ownerID, id)
	return nil
}

// uniqueCategory enforces case-sensitive unique names per owner.
func (s *Service) uniqueCategory(ctx context.Context, ownerID, selfID int64, name string) error {
	cats, err := s.repo.ListCategories(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.Name == name && c.ID != selfID {
			return conflict(fmt.Sprintf("Categoria '%s' já existe.", name))
		}
	}
	return nil
}

// Transactions

// ListTransactions fills the denormalized account and category names.
func (s *Service) ListTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	accounts, err := s.repo.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	cats, err := s.repo.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	accountNames := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	categoryNames := make(map[int64]string, len(cats))
	for _, c := range cats {
		categoryNames[c.ID] = c.Name
	}
	for i := range txs {
		txs[i].AccountName = accountNames[txs[i].AccountID]
		txs[i].CategoryName = categoryNames[txs[i].CategoryID]
	}
	return txs, nil
}

func (s *Service) CreateTransaction(ctx context.Context, req remote.TransactionRequest) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.repo.GetAccount(ctx, req.OwnerID, req.AccountID)
	if err != nil {
		return core.Transaction{}, lookup(err, "Conta não encontrada.")
	}
	if !account.Kind.Transactable() {
		return core.Transaction{}, badRequest("Transações diretas não são permitidas numa conta de meta.")
	}
	cat, err := s.repo.GetCategory(ctx, req.OwnerID, req.CategoryID)
	if err != nil {
		return core.Transaction{}, lookup(err, "Categoria não encontrada.")
	}
	if cat.IsTransfer() {
		return core.Transaction{}, badRequest("A categoria Transferências é reservada para transferências.")
	}

	kind := req.Kind
	if kind == "" {
		kind = core.KindFor(req.Amount)
	}
	switch err := core.CheckSign(kind, req.Amount); {
	case errors.Is(err, core.ErrInvalidAmount):
		return core.Transaction{}, badRequest("O valor deve ser diferente de zero.")
	case errors.Is(err, core.ErrSignMismatch):
		return core.Transaction{}, badRequest("O sinal do valor não corresponde ao tipo da transação.")
	}

	t := core.Transaction{
		OwnerID:      req.OwnerID,
		AccountID:    account.ID,
		CategoryID:   cat.ID,
		Amount:       req.Amount,
		Description:  strings.TrimSpace(req.Description),
		OperatedAt:   req.OperatedAt,
		CategoryName: cat.Name,
		AccountName:  account.Name,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, badRequest(transactionMessage(err))
	}
	created, err := s.repo.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	created.CategoryName, created.AccountName = cat.Name, account.Name
	s.publish(ctx, EventTransactionCreated, req.OwnerID, created.ID)
	return created, nil
}

func transactionMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		return "Data da operação é obrigatória."
	case errors.Is(err, core.ErrEmptyDescription):
		return "Descrição é obrigatória."
	default:
		return "Transação inválida: " + err.Error()
	}
}

// DeleteTransaction removes a transaction; for a transfer leg the paired
// leg goes with it so balances stay consistent.
func (s *Service) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.repo.DeleteTransaction(ctx, ownerID, id)
	if err != nil {
		return lookup(err, "Transação não encontrada.")
	}
	for _, d := range deleted {
		s.publish(ctx, EventTransactionDeleted, ownerID, d)
	}
	return nil
}

// Goals

func (s *Service) ListGoals(ctx context.Context, ownerID int64) ([]core.Goal, error) {
	goals, err := s.repo.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *Service) CreateGoal(ctx context.Context, req remote.GoalRequest) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(ctx, req.OwnerID); err != nil {
		return core.Goal{}, err
	}
	g := core.Goal{OwnerID: req.OwnerID, Name: strings.TrimSpace(req.Name), Target: req.Target, TargetDate: req.TargetDate}
	switch err := g.Validate(); {
	case errors.Is(err, core.ErrInvalidAmount):
		return core.Goal{}, badRequest("O valor alvo deve ser positivo.")
	case errors.Is(err, core.ErrInvalidDate):
		return core.Goal{}, badRequest("Data alvo inválida.")
	case err != nil:
		return core.Goal{}, badRequest("Nome da meta inválido.")
	}
	vault := core.Account{OwnerID: req.OwnerID, Name: g.Name, Kind: core.GoalVault}
	created, err := s.repo.InsertGoal(ctx, g, vault)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	s.publish(ctx, EventGoalCreated, req.OwnerID, created.ID)
	return created, nil
}

// Transfers

// CreateTransfer posts a debit leg on the source and a credit leg on the
// destination, both in the owner's transfer category.
func (s *Service) CreateTransfer(ctx context.Context, req remote.TransferRequest) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !req.Amount.IsPositive() {
		return nil, badRequest("O valor da transferência deve ser positivo.")
	}
	if req.SourceID == req.DestinationID {
		return nil, badRequest("A conta de origem e a de destino devem ser diferentes.")
	}
	if req.OperatedAt.IsZero() {
		return nil, badRequest("Data da operação é obrigatória.")
	}
	src, err := s.repo.GetAccount(ctx, req.OwnerID, req.SourceID)
	if err != nil {
		return nil, lookup(err, "Conta de origem não encontrada.")
	}
	dst, err := s.repo.GetAccount(ctx, req.OwnerID, req.DestinationID)
	if err != nil {
		return nil, lookup(err, "Conta de destino não encontrada.")
	}
	balance, err := s.balance(ctx, src)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(req.Amount) < 0 {
		return nil, badRequest("Saldo insuficiente")
	}
	cat, err := s.transferCategory(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}

	debit := core.Transaction{
		OwnerID: req.OwnerID, AccountID: src.ID, CategoryID: cat.ID,
		Amount: req.Amount.Neg(), Description: "Transferência para " + dst.Name, OperatedAt: req.OperatedAt,
		CategoryName: cat.Name, AccountName: src.Name,
	}
	credit := core.Transaction{
		OwnerID: req.OwnerID, AccountID: dst.ID, CategoryID: cat.ID,
		Amount: req.Amount, Description: "Transferência de " + src.Name, OperatedAt: req.OperatedAt,
		CategoryName: cat.Name, AccountName: dst.Name,
	}
	d, c, err := s.repo.InsertTransfer(ctx, debit, credit)
	if err != nil {
		return nil, fmt.Errorf("insert transfer: %w", err)
	}
	d.CategoryName, d.AccountName = cat.Name, src.Name
	c.CategoryName, c.AccountName = cat.Name, dst.Name

	s.logger.InfoContext(ctx, "Transfer posted",
		applog.FieldOwnerID, req.OwnerID,
		"source_id", src.ID,
		"destination_id", dst.ID,
		applog.FieldAmountCents, req.Amount.Cents)
	s.publish(ctx, EventTransferCreated, req.OwnerID, d.ID)
	return []core.Transaction{d, c}, nil
}

// transferCategory finds the owner's protected transfer category, creating
// it for owners registered before it existed.
func (s *Service) transferCategory(ctx context.Context, ownerID int64) (core.Category, error) {
	cats, err := s.repo.ListCategories(ctx, ownerID)
	if err != nil {
		return core.Category{}, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.IsTransfer() {
			return c, nil
		}
	}
	c, err := s.repo.InsertCategory(ctx, core.Category{OwnerID: ownerID, Name: core.TransferCategoryName, Default: true})
	if err != nil {
		return core.Category{}, fmt.Errorf("insert transfer category: %w", err)
	}
	return c, nil
}

// Profile

func (s *Service) UpdateProfile(ctx context.Context, req remote.ProfileUpdate) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, hash, err := s.repo.GetProfile(ctx, req.OwnerID)
	if err != nil {
		return core.Profile{}, lookup(err, "Cliente não encontrado.")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.CurrentPassword)) != nil {
		return core.Profile{}, badRequest("Senha atual incorreta.")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return core.Profile{}, badRequest("Nome e email são obrigatórios.")
	}
	p.Name, p.Email = strings.TrimSpace(req.Name), strings.TrimSpace(req.Email)
	if req.NewPassword != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return core.Profile{}, fmt.Errorf("hash password: %w", err)
		}
		hash = string(b)
	}
	if err := s.repo.UpdateProfile(ctx, p, hash); err != nil {
		return core.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	s.publish(ctx, EventProfileUpdated, p.ID, p.ID)
	return p, nil
}

func (s *Service) DeleteProfile(ctx context.Context, ownerID int64, currentPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, hash, err := s.repo.GetProfile(ctx, ownerID)
	if err != nil {
		return lookup(err, "Cliente não encontrado.")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(currentPassword)) != nil {
		return badRequest("Senha atual incorreta.")
	}
	if err := s.repo.DeleteOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("delete owner: %w", err)
	}
	s.publish(ctx, EventProfileDeleted, ownerID, ownerID)
	return nil
}

func (s *Service) requireOwner(ctx context.Context, ownerID int64) error {
	if _, _, err := s.repo.GetProfile(ctx, ownerID); err != nil {
		return lookup(err, "Cliente não encontrado.")
	}
	return nil
}

// publish never fails the mutation: the row is already stored.
func (s *Service) publish(ctx context.Context, eventType string, ownerID, entityID int64) {
	if s.events == nil {
		return
	}
	e := Event{Type: eventType, OwnerID: ownerID, EntityID: entityID, Timestamp: s.now().UTC()}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEventType, eventType,
			applog.FieldOwnerID, ownerID,
			applog.FieldError, err)
	}
}
