package remote

import (
	"fmt"

	"expresso/internal/core"
)

// JSON shapes exchanged with the collaborator.
type (
	AccountDTO struct {
		ID            int64      `json:"id,omitempty"`
		ClienteID     int64      `json:"clienteId,omitempty"`
		Nome          string     `json:"nome"`
		TipoConta     string     `json:"tipoConta"`
		SaldoAbertura core.Money `json:"saldoAbertura"`
		SaldoAtual    core.Money `json:"saldoAtual"`
	}

	CategoryDTO struct {
		ID        int64  `json:"id,omitempty"`
		ClienteID int64  `json:"clienteId,omitempty"`
		Nome      string `json:"nome"`
		Padrao    bool   `json:"padrao"`
	}

	TransactionDTO struct {
		ID            int64          `json:"id,omitempty"`
		ClienteID     int64          `json:"clienteId,omitempty"`
		ContaID       int64          `json:"contaId"`
		CategoriaID   int64          `json:"categoriaId"`
		Tipo          string         `json:"tipo"`
		Valor         core.Money     `json:"valor"`
		Descricao     string         `json:"descricao"`
		DataOperacao  core.Timestamp `json:"dataOperacao"`
		NomeCategoria string         `json:"nomeCategoria,omitempty"`
		NomeConta     string         `json:"nomeConta,omitempty"`
	}

	// GoalDTO may carry valorAtual from older collaborators. It is decoded
	// and ignored: the saved amount is always the vault balance.
	GoalDTO struct {
		ID               int64       `json:"id,omitempty"`
		ClienteID        int64       `json:"clienteId,omitempty"`
		Nome             string      `json:"nome"`
		ValorAlvo        core.Money  `json:"valorAlvo"`
		DataAlvo         core.Date   `json:"dataAlvo"`
		ContaAssociadaID int64       `json:"contaAssociadaId,omitempty"`
		ValorAtual       *core.Money `json:"valorAtual,omitempty"`
	}

	TransferDTO struct {
		ClienteID      int64          `json:"clienteId"`
		ContaOrigemID  int64          `json:"contaOrigemId"`
		ContaDestinoID int64          `json:"contaDestinoId"`
		Valor          core.Money     `json:"valor"`
		DataOperacao   core.Timestamp `json:"dataOperacao"`
	}

	ProfileDTO struct {
		ID    int64  `json:"id"`
		Nome  string `json:"nome"`
		Email string `json:"email"`
	}

	ProfileUpdateDTO struct {
		Nome       string  `json:"nome"`
		Email      string  `json:"email"`
		SenhaAtual string  `json:"senhaAtual"`
		NovaSenha  *string `json:"novaSenha"`
	}

	ProfileDeleteDTO struct {
		SenhaAtual string `json:"senhaAtual"`
	}
)

func AccountToDTO(a core.Account) AccountDTO {
	return AccountDTO{
		ID:            a.ID,
		ClienteID:     a.OwnerID,
		Nome:          a.Name,
		TipoConta:     a.Kind.WireName(),
		SaldoAbertura: a.OpeningBalance,
		SaldoAtual:    a.Balance,
	}
}

func (d AccountDTO) Account() (core.Account, error) {
	kind, err := core.ParseAccountKind(d.TipoConta)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %d: %w", d.ID, err)
	}
	return core.Account{
		ID:             d.ID,
		OwnerID:        d.ClienteID,
		Name:           d.Nome,
		Kind:           kind,
		OpeningBalance: d.SaldoAbertura,
		Balance:        d.SaldoAtual,
	}, nil
}

// AccountRequestDTO encodes a create-account call.
func AccountRequestDTO(r AccountRequest) AccountDTO {
	return AccountDTO{
		ClienteID:     r.OwnerID,
		Nome:          r.Name,
		TipoConta:     r.Kind.WireName(),
		SaldoAbertura: r.OpeningBalance,
	}
}

func (d AccountDTO) Request() (AccountRequest, error) {
	kind, err := core.ParseAccountKind(d.TipoConta)
	if err != nil {
		return AccountRequest{}, err
	}
	return AccountRequest{OwnerID: d.ClienteID, Name: d.Nome, Kind: kind, OpeningBalance: d.SaldoAbertura}, nil
}

func CategoryToDTO(c core.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, ClienteID: c.OwnerID, Nome: c.Name, Padrao: c.Default}
}

func (d CategoryDTO) Category() core.Category {
	return core.Category{ID: d.ID, OwnerID: d.ClienteID, Name: d.Nome, Default: d.Padrao}
}

func TransactionToDTO(t core.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:            t.ID,
		ClienteID:     t.OwnerID,
		ContaID:       t.AccountID,
		CategoriaID:   t.CategoryID,
		Tipo:          string(t.Kind()),
		Valor:         t.Amount,
		Descricao:     t.Description,
		DataOperacao:  t.OperatedAt,
		NomeCategoria: t.CategoryName,
		NomeConta:     t.AccountName,
	}
}

// Transaction decodes a transaction into the signed form. A positive valor
// tagged DESPESA comes from collaborators that send magnitudes and is negated.
func (d TransactionDTO) Transaction() (core.Transaction, error) {
	amount := d.Valor
	if d.Tipo != "" {
		kind, err := core.ParseTransactionKind(d.Tipo)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %d: %w", d.ID, err)
		}
		amount = normalizeSign(kind, amount)
	}
	return core.Transaction{
		ID:           d.ID,
		OwnerID:      d.ClienteID,
		AccountID:    d.ContaID,
		CategoryID:   d.CategoriaID,
		Amount:       amount,
		Description:  d.Descricao,
		OperatedAt:   d.DataOperacao,
		CategoryName: d.NomeCategoria,
		AccountName:  d.NomeConta,
	}, nil
}

func TransactionRequestDTO(r TransactionRequest) TransactionDTO {
	kind := r.Kind
	if kind == "" {
		kind = core.KindFor(r.Amount)
	}
	return TransactionDTO{
		ClienteID:    r.OwnerID,
		ContaID:      r.AccountID,
		CategoriaID:  r.CategoryID,
		Tipo:         string(kind),
		Valor:        r.Amount,
		Descricao:    r.Description,
		DataOperacao: r.OperatedAt,
	}
}

// Request decodes a create-transaction body. The type flag is kept so the
// collaborator can reject a sign that disagrees with it.
func (d TransactionDTO) Request() (TransactionRequest, error) {
	kind, err := core.ParseTransactionKind(d.Tipo)
	if err != nil {
		return TransactionRequest{}, err
	}
	return TransactionRequest{
		OwnerID:     d.ClienteID,
		AccountID:   d.ContaID,
		CategoryID:  d.CategoriaID,
		Kind:        kind,
		Amount:      normalizeSign(kind, d.Valor),
		Description: d.Descricao,
		OperatedAt:  d.DataOperacao,
	}, nil
}

func normalizeSign(kind core.TransactionKind, amount core.Money) core.Money {
	if kind == core.Expense && amount.IsPositive() {
		return amount.Neg()
	}
	return amount
}

func GoalToDTO(g core.Goal) GoalDTO {
	return GoalDTO{
		ID:               g.ID,
		ClienteID:        g.OwnerID,
		Nome:             g.Name,
		ValorAlvo:        g.Target,
		DataAlvo:         g.TargetDate,
		ContaAssociadaID: g.VaultAccountID,
	}
}

func (d GoalDTO) Goal() core.Goal {
	return core.Goal{
		ID:             d.ID,
		OwnerID:        d.ClienteID,
		Name:           d.Nome,
		Target:         d.ValorAlvo,
		TargetDate:     d.DataAlvo,
		VaultAccountID: d.ContaAssociadaID,
	}
}

func GoalRequestDTO(r GoalRequest) GoalDTO {
	return GoalDTO{ClienteID: r.OwnerID, Nome: r.Name, ValorAlvo: r.Target, DataAlvo: r.TargetDate}
}

func (d GoalDTO) Request() GoalRequest {
	return GoalRequest{OwnerID: d.ClienteID, Name: d.Nome, Target: d.ValorAlvo, TargetDate: d.DataAlvo}
}

func TransferRequestDTO(r TransferRequest) TransferDTO {
	return TransferDTO{
		ClienteID:      r.OwnerID,
		ContaOrigemID:  r.SourceID,
		ContaDestinoID: r.DestinationID,
		Valor:          r.Amount,
		DataOperacao:   r.OperatedAt,
	}
}

func (d TransferDTO) Request() TransferRequest {
	return TransferRequest{
		OwnerID:       d.ClienteID,
		SourceID:      d.ContaOrigemID,
		DestinationID: d.ContaDestinoID,
		Amount:        d.Valor,
		OperatedAt:    d.DataOperacao,
	}
}

func ProfileToDTO(p core.Profile) ProfileDTO {
	return ProfileDTO{ID: p.ID, Nome: p.Name, Email: p.Email}
}

func (d ProfileDTO) Profile() core.Profile {
	return core.Profile{ID: d.ID, Name: d.Nome, Email: d.Email}
}

func ProfileUpdateRequestDTO(r ProfileUpdate) ProfileUpdateDTO {
	dto := ProfileUpdateDTO{Nome: r.Name, Email: r.Email, SenhaAtual: r.CurrentPassword}
	if r.NewPassword != "" {
		pw := r.NewPassword
		dto.NovaSenha = &pw
	}
	return dto
}

func (d ProfileUpdateDTO) Request(ownerID int64) ProfileUpdate {
	u := ProfileUpdate{OwnerID: ownerID, Name: d.Nome, Email: d.Email, CurrentPassword: d.SenhaAtual}
	if d.NovaSenha != nil {
		u.NewPassword = *d.NovaSenha
	}
	return u
}
