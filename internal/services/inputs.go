package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"expresso/internal/core"
)

// Inputs as entered by the user. Amounts and dates are text and are parsed
// only after validation succeeds. Amounts are positive; the type decides the
// sign.
type (
	NewTransaction struct {
		AccountID int64 `json:"accountId" validate:"required,gt=0"`
		// CategoryID or NewCategory, never both. NewCategory is created first.
		CategoryID  int64  `json:"categoryId" validate:"required_without=NewCategory,excluded_with=NewCategory"`
		NewCategory string `json:"newCategory" validate:"omitempty,name"`
		Kind        string `json:"kind" validate:"required,txkind"`
		Amount      string `json:"amount" validate:"required,amount"`
		Description string `json:"description" validate:"required,max=200"`
		OperatedAt  string `json:"operatedAt" validate:"required,timestamp"`
	}

	NewTransfer struct {
		SourceID      int64  `json:"sourceId" validate:"required,gt=0"`
		DestinationID int64  `json:"destinationId" validate:"required,gt=0,nefield=SourceID"`
		Amount        string `json:"amount" validate:"required,amount"`
		OperatedAt    string `json:"operatedAt" validate:"required,timestamp"`
	}

	GoalDeposit struct {
		GoalID     int64  `json:"goalId" validate:"required,gt=0"`
		SourceID   int64  `json:"sourceId" validate:"required,gt=0"`
		Amount     string `json:"amount" validate:"required,amount"`
		OperatedAt string `json:"operatedAt" validate:"required,timestamp"`
	}

	GoalWithdrawal struct {
		GoalID        int64  `json:"goalId" validate:"required,gt=0"`
		DestinationID int64  `json:"destinationId" validate:"required,gt=0"`
		Amount        string `json:"amount" validate:"required,amount"`
		OperatedAt    string `json:"operatedAt" validate:"required,timestamp"`
	}

	NewAccount struct {
		Name string `json:"name" validate:"required,name"`
		// Kind is checking or wallet; vaults are created with their goal.
		Kind           string `json:"kind" validate:"required,accountkind"`
		OpeningBalance string `json:"openingBalance" validate:"omitempty,balance"`
	}

	NewGoal struct {
		Name       string `json:"name" validate:"required,name"`
		Target     string `json:"target" validate:"required,amount"`
		TargetDate string `json:"targetDate" validate:"required,date"`
	}

	CategoryName struct {
		Name string `json:"name" validate:"required,name"`
	}

	ProfileInput struct {
		Name            string `json:"name" validate:"required,name"`
		Email           string `json:"email" validate:"required,email"`
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"omitempty,min=6"`
	}

	ProfileDeletion struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
	}
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// RegisterValidation fails only on empty or reserved tags.
	must := func(tag string, fn validator.Func) { _ = v.RegisterValidation(tag, fn) }
	must("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	})
	must("balance", func(fl validator.FieldLevel) bool {
		_, err := parseBalance(fl.Field().String())
		return err == nil
	})
	must("timestamp", func(fl validator.FieldLevel) bool {
		_, err := core.ParseTimestamp(fl.Field().String())
		return err == nil
	})
	must("date", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
	must("txkind", func(fl validator.FieldLevel) bool {
		_, err := core.ParseTransactionKind(fl.Field().String())
		return err == nil
	})
	must("accountkind", func(fl validator.FieldLevel) bool {
		k, err := core.ParseAccountKind(fl.Field().String())
		return err == nil && k.Transactable()
	})
	must("name", func(fl validator.FieldLevel) bool {
		return core.Category{Name: fl.Field().String()}.Validate() == nil
	})
	return v
}

// parseBalance accepts an optional leading minus and zero, which ParseAmount
// rejects, for opening balances.
func parseBalance(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Money{}, nil
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	m, err := core.ParseAmount(s)
	if errors.Is(err, core.ErrInvalidAmount) && isZeroText(s) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, err
	}
	if neg {
		return m.Neg(), nil
	}
	return m, nil
}

func isZeroText(s string) bool {
	s = strings.NewReplacer(",", "", ".", "").Replace(s)
	return s != "" && strings.Trim(s, "0") == ""
}

func (c *Coordinator) check(in any) error {
	err := c.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "campo obrigatório"
	case "excluded_with":
		return "informe uma categoria existente ou uma nova, não ambas"
	case "amount":
		return "valor inválido"
	case "balance":
		return "saldo inválido"
	case "timestamp", "date":
		return "data inválida"
	case "txkind":
		return "tipo deve ser RECEITA ou DESPESA"
	case "accountkind":
		return "tipo de conta inválido"
	case "nefield":
		return "origem e destino devem ser diferentes"
	case "email":
		return "email inválido"
	case "name":
		return "nome vazio ou muito longo"
	case "max":
		return "no máximo " + fe.Param() + " caracteres"
	case "min":
		return "no mínimo " + fe.Param() + " caracteres"
	case "gt":
		return "identificador inválido"
	default:
		return "inválido"
	}
}
