package services

import (
	"errors"
	"fmt"
	"strings"

	"expresso/internal/refresh"
	"expresso/internal/remote"
	"expresso/internal/store"
)

var (
	// ErrInsufficientGoalFunds is the local pre-check on withdrawals from a
	// goal vault. The collaborator still decides.
	ErrInsufficientGoalFunds = errors.New("insufficient goal funds")
	// ErrProtectedCategory short-circuits edits of system categories.
	ErrProtectedCategory = errors.New("protected category")
	// ErrDirectVaultTransaction rejects transactions entered on a vault,
	// which only moves through transfers.
	ErrDirectVaultTransaction = errors.New("goal vault accepts transfers only")
	ErrUnknownGoal            = errors.New("unknown goal")
)

type (
	FieldError struct {
		Field   string
		Message string
	}

	// ValidationError lists malformed input fields. It is always returned
	// before any remote call.
	ValidationError struct {
		Fields []FieldError
	}

	// StepError reports that the category of an inline-category transaction
	// was created but the transaction itself failed.
	StepError struct {
		CategoryID   int64
		CategoryName string
		Err          error
	}
)

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for one field, empty when valid.
func (e *ValidationError) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("category %q created, transaction failed: %v", e.CategoryName, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindRejection
	KindTransport
	KindPartialRefresh
	KindDiscarded
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindRejection:
		return "rejection"
	case KindTransport:
		return "transport"
	case KindPartialRefresh:
		return "partial_refresh"
	case KindDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by a coordinator to its taxonomy class.
func Classify(err error) ErrorKind {
	var (
		verr    *ValidationError
		partial *refresh.PartialError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &verr), errors.Is(err, ErrInsufficientGoalFunds),
		errors.Is(err, ErrProtectedCategory), errors.Is(err, ErrDirectVaultTransaction),
		errors.Is(err, ErrUnknownGoal):
		return KindValidation
	case remote.IsRejection(err):
		return KindRejection
	case remote.IsTransport(err):
		return KindTransport
	case errors.As(err, &partial):
		return KindPartialRefresh
	case errors.Is(err, refresh.ErrDiscarded):
		return KindDiscarded
	default:
		return KindUnknown
	}
}

const transportMessage = "Não foi possível contactar o servidor. Verifique a ligação e tente novamente."

var collectionNames = map[store.Collection]string{
	store.Accounts:     "contas",
	store.Categories:   "categorias",
	store.Transactions: "transações",
	store.Goals:        "metas",
}

// UserMessage renders err for display. Collaborator rejections are shown
// verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var step *StepError
	if errors.As(err, &step) {
		return fmt.Sprintf("A categoria '%s' foi criada, mas a transação falhou: %s", step.CategoryName, UserMessage(step.Err))
	}
	if msg, ok := remote.RejectionMessage(err); ok {
		return msg
	}

	var (
		verr    *ValidationError
		partial *refresh.PartialError
	)
	switch {
	case errors.As(err, &verr):
		parts := make([]string, len(verr.Fields))
		for i, f := range verr.Fields {
			parts[i] = f.Field + ": " + f.Message
		}
		return "Por favor, corrija os campos: " + strings.Join(parts, "; ")
	case errors.Is(err, ErrInsufficientGoalFunds):
		return "Saldo insuficiente na meta."
	case errors.Is(err, ErrProtectedCategory):
		return "Não é permitido alterar uma categoria padrão."
	case errors.Is(err, ErrDirectVaultTransaction):
		return "A conta de uma meta só recebe transferências."
	case errors.Is(err, ErrUnknownGoal):
		return "Meta não encontrada."
	case remote.IsTransport(err):
		return transportMessage
	case errors.As(err, &partial):
		names := make([]string, len(partial.Stale))
		for i, c := range partial.Stale {
			names[i] = collectionNames[c]
		}
		return "Operação concluída, mas os dados podem estar desatualizados (" + strings.Join(names, ", ") + "). Tente atualizar."
	case errors.Is(err, refresh.ErrDiscarded):
		return ""
	default:
		return err.Error()
	}
}
