package http

import (
	"net/http"

	"expresso/internal/core"
	"expresso/internal/remote"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	accounts, err := s.collab.ListAccounts(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]remote.AccountDTO, len(accounts))
	for i, a := range accounts {
		out[i] = remote.AccountToDTO(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var dto remote.AccountDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	dto.Nome = sanitizeInput(dto.Nome)
	req, err := dto.Request()
	if err != nil {
		writeError(w, r, badRequest("Tipo de conta inválido."))
		return
	}
	a, err := s.collab.CreateAccount(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, remote.AccountToDTO(a))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := s.collab.ListCategories(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]remote.CategoryDTO, len(cats))
	for i, c := range cats {
		out[i] = remote.CategoryToDTO(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var dto remote.CategoryDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.collab.CreateCategory(r.Context(), dto.ClienteID, sanitizeInput(dto.Nome))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, remote.CategoryToDTO(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var dto remote.CategoryDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.collab.UpdateCategory(r.Context(), dto.ClienteID, id, sanitizeInput(dto.Nome))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.CategoryToDTO(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := ownerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.collab.DeleteCategory(r.Context(), owner, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.collab.ListTransactions(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionDTOs(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var dto remote.TransactionDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	dto.Descricao = sanitizeInput(dto.Descricao)
	req, err := dto.Request()
	if err != nil {
		writeError(w, r, badRequest("Tipo deve ser RECEITA ou DESPESA."))
		return
	}
	tx, err := s.collab.CreateTransaction(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, remote.TransactionToDTO(tx))
}

// handleDeleteTransaction reads the owner from the query string, falling
// back to a {"clienteId"} body.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := ownerID(r)
	if err != nil {
		var body struct {
			ClienteID int64 `json:"clienteId"`
		}
		if decodeJSON(w, r, &body) != nil || body.ClienteID <= 0 {
			writeError(w, r, err)
			return
		}
		owner = body.ClienteID
	}
	if err := s.collab.DeleteTransaction(r.Context(), owner, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goals, err := s.collab.ListGoals(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]remote.GoalDTO, len(goals))
	for i, g := range goals {
		out[i] = remote.GoalToDTO(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var dto remote.GoalDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	dto.Nome = sanitizeInput(dto.Nome)
	g, err := s.collab.CreateGoal(r.Context(), dto.Request())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, remote.GoalToDTO(g))
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var dto remote.TransferDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	legs, err := s.collab.CreateTransfer(r.Context(), dto.Request())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionDTOs(legs))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var dto remote.ProfileUpdateDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	dto.Nome = sanitizeInput(dto.Nome)
	p, err := s.collab.UpdateProfile(r.Context(), dto.Request(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.ProfileToDTO(p))
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var dto remote.ProfileDeleteDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.collab.DeleteProfile(r.Context(), id, dto.SenhaAtual); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func transactionDTOs(txs []core.Transaction) []remote.TransactionDTO {
	out := make([]remote.TransactionDTO, len(txs))
	for i, t := range txs {
		out[i] = remote.TransactionToDTO(t)
	}
	return out
}
