package http

import (
	"net/http"
	"time"

	"dompet/internal/core"
	"dompet/internal/storage"
)

type accountRequest struct {
	Name           string     `json:"name"`
	OpeningBalance core.Money `json:"opening_balance"`
}

type accountResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Balance   core.Money `json:"balance"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type transactionRequest struct {
	AccountID   int64      `json:"account_id"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	IsExpense   bool       `json:"is_expense"`
	Category    string     `json:"category"`
}

func (req transactionRequest) toTransaction(id int64, now time.Time) (core.Transaction, error) {
	date, err := parseOptionalDate(req.Date, now)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          id,
		AccountID:   req.AccountID,
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		IsExpense:   req.IsExpense,
		Category:    sanitizeInput(req.Category),
	}, nil
}

type transactionResponse struct {
	ID          int64      `json:"id"`
	AccountID   int64      `json:"account_id"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	IsExpense   bool       `json:"is_expense"`
	Kind        string     `json:"kind"`
	Category    string     `json:"category"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Date:        t.Date.String(),
		Description: t.Description,
		Amount:      t.Amount,
		IsExpense:   t.IsExpense,
		Kind:        t.Kind(),
		Category:    t.Category,
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// mutationResponse pairs a transaction with the balance of its account
// after the change.
type mutationResponse struct {
	Transaction transactionResponse `json:"transaction"`
	Account     accountResponse     `json:"account"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, "list_accounts", err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_account", err)
		return
	}
	a, err := s.ledger.CreateAccount(r.Context(), sanitizeInput(req.Name), req.OpeningBalance)
	if err != nil {
		writeError(w, r, "create_account", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toAccountResponse(a)).Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get_account", err)
		return
	}
	a, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, "get_account", err)
		return
	}
	NewJSONResponse().Body(toAccountResponse(a)).Write(w)
}

// handleListTransactions filters by optional account_id, year and month.
// A month without a year is rejected.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var f storage.TransactionFilter

	accountID, ok, err := queryInt(query, "account_id")
	if err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	if ok {
		f.AccountID = int64(accountID)
	}
	if f.Year, _, err = queryInt(query, "year"); err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	if f.Month, ok, err = queryInt(query, "month"); err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	if ok {
		if f.Year == 0 {
			writeError(w, r, "list_transactions", badRequest("month requires year"))
			return
		}
		if f.Month < 1 || f.Month > 12 {
			writeError(w, r, "list_transactions", core.ErrInvalidMonth)
			return
		}
	}

	txs, err := s.ledger.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get_transaction", err)
		return
	}
	t, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, "get_transaction", err)
		return
	}
	NewJSONResponse().Body(toTransactionResponse(t)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}
	t, err := req.toTransaction(0, s.now())
	if err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}
	saved, account, err := s.ledger.RecordTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+itoa(saved.ID)).
		Body(mutationResponse{Transaction: toTransactionResponse(saved), Account: toAccountResponse(account)}).
		Write(w)
}

// handleUpdateTransaction replaces every editable field. The account of
// the response is the one the transaction belongs to after the edit.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "update_transaction", err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update_transaction", err)
		return
	}
	t, err := req.toTransaction(id, s.now())
	if err != nil {
		writeError(w, r, "update_transaction", err)
		return
	}
	updated, err := s.ledger.EditTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, "update_transaction", err)
		return
	}
	s.writeMutation(w, r, "update_transaction", updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "delete_transaction", err)
		return
	}
	deleted, err := s.ledger.DeleteTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, "delete_transaction", err)
		return
	}
	s.writeMutation(w, r, "delete_transaction", deleted)
}

func (s *Server) writeMutation(w http.ResponseWriter, r *http.Request, op string, t core.Transaction) {
	account, err := s.ledger.GetAccount(r.Context(), t.AccountID)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().
		Body(mutationResponse{Transaction: toTransactionResponse(t), Account: toAccountResponse(account)}).
		Write(w)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, "overview", err)
		return
	}
	overview, err := s.ledger.MonthOverview(r.Context(), params.Year, params.Month)
	if err != nil {
		writeError(w, r, "overview", err)
		return
	}
	NewJSONResponse().Body(overview).Write(w)
}
