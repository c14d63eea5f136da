package http

import (
	"net/http"
	"strings"
	"time"

	"dompet/internal/core"
)

type recurringRequest struct {
	AccountID   int64      `json:"account_id"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date"`
	Every       string     `json:"every"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	IsExpense   bool       `json:"is_expense"`
	Category    string     `json:"category"`
}

type recurringResponse struct {
	ID            int64      `json:"id"`
	AccountID     int64      `json:"account_id"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date,omitempty"`
	Every         string     `json:"every"`
	Description   string     `json:"description"`
	Amount        core.Money `json:"amount"`
	IsExpense     bool       `json:"is_expense"`
	Category      string     `json:"category"`
	LastExecution *time.Time `json:"last_execution,omitempty"`
}

func toRecurringResponse(re core.RecurringTransaction) recurringResponse {
	out := recurringResponse{
		ID:          re.ID,
		AccountID:   re.AccountID,
		StartDate:   re.StartDate.String(),
		Every:       string(re.Every),
		Description: re.Description,
		Amount:      re.Amount,
		IsExpense:   re.IsExpense,
		Category:    re.Category,
	}
	if !re.EndDate.IsZero() {
		out.EndDate = re.EndDate.String()
	}
	if !re.LastExecution.IsZero() {
		last := re.LastExecution
		out.LastExecution = &last
	}
	return out
}

func (req recurringRequest) toRecurring(now time.Time) (core.RecurringTransaction, error) {
	start, err := parseOptionalDate(req.StartDate, now)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	var end core.Date
	if strings.TrimSpace(req.EndDate) != "" {
		if end, err = core.ParseDate(strings.TrimSpace(req.EndDate)); err != nil {
			return core.RecurringTransaction{}, badRequest("invalid end_date %q: expected YYYY-MM-DD", req.EndDate)
		}
	}
	return core.RecurringTransaction{
		AccountID:   req.AccountID,
		StartDate:   start,
		EndDate:     end,
		Every:       core.RepetitionTypes(strings.ToLower(strings.TrimSpace(req.Every))),
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		IsExpense:   req.IsExpense,
		Category:    sanitizeInput(req.Category),
	}, nil
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledger.ListRecurring(r.Context())
	if err != nil {
		writeError(w, r, "list_recurring", err)
		return
	}
	out := make([]recurringResponse, 0, len(items))
	for _, re := range items {
		out = append(out, toRecurringResponse(re))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	re, err := req.toRecurring(s.now())
	if err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	created, err := s.ledger.CreateRecurring(r.Context(), re)
	if err != nil {
		writeError(w, r, "create_recurring", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toRecurringResponse(created)).Write(w)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "get_recurring", err)
		return
	}
	re, err := s.ledger.GetRecurring(r.Context(), id)
	if err != nil {
		writeError(w, r, "get_recurring", err)
		return
	}
	NewJSONResponse().Body(toRecurringResponse(re)).Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, "delete_recurring", err)
		return
	}
	if err := s.ledger.DeleteRecurring(r.Context(), id); err != nil {
		writeError(w, r, "delete_recurring", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
