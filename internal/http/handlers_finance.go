package http

import (
	"net/http"

	"tracker/internal/core"
	applog "tracker/internal/log"
)

// financeData is the GET /api/nested/finance payload. Totals are exact
// decimals rendered as JSON numbers.
type financeData struct {
	Balance      any           `json:"balance"`
	Income       any           `json:"income"`
	Expenses     any           `json:"expenses"`
	Transactions []core.Record `json:"transactions"`
}

// handleFinance lists every transaction, newest first, with its totals.
func (s *Server) handleFinance(r *http.Request) *JSONResponseBuilder {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	cctx, cancel := s.withTimeout(r)
	defer cancel()
	rows, err := s.backend.Select(cctx, core.TableTransactions, core.Query{}.OrderBy("created_at", false))
	if err != nil {
		return backendFailure(ctx, applog.OpSelect, err, 0)
	}
	if rows == nil {
		rows = []core.Record{}
	}

	sum, errs := core.Summarize(rows)
	for _, e := range errs {
		logger.WarnContext(ctx, "Skipping transaction with unreadable amount",
			applog.FieldOperation, applog.OpSummary,
			applog.FieldError, e.Error())
	}
	if sum.Unknown > 0 {
		logger.WarnContext(ctx, "Transactions with unknown type counted against balance",
			applog.FieldOperation, applog.OpSummary,
			"count", sum.Unknown)
	}

	return Success(financeData{
		Balance:      core.JSONNumber(sum.Balance),
		Income:       core.JSONNumber(sum.Income),
		Expenses:     core.JSONNumber(sum.Expenses),
		Transactions: rows,
	})
}

// handleAddTransaction inserts one transaction. amount is not checked for
// being numeric; the backend decides.
func (s *Server) handleAddTransaction(r *http.Request) *JSONResponseBuilder {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	body, err := DecodeBody(r)
	if err != nil {
		return validationFailure(ctx, applog.OpInsert, err)
	}
	if err := RequireFields(body, "Amount, description, and type are required", "amount", "description", "type"); err != nil {
		return validationFailure(ctx, applog.OpInsert, err)
	}

	if t := core.TransactionType(body.String("type")); !t.Valid() {
		logger.WarnContext(ctx, "Transaction type outside income/expense",
			applog.FieldOperation, applog.OpInsert,
			applog.FieldTxType, string(t))
	}

	record := core.Record{
		"amount":      body["amount"],
		"description": body["description"],
		"type":        body["type"],
		"created_at":  core.Now(),
	}
	// Optional columns are sent only when the client sent them.
	for _, k := range []string{"category", "user_id"} {
		if v, ok := body[k]; ok {
			record[k] = v
		}
	}

	cctx, cancel := s.withTimeout(r)
	defer cancel()
	stored, err := s.backend.Insert(cctx, core.TableTransactions, record)
	if err != nil {
		return backendFailure(ctx, applog.OpInsert, err, 0)
	}

	s.metrics.recordsCreated.Add(1)
	applog.NewStructuredLogger(logger).LogRecordCreated(ctx, core.TableTransactions, stored.String("id"))

	return Created("Transaction added successfully", stored)
}

// handleDescriptions lists the descriptions of one user's transactions in
// ascending order.
//
// user_id comes from the request body and is trusted as is.
func (s *Server) handleDescriptions(r *http.Request) *JSONResponseBuilder {
	ctx := r.Context()

	body, err := DecodeBody(r)
	if err != nil {
		return validationFailure(ctx, applog.OpSelect, err)
	}
	if err := RequireFields(body, "User ID is required", "user_id"); err != nil {
		return validationFailure(ctx, applog.OpSelect, err)
	}
	userID := body.String("user_id")

	q := core.Query{}.
		Select("description").
		Eq("user_id", userID).
		OrderBy("description", true)

	cctx, cancel := s.withTimeout(r)
	defer cancel()
	rows, err := s.backend.Select(cctx, core.TableTransactions, q)
	if err != nil {
		return backendFailure(ctx, applog.OpSelect, err, 0)
	}
	if rows == nil {
		rows = []core.Record{}
	}

	applog.FromContext(ctx).DebugContext(ctx, "Fetched descriptions",
		applog.FieldUserID, userID,
		applog.FieldRowCount, len(rows))

	return Success(rows)
}
