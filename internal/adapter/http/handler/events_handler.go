package handler

import (
	"context"
	"net/http"

	"github.com/iho/lendledger/internal/adapter/http/dto"
	"github.com/iho/lendledger/internal/adapter/repository/postgres"
	"github.com/iho/lendledger/internal/domain"
)

// EventJournal defines the behavior needed by EventsHandler.
type EventJournal interface {
	List(ctx context.Context, filter postgres.EventFilter) ([]*domain.Event, error)
}

// EventsHandler serves the persisted lifecycle journal. The journal is
// optional; without a database the endpoints report 503.
type EventsHandler struct {
	journal EventJournal
	loans   LoanService
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(journal EventJournal, loans LoanService) *EventsHandler {
	return &EventsHandler{journal: journal, loans: loans}
}

// List queries the journal across all loans. Operator surface.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "event journal disabled", "no database configured")
		return
	}

	limit, offset, _ := domain.ValidatePagination(parseIntQuery(r, "limit", 50), parseIntQuery(r, "offset", 0))

	filter := postgres.EventFilter{
		EventType: r.URL.Query().Get("type"),
		Limit:     limit,
		Offset:    offset,
	}

	events, err := h.journal.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(events))
}

// ListByLoan queries the journal for one loan. Only the loan's parties may
// read its history.
func (h *EventsHandler) ListByLoan(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerPrincipal(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	id, err := parseLoanIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan ID", err.Error())
		return
	}

	if _, err := h.loans.LoanDetails(caller, id); err != nil {
		writeError(w, mapDomainError(err), "failed to get loan", err.Error())
		return
	}

	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "event journal disabled", "no database configured")
		return
	}

	limit, offset, _ := domain.ValidatePagination(parseIntQuery(r, "limit", 50), parseIntQuery(r, "offset", 0))

	events, err := h.journal.List(r.Context(), postgres.EventFilter{
		LoanID: id,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list loan events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(events))
}
