package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/lendledger/internal/domain"
)

// EventRepository persists lifecycle events in an append-only journal. The
// in-memory components stay authoritative; the journal exists for audit and
// replay tooling.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// EventFilter narrows an event listing. A zero LoanID matches all loans.
type EventFilter struct {
	LoanID    uint64
	EventType string
	Limit     int
	Offset    int
}

// Insert appends one event to the journal
func (r *EventRepository) Insert(ctx context.Context, event *domain.Event) error {
	attributes, err := json.Marshal(event.Attributes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO lifecycle_events (
			id, event_type, loan_id, attributes, occurred_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.Type,
		int64(event.LoanID),
		attributes,
		event.OccurredAt,
	)

	return err
}

// List retrieves events with filtering, newest first
func (r *EventRepository) List(ctx context.Context, filter EventFilter) ([]*domain.Event, error) {
	query := `
		SELECT id, event_type, loan_id, attributes, occurred_at
		FROM lifecycle_events
		WHERE 1=1
	`
	args := []any{}
	argPos := 1

	if filter.LoanID > 0 {
		query += fmt.Sprintf(` AND loan_id = $%d`, argPos)
		args = append(args, int64(filter.LoanID))
		argPos++
	}

	if filter.EventType != "" {
		query += fmt.Sprintf(` AND event_type = $%d`, argPos)
		args = append(args, filter.EventType)
		argPos++
	}

	query += ` ORDER BY occurred_at DESC, id DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argPos)
		args = append(args, filter.Limit)
		argPos++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argPos)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		var event domain.Event
		var loanID int64
		var attributes []byte

		err := rows.Scan(
			&event.ID,
			&event.Type,
			&loanID,
			&attributes,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, err
		}

		event.LoanID = uint64(loanID)

		if attributes != nil {
			_ = json.Unmarshal(attributes, &event.Attributes)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}

// ListByLoan retrieves all events for a specific loan
func (r *EventRepository) ListByLoan(ctx context.Context, loanID uint64) ([]*domain.Event, error) {
	return r.List(ctx, EventFilter{LoanID: loanID})
}
