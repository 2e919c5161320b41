package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

func (r *eventRepo) AppendTelemetryDelivery(ctx context.Context, d TelemetryDelivery) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(r.dialect).
		Insert(TelemetryDeliveriesTable.Name).
		Columns("sequence", "timestamp", "session_id", "attempts", "delivered", "error_message").
		Values(seqNum, time.Now().UTC().UnixMilli(), d.SessionID, d.Attempts, d.Delivered, d.ErrorMessage).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save telemetry delivery: %w", err)
	}
	return nil
}

func (r *eventRepo) TelemetryDeliveries(ctx context.Context, opts QueryOpts) ([]TelemetryDelivery, error) {
	sel := entsql.Dialect(r.dialect).
		Select("session_id", "attempts", "delivered", "error_message").
		From(entsql.Table(TelemetryDeliveriesTable.Name))
	if p := seqPredicate(opts); p != nil {
		sel.Where(p)
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query telemetry deliveries: %w", err)
	}
	defer rows.Close()

	var out []TelemetryDelivery
	for rows.Next() {
		var d TelemetryDelivery
		if err := rows.Scan(&d.SessionID, &d.Attempts, &d.Delivered, &d.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan telemetry delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
