package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo with ent's SQL builder and the global sequence counter.
type eventRepo struct {
	drv     dialect.ExecQuerier
	dialect string
	seq     *sequenceCounter
}

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(r.dialect).
		Insert(LLMRequestEventsTable.Name).
		Columns(llmEventColumns[1:]...).
		Values(
			seqNum, time.Now().UTC().UnixMilli(), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success,
			data.ErrorMessage, data.RequestBody, data.ResponseBody,
		).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	sel := entsql.Dialect(r.dialect).
		Select(llmEventColumns...).
		From(entsql.Table(LLMRequestEventsTable.Name))
	if p := seqPredicate(opts); p != nil {
		sel.Where(p)
	}
	if opts.Purpose != "" {
		sel.Where(entsql.EQ("purpose", opts.Purpose))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		ev, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error) {
	query, args := entsql.Dialect(r.dialect).
		Select(llmEventColumns...).
		From(entsql.Table(LLMRequestEventsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("LLM event %d: %w", id, ErrNotFound)
	}
	ev, err := scanLLMEvent(rows)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// LLMUsageByPurpose folds the event rows in Go so the same code serves
// SQLite integer booleans and PostgreSQL numeric sums.
func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	query, args := entsql.Dialect(r.dialect).
		Select("purpose", "success", "input_tokens", "output_tokens", "latency_ms").
		From(entsql.Table(LLMRequestEventsTable.Name)).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query LLM usage: %w", err)
	}
	defer rows.Close()

	byPurpose := make(map[string]*LLMUsage)
	latency := make(map[string]int64)
	for rows.Next() {
		var (
			purpose       string
			success       bool
			inTok, outTok int64
			latencyMs     int64
		)
		if err := rows.Scan(&purpose, &success, &inTok, &outTok, &latencyMs); err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		u, ok := byPurpose[purpose]
		if !ok {
			u = &LLMUsage{Label: purpose}
			byPurpose[purpose] = u
		}
		u.Requests++
		if !success {
			u.Failures++
		}
		u.InputTokens += inTok
		u.OutputTokens += outTok
		latency[purpose] += latencyMs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]LLMUsage, 0, len(byPurpose))
	for label, u := range byPurpose {
		u.AvgLatencyMs = float64(latency[label]) / float64(u.Requests)
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func scanLLMEvent(rows *entsql.Rows) (LLMRequestEvent, error) {
	var (
		ev LLMRequestEvent
		ts int64
	)
	err := rows.Scan(
		&ev.ID, &ev.Sequence, &ts, &ev.Provider, &ev.Model, &ev.Purpose,
		&ev.InputTokens, &ev.OutputTokens, &ev.LatencyMs, &ev.Success,
		&ev.ErrorMessage, &ev.RequestBody, &ev.ResponseBody,
	)
	if err != nil {
		return ev, fmt.Errorf("scan LLM event: %w", err)
	}
	ev.Timestamp = time.UnixMilli(ts).UTC()
	return ev, nil
}

// seqPredicate builds the sequence/timestamp window shared by event queries.
func seqPredicate(opts QueryOpts) *entsql.Predicate {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UTC().UnixMilli()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UTC().UnixMilli()))
	}
	if len(preds) == 0 {
		return nil
	}
	return entsql.And(preds...)
}
