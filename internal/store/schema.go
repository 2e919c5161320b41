package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table layouts follow the shape of ent's generated migrate package so the
// same migrator creates them on SQLite and PostgreSQL.

const textSize = 2147483647

var (
	// KVEntriesColumns holds the columns for the "kv_entries" table.
	KVEntriesColumns = []*schema.Column{
		{Name: "entry_key", Type: field.TypeString, Size: 512},
		{Name: "value", Type: field.TypeString, Size: textSize},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	// KVEntriesTable holds the schema information for the "kv_entries" table.
	KVEntriesTable = &schema.Table{
		Name:       "kv_entries",
		Columns:    KVEntriesColumns,
		PrimaryKey: []*schema.Column{KVEntriesColumns[0]},
	}

	// GlobalSequenceColumns holds the columns for the "global_sequence" table.
	GlobalSequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "next_val", Type: field.TypeInt64, Default: 1},
	}
	// GlobalSequenceTable holds the single-row counter shared by all event tables.
	GlobalSequenceTable = &schema.Table{
		Name:       "global_sequence",
		Columns:    GlobalSequenceColumns,
		PrimaryKey: []*schema.Column{GlobalSequenceColumns[0]},
	}

	// LLMRequestEventsColumns holds the columns for the "llm_request_events" table.
	LLMRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString, Size: 64},
		{Name: "model", Type: field.TypeString, Size: 128},
		{Name: "purpose", Type: field.TypeString, Size: 64},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: textSize, Default: ""},
	}
	// LLMRequestEventsTable holds the schema information for the "llm_request_events" table.
	LLMRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LLMRequestEventsColumns,
		PrimaryKey: []*schema.Column{LLMRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_timestamp", Columns: []*schema.Column{LLMRequestEventsColumns[2]}},
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{LLMRequestEventsColumns[5]}},
		},
	}

	// TelemetryDeliveriesColumns holds the columns for the "telemetry_deliveries" table.
	TelemetryDeliveriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeInt64},
		{Name: "session_id", Type: field.TypeString, Size: 64},
		{Name: "attempts", Type: field.TypeInt},
		{Name: "delivered", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Default: ""},
	}
	// TelemetryDeliveriesTable records the outcome of every observation upload.
	TelemetryDeliveriesTable = &schema.Table{
		Name:       "telemetry_deliveries",
		Columns:    TelemetryDeliveriesColumns,
		PrimaryKey: []*schema.Column{TelemetryDeliveriesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "telemetrydelivery_session_id", Columns: []*schema.Column{TelemetryDeliveriesColumns[3]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		KVEntriesTable,
		GlobalSequenceTable,
		LLMRequestEventsTable,
		TelemetryDeliveriesTable,
	}
)
