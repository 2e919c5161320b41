package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/learnloop/internal/llm"
	"github.com/abhisek/learnloop/internal/store"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM and telemetry events",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		events, err := s.EventRepo().QueryLLMEvents(ctx, store.QueryOpts{Limit: limit, Purpose: purpose})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No LLM events found.")
			return nil
		}

		// Header.
		fmt.Printf("%-5s  %-19s  %-14s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("\u2500", 100))

		for _, e := range events {
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			model := e.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Printf("%-5d  %-19s  %-14s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				model,
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View full request/response for an LLM event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		e, err := s.EventRepo().GetLLMEvent(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("event %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		sep := strings.Repeat("\u2500", 60)

		fmt.Printf("ID:        %d\n", e.ID)
		fmt.Printf("Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Provider:  %s\n", e.Provider)
		fmt.Printf("Model:     %s\n", e.Model)
		fmt.Printf("Purpose:   %s\n", e.Purpose)
		fmt.Printf("Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
		fmt.Printf("Latency:   %dms\n", e.LatencyMs)
		fmt.Printf("Success:   %v\n", e.Success)
		if e.ErrorMessage != "" {
			fmt.Printf("Error:     %s\n", e.ErrorMessage)
		}

		fmt.Println()
		fmt.Println(sep)
		fmt.Println("REQUEST")
		fmt.Println(sep)
		if e.RequestBody != "" {
			fmt.Println(e.RequestBody)
		} else {
			fmt.Println("(not captured)")
		}

		fmt.Println(sep)
		fmt.Println("RESPONSE")
		fmt.Println(sep)
		if e.ResponseBody != "" {
			fmt.Println(e.ResponseBody)
		} else {
			fmt.Println("(not captured)")
		}

		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		stats, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		if len(stats) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		// Usage by purpose.
		fmt.Println("Usage by Purpose")
		fmt.Println(strings.Repeat("\u2500", 80))
		fmt.Printf("%-20s  %6s  %6s  %10s  %10s  %10s  %8s\n",
			"Purpose", "Calls", "Failed", "Input", "Output", "Total", "Avg Ms")
		fmt.Println(strings.Repeat("\u2500", 80))

		var totalCalls int
		var totalIn, totalOut int64
		for _, st := range stats {
			total := st.InputTokens + st.OutputTokens
			fmt.Printf("%-20s  %6d  %6d  %10d  %10d  %10d  %8.0f\n",
				truncate(st.Label, 20), st.Requests, st.Failures, st.InputTokens, st.OutputTokens, total, st.AvgLatencyMs)
			totalCalls += st.Requests
			totalIn += st.InputTokens
			totalOut += st.OutputTokens
		}

		fmt.Println(strings.Repeat("\u2500", 80))
		fmt.Printf("%-20s  %6d  %6s  %10d  %10d  %10d\n",
			"TOTAL", totalCalls, "", totalIn, totalOut, totalIn+totalOut)

		// Cost by model.
		events, err := s.EventRepo().QueryLLMEvents(ctx, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		byModel := make(map[string]*llm.Usage)
		var models []string
		for _, e := range events {
			u, ok := byModel[e.Model]
			if !ok {
				u = &llm.Usage{}
				byModel[e.Model] = u
				models = append(models, e.Model)
			}
			u.InputTokens += e.InputTokens
			u.OutputTokens += e.OutputTokens
		}
		sort.Strings(models)

		fmt.Println()
		fmt.Println("Estimated Cost (USD)")
		fmt.Println(strings.Repeat("\u2500", 72))
		fmt.Printf("%-32s  %10s  %10s  %10s\n", "Model", "Input", "Output", "Cost")
		fmt.Println(strings.Repeat("\u2500", 72))

		var totalCost float64
		var unknownModels []string
		for _, m := range models {
			u := byModel[m]
			c, ok := llm.EstimateCost(m, *u)
			if !ok {
				unknownModels = append(unknownModels, m)
				fmt.Printf("%-32s  %10d  %10d  %10s\n", truncate(m, 32), u.InputTokens, u.OutputTokens, "?")
				continue
			}
			totalCost += c
			fmt.Printf("%-32s  %10d  %10d  %10s\n", truncate(m, 32), u.InputTokens, u.OutputTokens, formatCost(c))
		}

		fmt.Println(strings.Repeat("\u2500", 72))
		label := "TOTAL"
		if len(unknownModels) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Printf("%-32s  %10s  %10s  %10s\n", label, "", "", formatCost(totalCost))
		if len(unknownModels) > 0 {
			fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
		}
		return nil
	},
}

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "List recent telemetry upload attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ds, err := s.EventRepo().TelemetryDeliveries(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query deliveries: %w", err)
		}
		if len(ds) == 0 {
			fmt.Println("No telemetry deliveries recorded.")
			return nil
		}

		fmt.Printf("%-36s  %8s  %3s  %s\n", "Session", "Attempts", "OK", "Error")
		fmt.Println(strings.Repeat("\u2500", 80))
		for _, d := range ds {
			ok := "✓"
			if !d.Delivered {
				ok = "✗"
			}
			fmt.Printf("%-36s  %8d  %3s  %s\n", d.SessionID, d.Attempts, ok, d.ErrorMessage)
		}
		return nil
	},
}

// openStore opens the SQL event store selected by --db and --config.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. reflective-feedback)")
	deliveriesCmd.Flags().IntP("limit", "n", 20, "Number of deliveries to show")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
	llmCmd.AddCommand(deliveriesCmd)
}
