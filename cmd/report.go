package cmd

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/learnloop/internal/assessment"
	"github.com/abhisek/learnloop/internal/ui/theme"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(theme.TextDim).Width(22)
	valueStyle = lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(theme.TextDim)
)

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the learner profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		l, err := rt.learner(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		p, err := l.Profile(ctx)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		tempo, err := l.Tempo.Load(ctx)
		if err != nil {
			return fmt.Errorf("load tempo preference: %w", err)
		}

		fmt.Println(theme.Title.Render("Learner " + l.ID))
		if p == nil || p.SessionCount == 0 {
			fmt.Println(dimStyle.Render("No sessions recorded yet."))
			fmt.Println(row("Tempo", fmt.Sprintf("×%.2f", tempo)))
			return nil
		}

		lines := []string{
			row("Sessions", fmt.Sprint(p.SessionCount)),
			row("Preferred approach", string(p.PreferredApproach)),
			row("Avg time per puzzle", (time.Duration(p.AverageTimePerPuzzle) * time.Millisecond).Round(100*time.Millisecond).String()),
			row("Success rate", fmt.Sprintf("%.0f%%", p.SuccessRate*100)),
			row("Hint usage", fmt.Sprintf("%.2f per session", p.HintUsageRate)),
			row("Retry tendency", fmt.Sprintf("%.2f per session", p.RetryTendency)),
			row("Strengths", listOrDash(p.StrengthAreas)),
			row("Growth areas", listOrDash(p.GrowthAreas)),
			row("Tempo", fmt.Sprintf("×%.2f", tempo)),
			row("Updated", p.LastUpdated.Local().Format("2006-01-02 15:04")),
		}
		fmt.Println(theme.Card.Render(strings.Join(lines, "\n")))
		return nil
	},
}

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "Show earned badges and bonus points",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		l, err := rt.learner(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		earned, err := l.EarnedBadges(ctx)
		if err != nil {
			return fmt.Errorf("load badges: %w", err)
		}
		bonus, err := l.BonusPoints(ctx)
		if err != nil {
			return fmt.Errorf("load bonus points: %w", err)
		}

		have := make(map[assessment.BadgeType]assessment.Badge, len(earned))
		for _, b := range earned {
			have[b.Type] = b
		}

		fmt.Println(theme.Title.Render("Badges"))
		for _, t := range assessment.AllBadgeTypes() {
			b, ok := have[t]
			if !ok {
				fmt.Println(dimStyle.Render(fmt.Sprintf("  ○ %s", t.DisplayName())))
				continue
			}
			fmt.Println(theme.Badge.Render(fmt.Sprintf("  %s %s", t.Icon(), t.DisplayName())) +
				dimStyle.Render(fmt.Sprintf("  %s, %s", b.Reason, b.EarnedAt.Local().Format("2006-01-02"))))
		}

		if len(bonus) > 0 {
			total := 0
			fmt.Println()
			fmt.Println(theme.Subtitle.Render("Bonus points"))
			for _, bp := range bonus {
				total += bp.Points
				fmt.Println(row("  "+bp.ActivityID, fmt.Sprint(bp.Points)))
			}
			fmt.Println(row("  Total", fmt.Sprint(total)))
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored data for the learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("reset deletes sessions, profile, assessments, badges and tempo; rerun with --yes")
		}
		rt, err := openRuntime(cmd, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		l, err := rt.learner(cmd)
		if err != nil {
			return err
		}
		if err := l.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(lipgloss.NewStyle().Foreground(theme.Success).Render("Reset learner " + l.ID))
		return nil
	},
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Confirm deletion")
}
