package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/learnloop/internal/app"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the rhythm activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The TUI owns the terminal, so logs are discarded.
		rt, err := openRuntime(cmd, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		l, err := rt.learner(cmd)
		if err != nil {
			return err
		}

		notes, _ := cmd.Flags().GetInt("notes")
		level, _ := cmd.Flags().GetString("level")
		lang, _ := cmd.Flags().GetString("lang")
		return app.Run(app.Options{
			Learner:  l,
			Notes:    notes,
			LevelID:  level,
			Language: lang,
		})
	},
}

func init() {
	playCmd.Flags().IntP("notes", "n", 16, "Notes per activity")
	playCmd.Flags().String("level", "rhythm-1", "Activity id the assessment is stored under")
	playCmd.Flags().String("lang", "", "Feedback language (defaults to feedback.language)")
}
