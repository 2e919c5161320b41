package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnloop/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token <learner>",
	Short: "Issue a signed API token for a learner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Auth.Secret == "" {
			return fmt.Errorf("no signing secret: set auth.secret or LEARNLOOP_JWT_SECRET")
		}
		ttl := cfg.Auth.TokenTTL
		if d, _ := cmd.Flags().GetDuration("ttl"); d > 0 {
			ttl = d
		}
		tok, err := auth.Issue(cfg.Auth.Secret, args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
}
