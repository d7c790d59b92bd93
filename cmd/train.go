package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glimpsebot/glimpse/api/schemas"
)

// newTrainCommand builds the `train` subcommand: backfill memory from a
// recorded demonstration session.
func newTrainCommand() *cobra.Command {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Learn from recorded demonstration sessions",
	}

	backfillCmd := &cobra.Command{
		Use:   "backfill <session.json>",
		Short: "Convert a training session's hypotheses into memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read session: %w", err)
			}
			var session schemas.TrainingSession
			if err := json.Unmarshal(data, &session); err != nil {
				return fmt.Errorf("decode session %s: %w", args[0], err)
			}

			c, err := buildCore(cmd.Context())
			if err != nil {
				return err
			}
			learned, err := c.mind.BackfillFromSession(cmd.Context(), &session)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "learned %d records from session %s\n", learned, session.ID)
			return nil
		},
	}

	trainCmd.AddCommand(backfillCmd)
	return trainCmd
}
