package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glimpsebot/glimpse/api/schemas"
)

// newMemoryCommand groups the memory maintenance subcommands.
func newMemoryCommand() *cobra.Command {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and maintain the vector memory",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildCore(cmd.Context())
			if err != nil {
				return err
			}
			info, err := c.store.Info(cmd.Context())
			if err != nil {
				return err
			}
			return emit(cmd, info)
		},
	}

	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently written records",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			c, err := buildCore(cmd.Context())
			if err != nil {
				return err
			}
			recs, err := c.store.RecentRecords(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				if err := emit(cmd, rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
	recentCmd.Flags().Int("limit", 20, "maximum records to show")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop the whole collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmed, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return err
			}
			if !confirmed {
				return fmt.Errorf("refusing to drop memory without --yes")
			}
			c, err := buildCore(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "memory collection dropped")
			return nil
		},
	}
	resetCmd.Flags().Bool("yes", false, "confirm the drop")

	learnCmd := &cobra.Command{
		Use:   "learn",
		Short: "Teach one goal/action pair directly",
		RunE: func(cmd *cobra.Command, args []string) error {
			goal, _ := cmd.Flags().GetString("goal")
			target, _ := cmd.Flags().GetString("target")
			actionType, _ := cmd.Flags().GetString("action")
			fact, _ := cmd.Flags().GetString("fact")
			obsFile, _ := cmd.Flags().GetString("observation")
			if goal == "" || target == "" {
				return fmt.Errorf("--goal and --target are required")
			}

			var state *schemas.ScreenState
			var err error
			if obsFile != "" {
				if state, err = readObservation(obsFile); err != nil {
					return err
				}
			}

			c, err := buildCore(cmd.Context())
			if err != nil {
				return err
			}
			action := schemas.Action{Type: schemas.ActionType(actionType), TargetText: target}
			return c.mind.Learn(cmd.Context(), state, goal, action, nil, fact)
		},
	}
	learnCmd.Flags().String("goal", "", "what the action accomplishes")
	learnCmd.Flags().String("target", "", "visible text of the element")
	learnCmd.Flags().String("action", string(schemas.ActionClick), "action type")
	learnCmd.Flags().String("fact", "", "supporting fact")
	learnCmd.Flags().String("observation", "", "ScreenState JSON to attach as context")

	memoryCmd.AddCommand(statsCmd, recentCmd, resetCmd, learnCmd)
	return memoryCmd
}
