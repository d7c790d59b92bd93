package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/agent"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newRunCommand builds the `run` subcommand: the main perceive-recall-act
// loop. Observations arrive as ScreenState JSON (a file, or newline-delimited
// on stdin with --follow); decisions and grounded actions are emitted as JSON
// on stdout for the input driver to perform.
func newRunCommand() *cobra.Command {
	var (
		goal     string
		obsFile  string
		plan     string
		follow   bool
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Decide on an observation, or follow a stream of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := buildCore(ctx)
			if err != nil {
				return err
			}

			if plan != "" {
				var state *schemas.ScreenState
				if obsFile != "" {
					if state, err = readObservation(obsFile); err != nil {
						return err
					}
				}
				steps, err := c.mind.DecomposeAndVerify(ctx, plan, state)
				if err != nil {
					return err
				}
				return emit(cmd, steps)
			}

			if follow {
				return followLoop(cmd, c, goal)
			}

			if obsFile == "" {
				return fmt.Errorf("either --observation or --follow is required")
			}
			state, err := readObservation(obsFile)
			if err != nil {
				return err
			}
			decision := c.mind.Think(ctx, state, goal)
			return emit(cmd, decision)
		},
	}

	runCmd.Flags().StringVarP(&goal, "goal", "g", "", "goal to pursue")
	runCmd.Flags().StringVarP(&obsFile, "observation", "o", "", "path to a ScreenState JSON observation")
	runCmd.Flags().StringVarP(&plan, "plan", "p", "", "free-text instruction to decompose and verify instead of acting")
	runCmd.Flags().BoolVarP(&follow, "follow", "f", false, "read newline-delimited observations from stdin")
	return runCmd
}

// followLoop consumes an observation stream. Confident decisions emit their
// grounded action and count as activity; everything else lets the screen go
// idle and eventually hands it to the curiosity loop.
func followLoop(cmd *cobra.Command, c *core, goal string) error {
	ctx := cmd.Context()
	loop := agent.NewCuriosityLoop(c.cfg.Idle, c.cfg.Agent, c.mind, c.inference, c.logger)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var state schemas.ScreenState
		if err := json.Unmarshal(line, &state); err != nil {
			c.logger.Warn("Skipping malformed observation", zap.Error(err))
			continue
		}

		decision := c.mind.Think(ctx, &state, goal)
		if err := emit(cmd, decision); err != nil {
			return err
		}

		if decision.Confident {
			loop.NoteActivity()
			continue
		}

		loop.NoteIdle(time.Now(), state.ID)
		if loop.ShouldAnalyze(time.Now()) {
			report, err := loop.Analyze(ctx, &state, nil)
			if err != nil {
				c.logger.Warn("Idle analysis failed", zap.Error(err))
				continue
			}
			if !report.Discarded {
				if err := emit(cmd, report); err != nil {
					return err
				}
			}
		}
	}
	return scanner.Err()
}

// readObservation loads one ScreenState from a JSON file.
func readObservation(path string) (*schemas.ScreenState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read observation: %w", err)
	}
	var state schemas.ScreenState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode observation %s: %w", path, err)
	}
	return &state, nil
}

// emit writes one JSON document per line to the command's stdout.
func emit(cmd *cobra.Command, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
