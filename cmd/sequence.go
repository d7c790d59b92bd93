package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/glimpsebot/glimpse/api/schemas"
	"github.com/glimpsebot/glimpse/internal/observability"
	"github.com/glimpsebot/glimpse/internal/sequence"
)

// newSequenceCommand groups the sequence subcommands. Replay runs over the
// same bridge protocol as `run --follow`: observations in on stdin, grounded
// actions out on stdout.
func newSequenceCommand() *cobra.Command {
	sequenceCmd := &cobra.Command{
		Use:   "sequence",
		Short: "Save, list, and replay action sequences",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sequence names",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildCore(cmd.Context())
			if err != nil {
				return err
			}
			store := sequence.NewStore(c.store, c.logger)
			names, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	saveCmd := &cobra.Command{
		Use:   "save <name> <steps.json>",
		Short: "Save a sequence from a JSON list of actions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read steps: %w", err)
			}
			var steps []schemas.Action
			if err := json.Unmarshal(data, &steps); err != nil {
				return fmt.Errorf("decode steps %s: %w", args[1], err)
			}

			c, err := buildCore(cmd.Context())
			if err != nil {
				return err
			}
			store := sequence.NewStore(c.store, c.logger)
			return store.Save(cmd.Context(), args[0], steps)
		},
	}

	runCmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Replay a sequence against an observation stream on stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildCore(cmd.Context())
			if err != nil {
				return err
			}
			store := sequence.NewStore(c.store, c.logger)
			source := &streamScreenSource{reader: bufio.NewReader(os.Stdin)}
			actions := &emitExecutor{cmd: cmd}

			exec := sequence.NewExecutor(store, source, actions, c.cfg.Sequence, observability.GetLogger())
			report, err := exec.Run(cmd.Context(), args[0])
			if report != nil {
				if emitErr := emit(cmd, report); emitErr != nil && err == nil {
					err = emitErr
				}
			}
			return err
		},
	}

	sequenceCmd.AddCommand(listCmd, saveCmd, runCmd)
	return sequenceCmd
}

// streamScreenSource reads one ScreenState JSON document per line from the
// bridge. Capture blocks until the driver sends the next observation.
type streamScreenSource struct {
	reader *bufio.Reader
}

var _ schemas.ScreenSource = (*streamScreenSource)(nil)

func (s *streamScreenSource) Capture(ctx context.Context) (*schemas.ScreenState, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := s.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("observation stream closed: %w", err)
			}
			return nil, err
		}
		if isBlank(line) {
			continue
		}
		var state schemas.ScreenState
		if err := json.Unmarshal(line, &state); err != nil {
			return nil, fmt.Errorf("decode observation: %w", err)
		}
		return &state, nil
	}
}

// emitExecutor performs actions by printing them for the input driver.
type emitExecutor struct {
	cmd *cobra.Command
}

var _ schemas.ActionExecutor = (*emitExecutor)(nil)

func (e *emitExecutor) Perform(ctx context.Context, action schemas.Action) error {
	return emit(e.cmd, action)
}

func isBlank(line []byte) bool {
	for _, b := range line {
		if b != ' ' && b != '\t' && b != '\r' && b != '\n' {
			return false
		}
	}
	return true
}
