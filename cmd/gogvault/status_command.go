package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gogvault/internal/logging"
	"gogvault/internal/manifest"
	"gogvault/internal/preflight"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show manifest, checkpoint, and environment status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.newStore(logging.NewNop())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, "Manifest")
			m, err := store.Load()
			switch {
			case errors.Is(err, manifest.ErrNotFound):
				fmt.Fprintln(out, statusLine("path", store.Path()+" (not created yet)", statusWarn, colorize))
			case err != nil:
				fmt.Fprintln(out, statusLine("path", fmt.Sprintf("%s (%v)", store.Path(), err), statusError, colorize))
			default:
				fmt.Fprintln(out, statusLine("path", store.Path(), statusOK, colorize))
				downloads, extras := countFiles(m)
				fmt.Fprintln(out, statusLine("items", fmt.Sprintf("%d (%d downloads, %d extras)", m.Len(), downloads, extras), statusOK, colorize))
			}

			fmt.Fprintln(out, "Checkpoint")
			state, err := store.LoadResume()
			switch {
			case errors.Is(err, manifest.ErrNotFound):
				fmt.Fprintln(out, statusLine("resume", "none (last run completed)", statusOK, colorize))
			case err != nil:
				fmt.Fprintln(out, statusLine("resume", err.Error(), statusError, colorize))
			default:
				detail := fmt.Sprintf("%s run %s, %d items merged, updated %s",
					state.Strategy, state.RunID, len(state.MergedIDs), state.UpdatedAt.Format("2006-01-02 15:04"))
				fmt.Fprintln(out, statusLine("resume", detail, statusWarn, colorize))
			}

			fmt.Fprintln(out, "Environment")
			for _, result := range preflight.RunAll(cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, statusLine(result.Name, result.Detail, kind, colorize))
			}
			return nil
		},
	}
}

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusError
)

func statusLine(label, detail string, kind statusKind, colorize bool) string {
	var tag, color string
	switch kind {
	case statusWarn:
		tag, color = "WARN", ansiYellow
	case statusError:
		tag, color = "FAIL", ansiRed
	default:
		tag, color = " OK ", ansiGreen
	}
	if colorize {
		tag = color + tag + ansiReset
	}
	return fmt.Sprintf("  [%s] %-20s %s", tag, label, detail)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
