package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TFMV/hivesql/cmd/hivesql/app"
	"github.com/TFMV/hivesql/pkg/output"
	"github.com/TFMV/hivesql/pkg/services"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive HiveQL shell",
	Long: `Start an interactive shell on one session. Statements end with ';'.
Type quit, exit or \q to leave.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg.LogLevel)

	w, err := output.NewWriter(output.Format(cfg.Output), os.Stdout)
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer a.Close()

	// piped input runs as a script
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		results, runErr := a.RunScript(cmd.Context(), string(data))
		if err := writeAll(w, results); err != nil {
			return err
		}
		return runErr
	}

	sh := &shell{app: a, out: w, logger: logger, history: historyPath(cfg.HistoryFile)}
	return sh.run(cmd.Context())
}

// shell is the interactive read-eval-print loop.
type shell struct {
	app     *app.App
	out     output.Writer
	logger  zerolog.Logger
	history string
}

func (s *shell) run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)

	if f, err := os.Open(s.history); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer s.saveHistory(line)

	var buf strings.Builder
	for {
		prompt := fmt.Sprintf("hivesql:%s> ", s.app.Session().Database())
		if buf.Len() > 0 {
			prompt = strings.Repeat(" ", len(prompt)-3) + "-> "
		}

		input, err := line.Prompt(prompt)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			buf.Reset()
			continue
		case errors.Is(err, io.EOF):
			fmt.Println()
			return nil
		case err != nil:
			return err
		}

		trimmed := strings.TrimSpace(input)
		if buf.Len() == 0 && isQuit(trimmed) {
			return nil
		}
		if trimmed == "" {
			continue
		}

		buf.WriteString(input)
		buf.WriteByte('\n')
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		text := buf.String()
		buf.Reset()
		line.AppendHistory(strings.TrimSpace(text))
		s.execute(ctx, text)
	}
}

// execute runs each statement of text. Ctrl-C cancels the running statement
// and the rest of text.
func (s *shell) execute(ctx context.Context, text string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	for _, stmt := range services.SplitScript(text) {
		env, err := s.app.Execute(ctx, stmt)
		if werr := s.out.Write(env); werr != nil {
			s.logger.Error().Err(werr).Msg("Failed to write result")
		}
		if ferr := s.out.Flush(); ferr != nil {
			s.logger.Error().Err(ferr).Msg("Failed to write result")
		}
		if err != nil {
			s.logger.Debug().Err(err).Msg("Statement failed")
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (s *shell) saveHistory(line *liner.State) {
	if s.history == "" {
		return
	}
	f, err := os.Create(s.history)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.history).Msg("Failed to save history")
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		s.logger.Warn().Err(err).Str("path", s.history).Msg("Failed to save history")
	}
}

func isQuit(s string) bool {
	switch strings.ToLower(strings.TrimRight(s, ";")) {
	case "quit", "exit", `\q`:
		return true
	}
	return false
}

func historyPath(configured string) string {
	if configured != "" {
		return configured
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hivesql_history")
}
