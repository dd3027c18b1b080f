package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TFMV/hivesql/cmd/hivesql/app"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/output"
	"github.com/TFMV/hivesql/pkg/services"
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute HiveQL statements",
	Long: `Execute one statement or a script and print the results.

The script is read from -e, from -f, or from standard input.

Example:
  hivesql exec -e "SELECT * FROM sales_db.sales LIMIT 10"
  hivesql exec -f ./partitions.sql --continue-on-error`,
	Args: cobra.NoArgs,
	RunE: runExec,
}

var classifyCmd = &cobra.Command{
	Use:   "classify [SQL]",
	Short: "Classify statements without connecting",
	Long: `Print the category, action, target and partition spec of each
statement. Statements come from the arguments or from standard input.

Example:
  hivesql classify "ALTER TABLE logs ADD PARTITION (dt='2024-01-01')"`,
	RunE: runClassify,
}

func init() {
	execCmd.Flags().StringP("execute", "e", "", "statements to execute")
	execCmd.Flags().StringP("file", "f", "", "script file to execute")
	execCmd.MarkFlagsMutuallyExclusive("execute", "file")
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg.LogLevel)

	script, err := readScript(cmd)
	if err != nil {
		return err
	}

	w, err := output.NewWriter(output.Format(cfg.Output), os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer a.Close()

	results, runErr := a.RunScript(ctx, script)
	if err := writeAll(w, results); err != nil {
		return err
	}
	return runErr
}

// readScript returns the text of -e or -f, or all of standard input when it
// is not a terminal.
func readScript(cmd *cobra.Command) (string, error) {
	if text, _ := cmd.Flags().GetString("execute"); text != "" {
		return text, nil
	}
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read script: %w", err)
		}
		return string(data), nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no statements: use -e, -f or pipe a script")
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read standard input: %w", err)
	}
	return string(data), nil
}

func writeAll(w output.Writer, results []*models.ResultEnvelope) error {
	for _, env := range results {
		if err := w.Write(env); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		text = string(data)
	}
	return classify(cmd.OutOrStdout(), text)
}

// classify prints one JSON object per statement. Unclassifiable statements
// are reported with their error and make the command fail.
func classify(out io.Writer, text string) error {
	classifier := services.NewStatementClassifier()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	var firstErr error
	for _, s := range services.SplitScript(text) {
		stmt, err := classifier.Classify(s)
		if err == nil {
			err = classifier.ValidateStatement(s)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if encErr := enc.Encode(map[string]string{"raw": s, "error": err.Error()}); encErr != nil {
				return encErr
			}
			continue
		}
		if err := enc.Encode(stmt); err != nil {
			return err
		}
	}
	return firstErr
}
