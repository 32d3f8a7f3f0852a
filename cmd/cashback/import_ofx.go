package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/cashback-counter/internal/cli"
	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/config"
	"github.com/Veraticus/cashback-counter/internal/engine"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/ofx"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxParallelParses bounds how many statement files are parsed at once.
const maxParallelParses = 4

func importOFXCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import-ofx <card> <files...>",
		Short: "Import transactions from OFX/QFX statements",
		Long: `Import the purchases in OFX or QFX statements exported from your bank.

Each purchase earns cashback in date order, so caps fill up the way they did
on the real statement. Payments and refunds are skipped. Re-importing a
statement skips transactions that were already imported.

Purchases are categorized from the statement's merchant category codes. Those
without one are matched against merchant rules: the built-in ones plus any
under categories.rules in the config file.

Examples:
  # Import one statement
  cashback import-ofx red ~/Downloads/hsbc_2024_03.qfx

  # Import a year of statements
  cashback import-ofx red ~/Downloads/hsbc_2024_*.qfx`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportOFX(cmd, args[0], args[1:], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "d", false, "Parse the statements without saving anything")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Hide the progress bar")
	cmd.Flags().BoolVar(&flags.noRules, "no-rules", false, "Don't categorize merchants the statement leaves uncategorized")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "List every transaction that failed to import")

	return cmd
}

type importFlags struct {
	dryRun     bool
	noProgress bool
	noRules    bool
	verbose    bool
}

func runImportOFX(cmd *cobra.Command, cardID string, patterns []string, flags importFlags) error {
	files, err := expandFiles(patterns)
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.OutOrStdout(), "Import")
	ctx := handler.HandleInterrupts(cmd.Context(), "Run the same command again: imported transactions are skipped.")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	card, err := store.GetCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("failed to load card: %w", err)
	}

	statements, err := parseStatements(ctx, files)
	if err != nil {
		return err
	}

	var drafts []engine.Draft
	credits := 0
	for i, stmt := range statements {
		if !stmt.MatchesCard(card) {
			cmd.Println(cli.FormatWarning(fmt.Sprintf("%s covers account(s) %s, which do not end in %s",
				filepath.Base(files[i]), strings.Join(stmt.Accounts, ", "), card.EndNum)))
		}
		drafts = append(drafts, stmt.Drafts...)
		credits += stmt.Credits
	}

	slog.Info("Parsed statements",
		"files", len(files),
		"purchases", len(drafts),
		"credits", credits)

	if len(drafts) == 0 {
		return common.NewUserError("Nothing to import", common.ErrNoTransactions)
	}

	if !flags.noRules {
		matcher, err := config.LoadCategoryRules()
		if err != nil {
			return err
		}
		if n := matcher.Apply(drafts); n > 0 {
			slog.Info("Categorized merchants by rule", "count", n)
		}
	}

	if flags.dryRun {
		printDryRun(cmd, card, drafts, credits)
		return nil
	}

	if err := store.AutoBackup(ctx, "import"); err != nil {
		return err
	}

	eng, err := newEngine(store)
	if err != nil {
		return err
	}

	var opts engine.ImportOptions
	if !flags.noProgress {
		bar := cli.NewProgressBar(cmd.OutOrStdout(), len(drafts), "Importing")
		opts.OnProgress = func(done, _ int) {
			_ = bar.Set(done)
		}
	}

	stats, err := eng.Import(ctx, card.ID, drafts, opts)
	if err != nil {
		if handler.WasInterrupted() {
			return nil
		}
		return err
	}

	printImportStats(cmd, card, stats, credits, flags.verbose)
	return nil
}

// expandFiles resolves glob patterns to files, keeping plain paths that
// exist even when they contain no glob characters.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err != nil {
				slog.Warn("No files found matching pattern", "pattern", pattern)
				continue
			}
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no files found to import")
	}
	sort.Strings(files)
	return files, nil
}

// parseStatements parses files concurrently. Results keep the order of files.
func parseStatements(ctx context.Context, files []string) ([]*ofx.Statement, error) {
	parser := ofx.NewParser()
	statements := make([]*ofx.Statement, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelParses)
	for i, path := range files {
		g.Go(func() error {
			f, err := os.Open(path) // #nosec G304 - path chosen by the user
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer func() { _ = f.Close() }()

			stmt, err := parser.ParseFile(gctx, f)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
			}
			statements[i] = stmt
			slog.Debug("Parsed statement",
				"file", filepath.Base(path),
				"purchases", len(stmt.Drafts),
				"credits", stmt.Credits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statements, nil
}

func printDryRun(cmd *cobra.Command, card *model.RewardCard, drafts []engine.Draft, credits int) {
	oldest, newest := drafts[0].Date, drafts[0].Date
	for _, d := range drafts[1:] {
		if d.Date.Before(oldest) {
			oldest = d.Date
		}
		if d.Date.After(newest) {
			newest = d.Date
		}
	}

	cmd.Println(cli.FormatTitle("Dry run for " + card.DisplayName()))
	cmd.Printf("📅 %s to %s\n", oldest.Format(dateLayout), newest.Format(dateLayout))
	cmd.Printf("🧾 %d purchases, %d payments/refunds skipped\n", len(drafts), credits)

	rows := make([][]string, 0, 5)
	for i, d := range drafts {
		if i >= 5 {
			break
		}
		amount := fmt.Sprintf("%.2f %s", d.SpendAmount, d.SpendRegion.CurrencyCode())
		rows = append(rows, []string{d.Date.Format(dateLayout), d.Merchant, string(d.Category), amount})
	}
	cmd.Print(cli.RenderTable([]string{"Date", "Merchant", "Category", "Spent"}, rows))
	cmd.Println(cli.FormatInfo("No data saved."))
}

func printImportStats(cmd *cobra.Command, card *model.RewardCard, stats engine.ImportStats, credits int, verbose bool) {
	lines := []string{
		fmt.Sprintf("Imported:  %d", stats.Imported),
		fmt.Sprintf("Skipped:   %d already imported, %d payments/refunds", stats.Skipped, credits),
		fmt.Sprintf("Cashback:  %s", model.FormatMoney(card.IssuingRegion, stats.Reward)),
	}
	if stats.Capped > 0 {
		lines = append(lines, cli.FormatWarning(fmt.Sprintf("%d transaction(s) hit a reward cap", stats.Capped)))
	}
	if stats.Failed > 0 {
		lines = append(lines, cli.FormatError(fmt.Sprintf("%d transaction(s) could not be imported", stats.Failed)))
	}
	cmd.Println(cli.RenderBox(cli.CardIcon+" "+card.DisplayName(), strings.Join(lines, "\n")))

	if verbose {
		for _, err := range stats.Errors {
			cmd.Println(cli.FormatError(err.Error()))
		}
	} else if stats.Failed > 0 {
		cmd.Println(cli.FormatInfo("Run with --verbose to see why."))
	}
}
