package main

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/cashback-counter/internal/cli"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/report"
	"github.com/Veraticus/cashback-counter/internal/service"
	"github.com/spf13/cobra"
)

const usageBarWidth = 20

func capsCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "caps <card>",
		Short: "Show how much of each reward cap a card has used",
		Long: `Show how much of each yearly reward cap a card has used.

Usage is valued at the card's current rates, so changing a card's policy
changes how much room is left without touching recorded cashback.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			card, err := store.GetCard(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load card: %w", err)
			}
			year = resolveYear(year)
			history, err := store.GetCardHistory(ctx, card.ID, year)
			if err != nil {
				return fmt.Errorf("failed to load card history: %w", err)
			}

			rows := make([][]string, 0)
			for _, r := range report.CapUsage(card, year, history) {
				pool := r.Pool
				if r.Category != "" {
					pool = r.Category.DisplayName()
				}
				if r.Unlimited {
					rows = append(rows, []string{pool, model.FormatMoney(card.IssuingRegion, r.Used), "unlimited", "-", ""})
					continue
				}
				rows = append(rows, []string{
					pool,
					model.FormatMoney(card.IssuingRegion, r.Used),
					model.FormatMoney(card.IssuingRegion, r.Limit),
					model.FormatMoney(card.IssuingRegion, r.Remaining),
					cli.UsageBar(r.Percent, usageBarWidth) + fmt.Sprintf(" %.0f%%", r.Percent),
				})
			}

			cmd.Println(cli.FormatTitle(fmt.Sprintf("%s caps in %d", card.DisplayName(), year)))
			cmd.Print(cli.RenderTable([]string{"Pool", "Used", "Cap", "Left", ""}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&year, "year", "y", 0, "Year (default: this year)")
	return cmd
}

func summaryCmd() *cobra.Command {
	var (
		year   int
		cardID string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize spending and cashback",
		Long: `Summarize spending and cashback for a year.

Without --card, each card's totals are listed in its own billing currency.
With --card, the card's year is broken down by month and category.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			year = resolveYear(year)

			if cardID == "" {
				cards, err := store.GetCards(ctx)
				if err != nil {
					return fmt.Errorf("failed to list cards: %w", err)
				}
				rows := make([][]string, 0, len(cards))
				for _, card := range cards {
					history, err := store.GetCardHistory(ctx, card.ID, year)
					if err != nil {
						return fmt.Errorf("failed to load card history: %w", err)
					}
					rows = append(rows, summaryRow(card.DisplayName(), card.IssuingRegion, report.Totals(history)))
				}
				cmd.Println(cli.FormatTitle(fmt.Sprintf("Cashback in %d", year)))
				cmd.Print(cli.RenderTable([]string{"Card", "Purchases", "Spent", "Cashback", "Effective"}, rows))
				return nil
			}

			card, err := store.GetCard(ctx, cardID)
			if err != nil {
				return fmt.Errorf("failed to load card: %w", err)
			}
			history, err := store.GetCardHistory(ctx, card.ID, year)
			if err != nil {
				return fmt.Errorf("failed to load card history: %w", err)
			}
			region := card.IssuingRegion

			months := make([][]string, 0, 12)
			for _, m := range report.Monthly(history, year, region) {
				if m.Count == 0 {
					continue
				}
				months = append(months, summaryRow(m.Month.String(), region, service.CategorySummary{
					Count: m.Count, Amount: m.Spend, Cashback: m.Cashback,
				}))
			}

			byCategory := report.ByCategory(history)
			categories := make([][]string, 0, len(byCategory))
			for _, cat := range model.AllCategories() {
				if s, ok := byCategory[cat]; ok {
					categories = append(categories, summaryRow(cat.DisplayName(), region, s))
				}
			}

			headers := []string{"", "Purchases", "Spent", "Cashback", "Effective"}
			cmd.Println(cli.FormatTitle(fmt.Sprintf("%s %s in %d", cli.ChartIcon, card.DisplayName(), year)))
			cmd.Print(cli.RenderTable(headers, months))
			cmd.Println()
			cmd.Print(cli.RenderTable(headers, categories))
			cmd.Println()
			cmd.Print(cli.RenderTable(headers, [][]string{summaryRow("Total", region, report.Totals(history))}))
			return nil
		},
	}

	cmd.Flags().IntVarP(&year, "year", "y", 0, "Year (default: this year)")
	cmd.Flags().StringVarP(&cardID, "card", "c", "", "Break down a single card")
	return cmd
}

func summaryRow(label string, region model.Region, s service.CategorySummary) []string {
	return []string{
		label,
		strconv.Itoa(s.Count),
		model.FormatMoney(region, s.Amount),
		model.FormatMoney(region, s.Cashback),
		model.FormatPercent(report.EffectiveRate(s)),
	}
}
