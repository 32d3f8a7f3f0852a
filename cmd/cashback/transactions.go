package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/cashback-counter/internal/cli"
	"github.com/Veraticus/cashback-counter/internal/engine"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/service"
	"github.com/spf13/cobra"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Record and manage transactions",
		Long: `Record purchases and see the cashback each one earns.

Amounts are in the currency of the region where you spent. Foreign spend is
converted to the card's billing currency with the configured exchange rates
unless you pass the billed amount with --billing.`,
	}

	cmd.AddCommand(addTxCmd())
	cmd.AddCommand(previewTxCmd())
	cmd.AddCommand(editTxCmd())
	cmd.AddCommand(deleteTxCmd())
	cmd.AddCommand(listTxCmd())

	return cmd
}

// txFlags are the transaction fields shared by add, preview and edit.
type txFlags struct {
	card     string
	date     string
	merchant string
	category string
	region   string
	amount   float64
	billing  float64
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.card, "card", "c", "", "Card ID")
	cmd.Flags().StringVarP(&f.date, "date", "d", "today", "Transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&f.merchant, "merchant", "m", "", "Merchant name")
	cmd.Flags().StringVar(&f.category, "category", string(model.CategoryOther), "Category (dining, grocery, travel, digital, other)")
	cmd.Flags().StringVarP(&f.region, "region", "r", "", "Region where the money was spent (default: the card's issuing region)")
	cmd.Flags().Float64VarP(&f.amount, "amount", "a", 0, "Amount in the spend region's currency")
	cmd.Flags().Float64Var(&f.billing, "billing", 0, "Amount billed in the card's currency, skipping conversion")
}

// draft builds a draft for a new transaction from the flags.
func (f *txFlags) draft(cmd *cobra.Command, store service.CardRepository) (engine.Draft, error) {
	if f.card == "" {
		return engine.Draft{}, errors.New("--card is required")
	}
	card, err := store.GetCard(cmd.Context(), f.card)
	if err != nil {
		return engine.Draft{}, fmt.Errorf("failed to load card: %w", err)
	}

	d := engine.Draft{
		CardID:      card.ID,
		Merchant:    strings.TrimSpace(f.merchant),
		SpendRegion: card.IssuingRegion,
		SpendAmount: f.amount,
		Source:      model.SourceManual,
	}
	if d.Date, err = parseDate(f.date, card.IssuingRegion); err != nil {
		return d, err
	}
	if d.Category, err = model.ParseCategory(f.category); err != nil {
		return d, err
	}
	if f.region != "" {
		if d.SpendRegion, err = model.ParseRegion(f.region); err != nil {
			return d, err
		}
	}
	if cmd.Flags().Changed("billing") {
		d.BillingAmount = engine.Billing(f.billing)
	}
	return d, nil
}

// merge overlays the flags the user set onto a draft of an existing
// transaction. Changing the card, region or amount drops the stored billing
// amount so it is converted again.
func (f *txFlags) merge(cmd *cobra.Command, store service.CardRepository, txn *model.Transaction) (engine.Draft, error) {
	changed := cmd.Flags().Changed
	d := engine.Draft{
		Date:          txn.Date,
		CardID:        txn.CardID,
		Merchant:      txn.Merchant,
		Category:      txn.Category,
		SpendRegion:   txn.SpendRegion,
		SpendAmount:   txn.SpendAmount,
		BillingAmount: engine.Billing(txn.Amount),
		Source:        txn.Source,
		ExternalID:    txn.ExternalID,
	}

	var err error
	if changed("card") {
		d.CardID = f.card
		d.BillingAmount = nil
	}
	if changed("date") {
		card, err := store.GetCard(cmd.Context(), d.CardID)
		if err != nil {
			return d, fmt.Errorf("failed to load card: %w", err)
		}
		if d.Date, err = parseDate(f.date, card.IssuingRegion); err != nil {
			return d, err
		}
	}
	if changed("merchant") {
		d.Merchant = strings.TrimSpace(f.merchant)
	}
	if changed("category") {
		if d.Category, err = model.ParseCategory(f.category); err != nil {
			return d, err
		}
	}
	if changed("region") {
		if d.SpendRegion, err = model.ParseRegion(f.region); err != nil {
			return d, err
		}
		d.BillingAmount = nil
	}
	if changed("amount") {
		d.SpendAmount = f.amount
		d.BillingAmount = nil
	}
	if changed("billing") {
		d.BillingAmount = engine.Billing(f.billing)
	}
	return d, nil
}

func addTxCmd() *cobra.Command {
	var flags txFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record a transaction and store the cashback it earns.

Examples:
  cashback tx add --card red --merchant "Deliveroo" --category dining --amount 320
  cashback tx add --card red --merchant "Uniqlo Ginza" --region JP --amount 5400 --date 2024-03-02`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := newEngine(store)
			if err != nil {
				return err
			}
			draft, err := flags.draft(cmd, store)
			if err != nil {
				return err
			}

			txn, err := eng.Record(ctx, draft)
			if err != nil {
				return err
			}
			card, err := store.GetCard(ctx, txn.CardID)
			if err != nil {
				return fmt.Errorf("failed to load card: %w", err)
			}

			capped := txn.WasCapped()
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %s (%s)", txn.Merchant, txn.ID)))
			cmd.Printf("%s %s at %s earns %s\n",
				cli.CashIcon,
				model.FormatMoney(card.IssuingRegion, txn.Amount),
				model.FormatPercent(txn.Rate),
				cli.FormatReward(model.FormatMoney(card.IssuingRegion, txn.Reward), capped))
			if capped {
				cmd.Println(cli.FormatWarning("A reward cap limited this transaction's cashback."))
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func previewTxCmd() *cobra.Command {
	var (
		flags   txFlags
		exclude string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the cashback a transaction would earn without recording it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := newEngine(store)
			if err != nil {
				return err
			}
			draft, err := flags.draft(cmd, store)
			if err != nil {
				return err
			}
			if draft.Merchant == "" {
				draft.Merchant = "preview"
			}

			q, err := eng.Preview(ctx, draft, exclude)
			if err != nil {
				return err
			}
			printQuote(cmd, q)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&exclude, "exclude", "", "Transaction ID to leave out of cap usage (when previewing an edit)")
	return cmd
}

func printQuote(cmd *cobra.Command, q engine.Quote) {
	region := q.Card.IssuingRegion
	lines := []string{
		fmt.Sprintf("Card:        %s", q.Card.DisplayName()),
		fmt.Sprintf("Billed:      %s", model.FormatMoney(region, q.Amount)),
		fmt.Sprintf("Rate:        %s", model.FormatPercent(q.Rate)),
		fmt.Sprintf("Uncapped:    %s", model.FormatMoney(region, q.Theoretical)),
		fmt.Sprintf("Cashback:    %s", cli.FormatReward(model.FormatMoney(region, q.Reward), q.Capped)),
	}
	if q.Capped {
		lines = append(lines, cli.FormatWarning("Capped: this purchase would exceed a yearly reward cap."))
	}
	cmd.Println(cli.RenderBox(cli.CashIcon+" Cashback preview", strings.Join(lines, "\n")))
}

func editTxCmd() *cobra.Command {
	var flags txFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a transaction",
		Long: `Edit a transaction. Only the flags you pass are changed.

The cashback is recomputed as if the old transaction had never been recorded
when the card, category, region, date or amount changes. Other transactions
keep their cashback.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			existing, err := store.GetTransactionByID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load transaction: %w", err)
			}
			eng, err := newEngine(store)
			if err != nil {
				return err
			}
			draft, err := flags.merge(cmd, store, existing)
			if err != nil {
				return err
			}

			txn, err := eng.Edit(ctx, existing.ID, draft)
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Updated %s: cashback %.2f (was %.2f)",
				txn.Merchant, txn.Reward, existing.Reward)))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func deleteTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := newEngine(store)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := eng.Delete(ctx, id); err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess("Deleted " + id))
			}
			return nil
		},
	}
}

func listTxCmd() *cobra.Command {
	var (
		cardID   string
		category string
		year     int
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter := service.TransactionFilter{
				CardID: cardID,
				Year:   year,
				Limit:  limit,
			}
			if category != "" {
				cat, err := model.ParseCategory(category)
				if err != nil {
					return err
				}
				filter.Category = cat
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			txns, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}
			if len(txns) == 0 {
				cmd.Println(cli.FormatInfo("No transactions found."))
				return nil
			}

			rows := make([][]string, 0, len(txns))
			for _, t := range txns {
				rows = append(rows, []string{
					t.ID,
					t.Date.Format(dateLayout),
					t.CardID,
					t.Merchant,
					string(t.Category),
					string(t.SpendRegion),
					fmt.Sprintf("%.2f", t.Amount),
					model.FormatPercent(t.Rate),
					cli.FormatReward(fmt.Sprintf("%.2f", t.Reward), t.WasCapped()),
				})
			}
			cmd.Print(cli.RenderTable(
				[]string{"ID", "Date", "Card", "Merchant", "Category", "Region", "Billed", "Rate", "Cashback"},
				rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&cardID, "card", "c", "", "Only this card")
	cmd.Flags().StringVar(&category, "category", "", "Only this category")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Only this year")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many")
	return cmd
}
