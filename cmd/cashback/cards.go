package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/cashback-counter/internal/cli"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/spf13/cobra"
)

func cardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cards",
		Aliases: []string{"card"},
		Short:   "Manage reward cards",
		Long: `Manage the credit cards you track and their reward policies.

Rates are entered as percentages (--base 1.5 means 1.5% cashback) and caps as
yearly cashback limits in the card's billing currency. A cap of 0 is unlimited.`,
	}

	cmd.AddCommand(listCardsCmd())
	cmd.AddCommand(templatesCmd())
	cmd.AddCommand(addCardCmd())
	cmd.AddCommand(updateCardCmd())
	cmd.AddCommand(deleteCardCmd())

	return cmd
}

func listCardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all cards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cards, err := store.GetCards(ctx)
			if err != nil {
				return fmt.Errorf("failed to list cards: %w", err)
			}
			if len(cards) == 0 {
				cmd.Println(cli.FormatInfo("No cards yet. Add one with 'cashback cards add'."))
				return nil
			}

			rows := make([][]string, 0, len(cards))
			for _, c := range cards {
				foreign := "-"
				if c.ForeignRate != nil {
					foreign = model.FormatPercent(*c.ForeignRate)
				}
				rows = append(rows, []string{
					c.ID,
					c.DisplayName(),
					string(c.IssuingRegion),
					model.FormatPercent(c.BaseRate),
					foreign,
					formatCategoryValues(c.CategoryBonusRates, model.FormatPercent),
					formatCap(c.IssuingRegion, c.LocalBaseCap) + " / " + formatCap(c.IssuingRegion, c.ForeignBaseCap),
					formatCategoryValues(c.CategoryCaps, func(v float64) string { return model.FormatMoney(c.IssuingRegion, v) }),
				})
			}

			cmd.Println(cli.FormatTitle("Cards"))
			cmd.Print(cli.RenderTable(
				[]string{"ID", "Card", "Region", "Base", "Foreign", "Bonuses", "Base caps (local / foreign)", "Category caps"},
				rows))
			return nil
		},
	}
}

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List built-in card templates",
		Run: func(cmd *cobra.Command, _ []string) {
			rows := make([][]string, 0)
			for _, t := range model.Templates() {
				foreign := "-"
				if t.ForeignRate > 0 {
					foreign = model.FormatPercent(t.ForeignRate)
				}
				rows = append(rows, []string{
					t.Name(),
					string(t.Region),
					model.FormatPercent(t.BaseRate),
					foreign,
					formatCategoryValues(t.BonusRates, model.FormatPercent),
				})
			}
			cmd.Println(cli.FormatTitle("Card templates"))
			cmd.Print(cli.RenderTable([]string{"Template", "Region", "Base", "Foreign", "Bonuses"}, rows))
		},
	}
}

// cardFlags are the policy flags shared by add and update.
type cardFlags struct {
	template   string
	bank       string
	cardType   string
	region     string
	endNum     string
	bonuses    []string
	caps       []string
	base       float64
	foreign    float64
	localCap   float64
	foreignCap float64
}

func (f *cardFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bank, "bank", "", "Issuing bank")
	cmd.Flags().StringVar(&f.cardType, "type", "", "Card product name")
	cmd.Flags().StringVar(&f.region, "region", "", "Issuing region (CN, HK, US, JP, NZ, TW, OTHER)")
	cmd.Flags().StringVar(&f.endNum, "end", "", "Last four digits of the card number")
	cmd.Flags().Float64Var(&f.base, "base", 0, "Base cashback rate in percent")
	cmd.Flags().Float64Var(&f.foreign, "foreign", 0, "Base rate in percent for foreign spend (0 uses --base)")
	cmd.Flags().Float64Var(&f.localCap, "local-cap", 0, "Yearly cap on local base cashback (0 = unlimited)")
	cmd.Flags().Float64Var(&f.foreignCap, "foreign-cap", 0, "Yearly cap on foreign base cashback (0 = unlimited)")
	cmd.Flags().StringSliceVar(&f.bonuses, "bonus", nil, "Category bonus in percent, e.g. dining=5 (repeatable)")
	cmd.Flags().StringSliceVar(&f.caps, "cap", nil, "Yearly cap on a category bonus, e.g. dining=200 (repeatable)")
}

// apply copies every flag the user set onto card.
func (f *cardFlags) apply(cmd *cobra.Command, card *model.RewardCard) error {
	changed := cmd.Flags().Changed

	if changed("bank") {
		card.BankName = f.bank
	}
	if changed("type") {
		card.Type = f.cardType
	}
	if changed("region") {
		region, err := model.ParseRegion(f.region)
		if err != nil {
			return err
		}
		card.IssuingRegion = region
	}
	if changed("end") {
		card.EndNum = f.endNum
	}
	if changed("base") {
		card.BaseRate = model.PercentToRate(f.base)
	}
	if changed("foreign") {
		card.ForeignRate = nil
		if f.foreign > 0 {
			card.ForeignRate = model.Rate(model.PercentToRate(f.foreign))
		}
	}
	if changed("local-cap") {
		card.LocalBaseCap = f.localCap
	}
	if changed("foreign-cap") {
		card.ForeignBaseCap = f.foreignCap
	}
	if changed("bonus") {
		bonuses, err := parseCategoryValues(f.bonuses, true)
		if err != nil {
			return err
		}
		card.CategoryBonusRates = bonuses
	}
	if changed("cap") {
		caps, err := parseCategoryValues(f.caps, false)
		if err != nil {
			return err
		}
		card.CategoryCaps = caps
	}
	return nil
}

func addCardCmd() *cobra.Command {
	var flags cardFlags

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a card",
		Long: `Add a card, either from scratch or from a built-in template.

Examples:
  # Start from a template and add the last four digits
  cashback cards add red --template "HSBC HK Red" --end 1234

  # Define the policy yourself
  cashback cards add elite --bank "HSBC US" --type Elite --region US \
    --base 1.32 --bonus travel=5.28 --cap travel=500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var card model.RewardCard
			if flags.template != "" {
				tmpl, err := model.FindTemplate(flags.template)
				if err != nil {
					return err
				}
				card = tmpl.NewCard()
			}
			card.ID = strings.TrimSpace(args[0])
			if err := flags.apply(cmd, &card); err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.CreateCard(ctx, &card); err != nil {
				return fmt.Errorf("failed to add card: %w", err)
			}

			slog.Info("Added card", "id", card.ID, "card", card.DisplayName())
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Added %s %s (%s)", cli.CardIcon, card.DisplayName(), card.ID)))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.template, "template", "t", "", "Start from a built-in template (see 'cards templates')")

	return cmd
}

func updateCardCmd() *cobra.Command {
	var flags cardFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a card's reward policy",
		Long: `Change a card's reward policy. Only the flags you pass are changed.

Recorded transactions keep the cashback they were recorded with; cap usage is
valued at the new policy from now on.`,
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
			if err := flags.apply(cmd, card); err != nil {
				return err
			}
			if err := store.UpdateCard(ctx, card); err != nil {
				return fmt.Errorf("failed to update card: %w", err)
			}

			cmd.Println(cli.FormatSuccess("Updated " + card.DisplayName()))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func deleteCardCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a card and all of its transactions",
		Args:  cobra.ExactArgs(1),
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

			if !yes {
				ok, err := cli.Confirm(ctx, cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Delete %s and every transaction recorded on it?", card.DisplayName()))
				if err != nil {
					return err
				}
				if !ok {
					cmd.Println(cli.FormatInfo("Nothing deleted."))
					return nil
				}
			}

			if err := store.AutoBackup(ctx, "delete-card"); err != nil {
				return err
			}
			if err := store.DeleteCard(ctx, card.ID); err != nil {
				return fmt.Errorf("failed to delete card: %w", err)
			}

			cmd.Println(cli.FormatSuccess("Deleted " + card.DisplayName()))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
