package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reeldesk/internal/billing"
	"reeldesk/internal/logging"
	"reeldesk/internal/store"
)

func newBillingCommand(ctx *commandContext) *cobra.Command {
	billingCmd := &cobra.Command{
		Use:   "billing",
		Short: "Subscription billing utilities",
	}
	billingCmd.AddCommand(newBillingTiersCommand())
	billingCmd.AddCommand(newBillingSetupCommand(ctx))
	return billingCmd
}

func newBillingTiersCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "tiers",
		Short:       "List distribution tiers and their limits",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := make([][]string, 0, 3)
			for _, limits := range billing.AllTiers() {
				price := "free"
				if limits.Paid() {
					price = fmt.Sprintf("%s %s/month", limits.MonthlyPrice, billing.Currency)
				}
				rows = append(rows, []string{string(limits.Tier), limits.PlatformsLabel(), limits.CommissionLabel(), price})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]columnSpec{
				{Header: "Tier"},
				{Header: "Platforms"},
				{Header: "Commission", Align: alignRight},
				{Header: "Price", Align: alignRight},
			}, rows))
			return nil
		},
	}
}

func newBillingSetupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the product and paid plans at PayPal",
		Long: "Creates the distribution product and one monthly plan per paid tier. Copy the printed\n" +
			"plan ids into billing.pro_plan_id and billing.premium_plan_id.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			logger, err := logging.New(logging.Options{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
			if err != nil {
				return err
			}
			catalog, err := billing.NewService(cfg.Billing, st, logger).SetupCatalog(cmd.Context())
			out := cmd.OutOrStdout()
			if catalog.ProductID != "" {
				fmt.Fprintf(out, "product_id      = %q\n", catalog.ProductID)
			}
			if catalog.ProPlanID != "" {
				fmt.Fprintf(out, "pro_plan_id     = %q\n", catalog.ProPlanID)
			}
			if catalog.PremiumPlanID != "" {
				fmt.Fprintf(out, "premium_plan_id = %q\n", catalog.PremiumPlanID)
			}
			if err != nil {
				return fmt.Errorf("billing setup: %w", err)
			}
			return nil
		},
	}
}
