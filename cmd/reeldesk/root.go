package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		socketFlag    string
		configFlag    string
		staffFlag     string
		staffNameFlag string
	)

	ctx := newCommandContext(&socketFlag, &configFlag, &staffFlag, &staffNameFlag)

	rootCmd := &cobra.Command{
		Use:           "reeldesk",
		Short:         "Reeldesk support desk CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the reeldesk daemon socket")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&staffFlag, "staff", "", "Staff id to act as (default $REELDESK_STAFF_ID or $USER)")
	rootCmd.PersistentFlags().StringVar(&staffNameFlag, "staff-name", "", "Display name used in claim notifications")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newStopCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newRoomsCommand(ctx))
	rootCmd.AddCommand(newNotificationsCommand(ctx))
	rootCmd.AddCommand(newAssistantCommand())
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newBillingCommand(ctx))

	return rootCmd
}
