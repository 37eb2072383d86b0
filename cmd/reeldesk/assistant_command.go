package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reeldesk/internal/api"
	"reeldesk/internal/assistant"
	"reeldesk/internal/auth"
)

func newAssistantCommand() *cobra.Command {
	assistantCmd := &cobra.Command{
		Use:         "assistant",
		Short:       "Query the rule-based assistant locally",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	assistantCmd.AddCommand(newAssistantAskCommand())
	return assistantCmd
}

func newAssistantAskCommand() *cobra.Command {
	var (
		asUser string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Show how the assistant answers a message",
		Long: "Classifies the message exactly as the daemon would. Pass --as to answer as a signed-in\n" +
			"customer; without it the reply is the anonymous one. No room is opened.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("message is empty")
			}
			var caller *auth.Identity
			if id := strings.TrimSpace(asUser); id != "" {
				caller = &auth.Identity{UserID: id, Role: auth.RoleCustomer}
			}
			reply := api.FromReply(assistant.New().Respond(text, caller))
			if asJSON {
				return writeJSON(cmd, reply)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Topic:  %s (%s)\n", reply.Topic, reply.Branch)
			fmt.Fprintln(out, reply.Text)
			if len(reply.Suggestions) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Try asking:")
				for _, s := range reply.Suggestions {
					fmt.Fprintf(out, "  - %s\n", s)
				}
			}
			if reply.Escalate {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "This message would be handed to a support agent.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asUser, "as", "", "Answer as this signed-in customer id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reply as JSON")
	return cmd
}
