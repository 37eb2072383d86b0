package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reeldesk/internal/api"
	"reeldesk/internal/ipc"
)

const contentColumnWidth = 60

func newRoomsCommand(ctx *commandContext) *cobra.Command {
	roomsCmd := &cobra.Command{
		Use:     "rooms",
		Aliases: []string{"room"},
		Short:   "Inspect and work support rooms",
	}

	roomsCmd.AddCommand(newRoomsListCommand(ctx))
	roomsCmd.AddCommand(newRoomsShowCommand(ctx))
	roomsCmd.AddCommand(newRoomsClaimCommand(ctx))
	roomsCmd.AddCommand(newRoomsCloseCommand(ctx))
	roomsCmd.AddCommand(newRoomsPostCommand(ctx))

	return roomsCmd
}

func newRoomsListCommand(ctx *commandContext) *cobra.Command {
	var (
		view   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rooms waiting for an agent, or claimed by you with --view mine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var actor ipc.Actor
			if strings.EqualFold(strings.TrimSpace(view), "mine") {
				var err error
				if actor, err = ctx.actor(); err != nil {
					return err
				}
			}
			return ctx.withDesk(func(desk deskAPI) error {
				rooms, err := desk.List(cmd.Context(), actor, view)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, rooms)
				}
				stdout := cmd.OutOrStdout()
				if len(rooms) == 0 {
					fmt.Fprintln(stdout, "No rooms")
					return nil
				}
				fmt.Fprint(stdout, renderTable(roomColumns(), roomRows(rooms)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", "unclaimed", "Room view: unclaimed, mine, or all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rooms as JSON")
	return cmd
}

func roomColumns() []columnSpec {
	return []columnSpec{
		{Header: "ID"},
		{Header: "Customer", MaxWidth: 30},
		{Header: "Status"},
		{Header: "Claimant"},
		{Header: "Last activity"},
	}
}

func roomRows(rooms []api.Room) [][]string {
	rows := make([][]string, 0, len(rooms))
	for _, room := range rooms {
		claimant := room.ClaimantID
		if claimant == "" {
			claimant = "-"
		}
		rows = append(rows, []string{room.ID, room.DisplayName, room.Status, claimant, room.LastActivityAt})
	}
	return rows
}

func newRoomsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <room-id>",
		Short: "Show a room and its conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDesk(func(desk deskAPI) error {
				resp, err := desk.Describe(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				room := resp.Room
				fmt.Fprintf(stdout, "Room:      %s\n", room.ID)
				fmt.Fprintf(stdout, "Customer:  %s (%s)\n", room.DisplayName, room.OwnerID)
				fmt.Fprintf(stdout, "Status:    %s\n", room.Status)
				if room.Claimed {
					fmt.Fprintf(stdout, "Claimant:  %s\n", room.ClaimantID)
				} else {
					fmt.Fprintln(stdout, "Claimant:  unclaimed")
				}
				fmt.Fprintf(stdout, "Opened:    %s\n", room.CreatedAt)
				fmt.Fprintln(stdout)
				fmt.Fprint(stdout, renderTable(
					[]columnSpec{
						{Header: "#", Align: alignRight},
						{Header: "From"},
						{Header: "Message", MaxWidth: contentColumnWidth},
						{Header: "At"},
					},
					messageRows(resp.Messages),
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the room as JSON")
	return cmd
}

func messageRows(msgs []api.Message) [][]string {
	rows := make([][]string, 0, len(msgs))
	for _, msg := range msgs {
		from := msg.SenderID
		if msg.System {
			from = "system"
		}
		rows = append(rows, []string{fmt.Sprint(msg.Seq), from, msg.Content, msg.CreatedAt})
	}
	return rows
}

func newRoomsClaimCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <room-id>",
		Short: "Claim a waiting room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			return ctx.withDesk(func(desk deskAPI) error {
				resp, err := desk.Claim(cmd.Context(), actor, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Claimed {
					fmt.Fprintf(stdout, "Claimed room %s\n", resp.Room.ID)
				} else {
					fmt.Fprintf(stdout, "Room %s already claimed by %s\n", resp.Room.ID, resp.Room.ClaimantID)
				}
				warnOffline(cmd, desk)
				return nil
			})
		},
	}
}

func newRoomsCloseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "close <room-id>",
		Short: "Close a room you have claimed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			return ctx.withDesk(func(desk deskAPI) error {
				id := strings.TrimSpace(args[0])
				closed, err := desk.Close(cmd.Context(), actor, id)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if closed {
					fmt.Fprintf(stdout, "Closed room %s\n", id)
				} else {
					fmt.Fprintf(stdout, "Room %s was already closed\n", id)
				}
				warnOffline(cmd, desk)
				return nil
			})
		},
	}
}

func newRoomsPostCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "post <room-id> <message>",
		Short: "Post a message to a room you have claimed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := ctx.actor()
			if err != nil {
				return err
			}
			content := strings.Join(args[1:], " ")
			if strings.TrimSpace(content) == "" {
				return errors.New("message is empty")
			}
			return ctx.withDesk(func(desk deskAPI) error {
				msg, err := desk.Post(cmd.Context(), actor, strings.TrimSpace(args[0]), content)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Posted message %d to room %s\n", msg.Seq, msg.RoomID)
				warnOffline(cmd, desk)
				return nil
			})
		},
	}
}

func warnOffline(cmd *cobra.Command, desk deskAPI) {
	if desk.Online() {
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "note: daemon not running; change written to the database only")
}

func newNotificationsCommand(ctx *commandContext) *cobra.Command {
	var (
		unread bool
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List staff notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withDesk(func(desk deskAPI) error {
				items, err := desk.Notifications(cmd.Context(), unread, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				stdout := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(stdout, "No notifications")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, n := range items {
					rows = append(rows, []string{n.CreatedAt, n.Kind, n.RoomID, n.Body, yesNo(n.Read)})
				}
				fmt.Fprint(stdout, renderTable([]columnSpec{
					{Header: "At"},
					{Header: "Kind"},
					{Header: "Room"},
					{Header: "Notice", MaxWidth: contentColumnWidth},
					{Header: "Read"},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "Only show unread notifications")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum notifications to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print notifications as JSON")
	return cmd
}
