package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dukerupert/carpool/internal/app"
	"github.com/dukerupert/carpool/internal/model"
	"github.com/dukerupert/carpool/internal/session"
)

func (c *cli) notificationsCmd() *cobra.Command {
	var (
		unread     bool
		page, size int
	)
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.API.Notifications(ctx, unread, page, size)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread notifications")
	cmd.Flags().IntVar(&page, "page", 0, "result page")
	cmd.Flags().IntVar(&size, "size", 0, "results per page")

	cmd.AddCommand(
		c.idCmd("read", "Mark a notification read", func(ctx context.Context, _ *cobra.Command, a *app.App, id int64) error {
			return a.API.MarkRead(ctx, id)
		}),
		&cobra.Command{
			Use:   "read-all",
			Short: "Mark every notification read",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.with(cmd, func(ctx context.Context, a *app.App) error {
					n, err := a.API.MarkAllRead(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), map[string]int{"count": n})
				})
			},
		},
	)
	return cmd
}

func (c *cli) donateCmd() *cobra.Command {
	var d model.NewDonation
	var method string
	cmd := &cobra.Command{
		Use:   "donate",
		Short: "Donate to a driver as the signed-in donor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				donor := a.Donor.Profile()
				if !a.Donor.Authenticated() || !donor.HasID() {
					return session.ErrNotAuthenticated
				}
				d.DonorID = donor.ID
				d.PaymentMethod = model.PaymentMethod(method)
				out, err := a.API.Donate(ctx, d)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().Int64Var(&d.UserID, "to", 0, "recipient user id")
	cmd.Flags().Float64Var(&d.Amount, "amount", 0, "amount")
	cmd.Flags().StringVar(&method, "method", "", "stripe or paypal (default stripe)")
	cmd.Flags().StringVar(&d.Description, "note", "", "description")

	var (
		page, size int
		asDonor    bool
	)
	history := &cobra.Command{
		Use:   "history",
		Short: "List donations made (--donor) or received",
		Args:  cobra.NoArgs,
	}
	history.Flags().BoolVar(&asDonor, "donor", false, "list donations made by the donor session")
	history.Flags().IntVar(&page, "page", 0, "result page")
	history.Flags().IntVar(&size, "size", 0, "results per page")
	history.RunE = func(cmd *cobra.Command, args []string) error {
		return c.with(cmd, func(ctx context.Context, a *app.App) error {
			var (
				out *model.DonationPage
				err error
			)
			if asDonor {
				out, err = a.API.DonationsMade(ctx, page, size)
			} else {
				out, err = a.API.DonationsReceived(ctx, page, size)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		})
	}

	cmd.AddCommand(history)
	return cmd
}

func (c *cli) chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ride chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				id, err := userID(a)
				if err != nil {
					return err
				}
				chats, err := a.API.UserChats(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), chats)
			})
		},
	}

	show := c.idCmd("show", "Show the messages of a chat", func(ctx context.Context, cmd *cobra.Command, a *app.App, id int64) error {
		msgs, err := a.API.Messages(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), msgs)
	})

	send := &cobra.Command{
		Use:   "send <chat-id> <message>",
		Short: "Send a chat message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				msg, err := a.API.SendMessage(ctx, id, args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), msg)
			})
		},
	}

	var passenger int64
	open := c.idCmd("open", "Show the chat for a ride, or create one with --passenger", func(ctx context.Context, cmd *cobra.Command, a *app.App, rideID int64) error {
		if passenger == 0 {
			chat, err := a.API.ChatForRide(ctx, rideID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), chat)
		}
		chat, err := a.API.CreateChat(ctx, model.NewChat{RideID: rideID, PassengerID: passenger})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), chat)
	})
	open.Flags().Int64Var(&passenger, "passenger", 0, "create a chat with this passenger")

	cmd.AddCommand(show, send, open)
	return cmd
}
