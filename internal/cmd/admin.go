package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dukerupert/carpool/internal/api"
	"github.com/dukerupert/carpool/internal/app"
	"github.com/dukerupert/carpool/internal/model"
)

func (c *cli) driversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "Review driver registrations (admin)",
	}

	var (
		status string
		q      api.DriverQuery
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List drivers by verification status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				q.Status = model.VerificationStatus(status)
				page, err := a.API.ListDrivers(ctx, q)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), page)
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "pending, approved or rejected (server default pending)")
	list.Flags().IntVar(&q.Page, "page", 0, "result page")
	list.Flags().IntVar(&q.PerPage, "per-page", 0, "results per page")

	setStatus := func(use, short string, s model.VerificationStatus) *cobra.Command {
		return c.idCmd(use, short, func(ctx context.Context, _ *cobra.Command, a *app.App, id int64) error {
			return a.API.SetDriverStatus(ctx, id, s)
		})
	}

	cmd.AddCommand(
		list,
		setStatus("approve", "Approve a driver", model.VerificationApproved),
		setStatus("reject", "Reject a driver", model.VerificationRejected),
	)
	return cmd
}

func (c *cli) feedbackCmd() *cobra.Command {
	var fb model.NewFeedback
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Report an issue with a ride",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				id, err := a.API.SubmitFeedback(ctx, fb)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int64{"feedback_id": id})
			})
		},
	}
	cmd.Flags().Int64Var(&fb.RideID, "ride", 0, "ride id")
	cmd.Flags().StringVar(&fb.IssueType, "type", "", "issue type")
	cmd.Flags().StringVar(&fb.Comments, "comments", "", "details")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List submitted feedback (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				feedbacks, err := a.API.AdminFeedbacks(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), feedbacks)
			})
		},
	})
	return cmd
}
