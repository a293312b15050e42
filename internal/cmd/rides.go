package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dukerupert/carpool/internal/api"
	"github.com/dukerupert/carpool/internal/app"
	"github.com/dukerupert/carpool/internal/model"
	"github.com/dukerupert/carpool/internal/session"
)

func (c *cli) navigateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <path>",
		Short: "Go to a route, applying the route guard",
		Long: `Navigate to a client route. The guard may redirect, for example to the
login page when signed out; the final location is printed.

Examples:
  carpool navigate /find-ride
  carpool navigate /admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				loc, err := a.Navigate(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), loc)
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// idCmd builds a command taking a single numeric id argument.
func (c *cli) idCmd(use, short string, fn func(ctx context.Context, cmd *cobra.Command, a *app.App, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				return fn(ctx, cmd, a, id)
			})
		},
	}
}

// userID returns the signed-in user's id or an error when it is unknown.
func userID(a *app.App) (int64, error) {
	p := a.User.Profile()
	if !a.User.Authenticated() || !p.HasID() {
		return 0, session.ErrNotAuthenticated
	}
	return p.ID, nil
}

func (c *cli) ridesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rides",
		Short: "Search, create and manage rides",
	}

	var search model.RideSearch
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search open rides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				page, err := a.API.SearchRides(ctx, search)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), page)
			})
		},
	}
	searchCmd.Flags().StringVar(&search.StartingLocation, "from", "", "pickup location")
	searchCmd.Flags().StringVar(&search.DropoffLocation, "to", "", "drop-off location")
	searchCmd.Flags().StringVar(&search.RequestTime, "time", "", "departure time")
	searchCmd.Flags().IntVar(&search.Seats, "seats", 0, "seats needed")
	searchCmd.Flags().IntVar(&search.Page, "page", 0, "result page")
	searchCmd.Flags().IntVar(&search.Size, "size", 0, "results per page")

	var (
		from, to, when string
		seats          int
		fare           float64
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Offer a ride as the signed-in driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				r := model.CreateRide{
					StartingLocation: model.Place{Name: from},
					DropoffLocation:  model.Place{Name: to},
					RequestTime:      when,
					Fare:             fare,
				}
				if id, err := userID(a); err == nil {
					r.DriverID = strconv.FormatInt(id, 10)
				}
				if seats > 0 {
					r.PassengerCount = strconv.Itoa(seats)
				}
				ride, err := a.API.CreateRide(ctx, r)
				if err != nil {
					var fe *api.FieldError
					if errors.As(err, &fe) && fe.Field == "driverID" {
						return fmt.Errorf("sign in as a driver first: %w", err)
					}
					return err
				}
				return printJSON(cmd.OutOrStdout(), ride)
			})
		},
	}
	createCmd.Flags().StringVar(&from, "from", "", "pickup location")
	createCmd.Flags().StringVar(&to, "to", "", "drop-off location")
	createCmd.Flags().StringVar(&when, "time", "", "departure time")
	createCmd.Flags().IntVar(&seats, "seats", 0, "seats offered")
	createCmd.Flags().Float64Var(&fare, "fare", 0, "fare per seat")

	show := c.idCmd("show", "Show a ride with its driver details", func(ctx context.Context, cmd *cobra.Command, a *app.App, id int64) error {
		ride, err := a.API.RideDetails(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), ride)
	})

	var histPage, histSize int
	history := &cobra.Command{
		Use:   "history",
		Short: "List the signed-in user's past rides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				page, err := a.API.RideHistory(ctx, histPage, histSize)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), page)
			})
		},
	}
	history.Flags().IntVar(&histPage, "page", 0, "result page")
	history.Flags().IntVar(&histSize, "size", 0, "results per page")

	var reqSeats int
	request := c.idCmd("request", "Ask to join a ride", func(ctx context.Context, cmd *cobra.Command, a *app.App, id int64) error {
		req := model.RideRequest{RideID: id, Seats: reqSeats}
		if uid, err := userID(a); err == nil {
			req.PassengerID = uid
		}
		out, err := a.API.RequestRide(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	})
	request.Flags().IntVar(&reqSeats, "seats", 1, "seats requested")

	cancel := c.idCmd("cancel", "Cancel a ride", func(ctx context.Context, _ *cobra.Command, a *app.App, id int64) error {
		return a.API.CancelRide(ctx, id)
	})
	complete := c.idCmd("complete", "Mark a ride completed", func(ctx context.Context, _ *cobra.Command, a *app.App, id int64) error {
		return a.API.CompleteRide(ctx, id)
	})

	cmd.AddCommand(searchCmd, createCmd, show, history, request, cancel, complete)
	return cmd
}

func (c *cli) requestsCmd() *cobra.Command {
	var asDriver bool
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List ride requests, or approve and reject them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				id, err := userID(a)
				if err != nil {
					return err
				}
				var reqs []model.RideRequest
				if asDriver || a.User.Role() == model.RoleDriver {
					reqs, err = a.API.DriverRequests(ctx, id)
				} else {
					reqs, err = a.API.PassengerRequests(ctx, id)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), reqs)
			})
		},
	}
	cmd.Flags().BoolVar(&asDriver, "driver", false, "list requests for rides you drive")

	cmd.AddCommand(
		c.idCmd("approve", "Approve a ride request", func(ctx context.Context, _ *cobra.Command, a *app.App, id int64) error {
			return a.API.ApproveRequest(ctx, id)
		}),
		c.idCmd("reject", "Reject a ride request", func(ctx context.Context, _ *cobra.Command, a *app.App, id int64) error {
			return a.API.RejectRequest(ctx, id)
		}),
	)
	return cmd
}
