package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/carpool/internal/app"
	"github.com/dukerupert/carpool/internal/model"
)

func (c *cli) loginCmd() *cobra.Command {
	var creds model.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a user, admin or donor",
		Long: `Sign in and keep the session for later commands.

Examples:
  carpool login --email jane@example.com --password secret
  carpool login --admin --email root@example.com --password secret
  carpool login --donor --email dee@example.com --password secret`,
		Args: cobra.NoArgs,
	}
	store := audienceFlags(cmd)
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return c.with(cmd, func(ctx context.Context, a *app.App) error {
			s := store(a)
			if !s.Login(ctx, creds) {
				return errors.New(s.LastError())
			}
			fmt.Fprintln(cmd.OutOrStdout(), describe(s))
			fmt.Fprintf(cmd.OutOrStdout(), "at %s\n", a.Navigator.CurrentPath())
			return nil
		})
	}
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out of a session",
		Args:  cobra.NoArgs,
	}
	store := audienceFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return c.with(cmd, func(ctx context.Context, a *app.App) error {
			store(a).Logout(ctx)
			return nil
		})
	}
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a passenger, driver or donor account",
	}

	var p model.PassengerRegistration
	passenger := &cobra.Command{
		Use:   "passenger",
		Short: "Register a passenger account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				profile, err := a.API.RegisterPassenger(ctx, p)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), profile)
			})
		},
	}
	registrationFlags(passenger, &p)

	var d model.DriverRegistration
	driver := &cobra.Command{
		Use:   "driver",
		Short: "Register a driver account, pending admin approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				profile, err := a.API.RegisterDriver(ctx, d)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), profile)
			})
		},
	}
	registrationFlags(driver, &d.PassengerRegistration)
	driver.Flags().StringVar(&d.LicenseNumber, "license", "", "driving license number")
	driver.Flags().StringVar(&d.CarNumber, "car-number", "", "vehicle plate")
	driver.Flags().StringVar(&d.CarType, "car-type", "", "vehicle make and model")
	driver.Flags().StringVar(&d.CarColour, "car-colour", "", "vehicle colour")

	var r model.DonorRegistration
	donor := &cobra.Command{
		Use:   "donor",
		Short: "Register a donor account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				if !a.Donor.Register(ctx, r) {
					return errors.New(a.Donor.LastError())
				}
				fmt.Fprintln(cmd.OutOrStdout(), describe(a.Donor))
				return nil
			})
		},
	}
	donor.Flags().StringVar(&r.Name, "name", "", "full name")
	donor.Flags().StringVar(&r.Email, "email", "", "account email")
	donor.Flags().StringVar(&r.Phone, "phone", "", "phone number")
	donor.Flags().StringVar(&r.Password, "password", "", "account password")

	cmd.AddCommand(passenger, driver, donor)
	return cmd
}

func registrationFlags(cmd *cobra.Command, p *model.PassengerRegistration) {
	cmd.Flags().StringVar(&p.Name, "name", "", "full name")
	cmd.Flags().StringVar(&p.Email, "email", "", "account email")
	cmd.Flags().StringVar(&p.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&p.Password, "password", "", "account password")
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the three sessions and the current route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, describe(a.User))
				fmt.Fprintln(out, describe(a.Admin))
				fmt.Fprintln(out, describe(a.Donor))
				fmt.Fprintf(out, "route  %s\n", a.Navigator.Current())
				return nil
			})
		},
	}
}

func (c *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.User.FetchProfile(ctx); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), a.User.Profile())
			})
		},
	}

	var upd model.ProfileUpdate
	update := &cobra.Command{
		Use:   "update",
		Short: "Change name, email or phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.User.UpdateProfile(ctx, upd); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), a.User.Profile())
			})
		},
	}
	update.Flags().StringVar(&upd.Name, "name", "", "new name")
	update.Flags().StringVar(&upd.Email, "email", "", "new email")
	update.Flags().StringVar(&upd.Phone, "phone", "", "new phone number")

	var oldPassword, newPassword string
	password := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, a *app.App) error {
				if res := a.User.ChangePassword(ctx, oldPassword, newPassword); !res.Success {
					return errors.New(res.Error)
				}
				return nil
			})
		},
	}
	password.Flags().StringVar(&oldPassword, "old", "", "current password")
	password.Flags().StringVar(&newPassword, "new", "", "new password")
	password.MarkFlagRequired("old")
	password.MarkFlagRequired("new")

	cmd.AddCommand(update, password)
	return cmd
}
