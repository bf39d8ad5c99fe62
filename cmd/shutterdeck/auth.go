package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newVerifyCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-validate the session and refresh the cached profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := flags.options(cmd)
			if err != nil {
				return err
			}
			options.DisableRealtimeUpdates = true
			client, err := flags.newClient(cmd, options)
			if err != nil {
				return err
			}
			defer client.Close()

			profile, err := client.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			mustChange, err := client.MustChangePassword(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProfile(profile, mustChange))
			return nil
		},
	}
}

func newLoginCommand(flags *globalFlags) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Sign in and cache the profile",
		Example: `  SHUTTERDECK_PASSWORD=... shutterdeck login --user mara@studio.test --session-db ~/.shutterdeck.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("SHUTTERDECK_PASSWORD")
			if password == "" {
				return fmt.Errorf("SHUTTERDECK_PASSWORD is not set")
			}
			options, err := flags.options(cmd)
			if err != nil {
				return err
			}
			options.DisableRealtimeUpdates = true
			// Login itself signs in; skip the generic --email pre-login.
			flags.email = ""
			client, err := flags.newClient(cmd, options)
			if err != nil {
				return err
			}
			defer client.Close()
			return signIn(cmd.Context(), client, email, password, cmd)
		},
	}

	cmd.Flags().StringVar(&email, "user", "", "Account email")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newLogoutCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear the cached profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := flags.options(cmd)
			if err != nil {
				return err
			}
			options.DisableRealtimeUpdates = true
			client, err := flags.newClient(cmd, options)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Logout(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderWarning("server logout failed, local session cleared: "+err.Error()))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus("signed out", true))
			return nil
		},
	}
}

func newSessionCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the cached profile without contacting the server",
		Long: `Print the profile cached by the last login or verify. The cache is advisory;
run 'shutterdeck verify' to confirm it with the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := flags.options(cmd)
			if err != nil {
				return err
			}
			if options.SessionStorePath == "" {
				return fmt.Errorf("--session-db is required to read a cached session")
			}
			options.DisableRealtimeUpdates = true
			flags.email = ""
			client, err := flags.newClient(cmd, options)
			if err != nil {
				return err
			}
			defer client.Close()

			profile, err := client.Profile(cmd.Context())
			if err != nil {
				return err
			}
			if profile == nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderWarning("no cached session"))
				return nil
			}
			mustChange, err := client.MustChangePassword(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProfile(profile, mustChange))
			return nil
		},
	}
}
