package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	shutterdeck "github.com/shutterdeck/go-client-sdk"
	"github.com/shutterdeck/go-client-sdk/api"
)

var Version = "dev" // Overridden by ldflags

// globalFlags are shared by every subcommand.
type globalFlags struct {
	apiURL     string
	configPath string
	sessionDB  string
	logLevel   string
	email      string
}

func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "shutterdeck",
		Short: "Talk to a Shutterdeck studio backend",
		Long: `shutterdeck exercises the Shutterdeck client: authenticated requests with
automatic session refresh, and the realtime event stream.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.apiURL, "api", "", "API base URL (default http://localhost:3001/api)")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML options file")
	rootCmd.PersistentFlags().StringVar(&flags.sessionDB, "session-db", "", "SQLite file for the cached session profile")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flags.email, "email", "", "Sign in with this email before running the command (password from $SHUTTERDECK_PASSWORD)")

	rootCmd.AddCommand(newEventsCommand(flags))
	rootCmd.AddCommand(newRequestCommand(flags))
	rootCmd.AddCommand(newVerifyCommand(flags))
	rootCmd.AddCommand(newLoginCommand(flags))
	rootCmd.AddCommand(newLogoutCommand(flags))
	rootCmd.AddCommand(newSessionCommand(flags))

	return rootCmd
}

// options merges the YAML file, if any, with flags that were set explicitly.
func (f *globalFlags) options(cmd *cobra.Command) (*shutterdeck.Options, error) {
	options := &shutterdeck.Options{}
	if f.configPath != "" {
		loaded, err := shutterdeck.LoadOptionsFile(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		options = loaded
	}
	if cmd.Flags().Changed("api") {
		options.APIBaseURI = f.apiURL
	}
	if cmd.Flags().Changed("session-db") {
		options.SessionStorePath = f.sessionDB
	}
	if cmd.Flags().Changed("log-level") {
		options.LogLevel = f.logLevel
	}
	if options.LogLevel == "" {
		options.LogLevel = "warn"
	}
	return options, nil
}

// newClient builds a client and, when --email was given, signs in first so
// the cookie jar carries a session for the rest of the command.
func (f *globalFlags) newClient(cmd *cobra.Command, options *shutterdeck.Options) (*shutterdeck.Client, error) {
	client, err := shutterdeck.NewClient(options)
	if err != nil {
		return nil, err
	}
	if f.email != "" {
		if err := signIn(cmd.Context(), client, f.email, os.Getenv("SHUTTERDECK_PASSWORD"), cmd); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

func signIn(ctx context.Context, client *shutterdeck.Client, email, password string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	auth, err := client.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderProfile(auth.User, auth.MustChangePassword))
	return nil
}
