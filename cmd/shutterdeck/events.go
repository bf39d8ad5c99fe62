package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	shutterdeck "github.com/shutterdeck/go-client-sdk"
	"github.com/shutterdeck/go-client-sdk/api"
)

func newEventsCommand(flags *globalFlags) *cobra.Command {
	var (
		refetchPath string
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow the realtime event stream",
		Long: `Connect to the event stream and print every event until interrupted.
With --refetch, a burst of events triggers one GET of the given path.`,
		Example: `  SHUTTERDECK_PASSWORD=... shutterdeck events --email mara@studio.test
  shutterdeck events --refetch /collections --debounce 750ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithCancelCause(ctx)
			defer cancel(nil)

			options, err := flags.options(cmd)
			if err != nil {
				return err
			}
			options.ClientEventHandler = make(chan api.ClientEvent, 64)
			options.OnUnauthenticated = func() {
				cancel(shutterdeck.ErrUnauthenticated)
			}

			client, err := flags.newClient(cmd, options)
			if err != nil {
				return err
			}
			defer client.Close()

			out := &syncWriter{w: cmd.OutOrStdout()}
			if flags.email == "" {
				if profile, err := client.Bootstrap(ctx); err != nil {
					out.println(renderWarning("no verified session: " + err.Error()))
				} else {
					out.println(renderProfile(profile, false))
				}
			}

			var refetch *shutterdeck.Debouncer
			if refetchPath != "" {
				refetch = shutterdeck.NewDebouncer(debounce, func() {
					resp, err := client.Gateway().Get(ctx, refetchPath)
					if err != nil {
						out.println(renderError(fmt.Errorf("refetch %s: %w", refetchPath, err)))
						return
					}
					out.println(renderRefetch(refetchPath, resp.StatusCode, len(resp.Body)))
				})
				defer refetch.Stop()
			}

			onEvent := func(e api.Envelope) {
				out.println(renderEnvelope(e))
				if refetch != nil {
					refetch.Trigger()
				}
			}
			unsubscribe := client.Subscribe(shutterdeck.EventHandlers{
				OnPhotoEvent:      onEvent,
				OnCollectionEvent: onEvent,
				OnClientEvent:     onEvent,
				OnGuestEvent:      onEvent,
				OnConnected: func() {
					out.println(renderStatus("connected", true))
				},
				OnError: func(err error) {
					cancel(err)
				},
			})
			defer unsubscribe()

			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case event := <-options.ClientEventHandler:
						if line := renderClientEvent(event); line != "" {
							out.println(line)
						}
					}
				}
			}()

			client.Connect()
			<-ctx.Done()
			client.Disconnect()

			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				return cause
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&refetchPath, "refetch", "", "GET this path after each burst of events")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a refetch")

	return cmd
}

// syncWriter serializes lines written from handler goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}
