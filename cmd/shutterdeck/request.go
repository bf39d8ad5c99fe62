package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	shutterdeck "github.com/shutterdeck/go-client-sdk"
)

func newRequestCommand(flags *globalFlags) *cobra.Command {
	var (
		data    string
		headers []string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send one request through the authenticated gateway",
		Example: `  shutterdeck request GET /collections
  shutterdeck request POST /collections --data '{"name":"Wedding"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := flags.options(cmd)
			if err != nil {
				return err
			}
			options.DisableRealtimeUpdates = true
			if verbose {
				options.RequestHooks = append(options.RequestHooks, traceHook(cmd.ErrOrStderr()))
			}
			client, err := flags.newClient(cmd, options)
			if err != nil {
				return err
			}
			defer client.Close()

			req, err := buildRequest(args[0], args[1], data, headers)
			if err != nil {
				return err
			}
			resp, err := client.Gateway().Do(cmd.Context(), req)
			if resp != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderResponse(resp))
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Trace every request with its id and duration")

	return cmd
}

// traceHook prints one line per logical request, replays included in its duration.
func traceHook(w io.Writer) *shutterdeck.RequestHook {
	return shutterdeck.NewRequestHook(
		nil,
		nil,
		func(context *shutterdeck.HookContext, response *shutterdeck.Response) error {
			status := "no response"
			if response != nil {
				status = response.Status
			}
			_, err := fmt.Fprintln(w, renderTrace(context.Method, context.Path, context.RequestID, status, context.Elapsed()))
			return err
		},
		nil,
	)
}

func buildRequest(method, path, data string, headers []string) (*shutterdeck.Request, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	var body interface{}
	if data != "" {
		if !json.Valid([]byte(data)) {
			return nil, fmt.Errorf("--data is not valid JSON")
		}
		body = json.RawMessage(data)
	}
	req := shutterdeck.NewRequest(method, path, body)
	if len(headers) > 0 {
		req.Header = http.Header{}
		for _, h := range headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				return nil, fmt.Errorf("malformed header %q", h)
			}
			req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		if req.Header == nil {
			req.Header = http.Header{}
		}
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
