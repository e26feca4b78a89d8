package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pptgen/internal/apiclient"
	"pptgen/internal/connectivity"
)

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get PATH",
		Short: "Send a GET request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			out := apiclient.Get[json.RawMessage](cmd.Context(), c, args[0], opts.callOptions(cmd)...)
			return printOutcome(cmd.OutOrStdout(), out)
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete PATH",
		Short: "Send a DELETE request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			out := apiclient.Delete[json.RawMessage](cmd.Context(), c, args[0], opts.callOptions(cmd)...)
			return printOutcome(cmd.OutOrStdout(), out)
		},
	}
}

// newBodyCmd builds the post and put commands, which send a JSON body.
func newBodyCmd(opts *options, verb string) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   verb + " PATH",
		Short: fmt.Sprintf("Send a %s request with a JSON body", strings.ToUpper(verb)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(data)
			if err != nil {
				return err
			}
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			method := http.MethodPost
			if verb == "put" {
				method = http.MethodPut
			}
			out := apiclient.Do[json.RawMessage](cmd.Context(), c, method, args[0], body, opts.callOptions(cmd)...)
			return printOutcome(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body, or @file to read it from a file")
	return cmd
}

// readBody returns the JSON body given inline or as @file; empty means no body.
func readBody(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	raw := []byte(data)
	if name, ok := strings.CutPrefix(data, "@"); ok {
		b, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		raw = b
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func newUploadCmd(opts *options) *cobra.Command {
	var (
		files  []string
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "upload PATH",
		Short: "Send a multipart/form-data POST request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := buildForm(files, fields)
			if err != nil {
				return err
			}
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			out := apiclient.PostForm[json.RawMessage](cmd.Context(), c, args[0], form, opts.callOptions(cmd)...)
			return printOutcome(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "file part as field=path (repeatable)")
	cmd.Flags().StringArrayVarP(&fields, "field", "F", nil, "text part as name=value (repeatable)")
	return cmd
}

func buildForm(files, fields []string) (*apiclient.Form, error) {
	if len(files) == 0 && len(fields) == 0 {
		return nil, fmt.Errorf("upload needs at least one --file or --field")
	}
	form := apiclient.NewForm()
	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q, want name=value", f)
		}
		form.AddField(name, value)
	}
	for _, f := range files {
		field, path, ok := strings.Cut(f, "=")
		if !ok || field == "" || path == "" {
			return nil, fmt.Errorf("invalid file %q, want field=path", f)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read upload file: %w", err)
		}
		form.AddFile(field, filepath.Base(path), data)
	}
	return form, nil
}

// newHealthCmd probes the backend once and prints the connectivity snapshot.
func newHealthCmd(opts *options) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the backend health endpoint once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			mc := cfg.Monitor.Connectivity
			if opts.baseURL != "" || path != "" {
				mc.HealthURL = connectivity.HealthURL(cfg.Clients.Default.BaseURL, path)
			}
			if opts.timeout > 0 {
				mc.ProbeTimeout = opts.timeout
			}

			monitor, err := connectivity.New(mc, connectivity.WithLogger(opts.logger))
			if err != nil {
				return err
			}
			ok := monitor.Check(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(struct {
				HealthURL string `json:"health_url"`
				Reachable bool   `json:"reachable"`
				connectivity.Status
			}{mc.HealthURL, ok, monitor.Status()}); err != nil {
				return fmt.Errorf("encode status: %w", err)
			}
			if !ok {
				return fmt.Errorf("backend unreachable at %s", mc.HealthURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "health path relative to the base URL (default /health)")
	return cmd
}
