package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loteknowledG/samus-manus/internal/web"
)

func newWebCmd() *cobra.Command {
	var headful bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Drive a browser: open a page, click, fill, screenshot",
	}
	cmd.PersistentFlags().BoolVar(&headful, "headful", false, "Show the browser window")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "Per-operation timeout")

	session := func(cmd *cobra.Command, fn func(h *web.Hands) error) error {
		h, err := web.New(cmd.Context(), web.Options{Headful: headful, Timeout: timeout})
		if err != nil {
			return err
		}
		defer h.Close()
		return fn(h)
	}

	open := &cobra.Command{
		Use:   "open <url>",
		Short: "Open a URL and print the page text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return session(cmd, func(h *web.Hands) error {
				if err := h.Open(args[0], timeout); err != nil {
					return err
				}
				text, err := h.Text(timeout)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}

	clickText := &cobra.Command{
		Use:   "click-text <url> <text>",
		Short: "Open a URL and click the first element containing text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return session(cmd, func(h *web.Hands) error {
				if err := h.Open(args[0], timeout); err != nil {
					return err
				}
				ok, err := h.ClickText(args[1], timeout)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clicked? %v\n", ok)
				if !ok {
					cmd.SilenceErrors = true
					return fmt.Errorf("no element matched %q", args[1])
				}
				return nil
			})
		},
	}

	click := &cobra.Command{
		Use:   "click <url> <selector>",
		Short: "Open a URL and click a CSS selector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return session(cmd, func(h *web.Hands) error {
				if err := h.Open(args[0], timeout); err != nil {
					return err
				}
				return h.Click(args[1], timeout)
			})
		},
	}

	fill := &cobra.Command{
		Use:   "fill <url> <selector> <value>",
		Short: "Open a URL and fill an input",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return session(cmd, func(h *web.Hands) error {
				if err := h.Open(args[0], timeout); err != nil {
					return err
				}
				return h.Fill(args[1], args[2], timeout)
			})
		},
	}

	var out string
	screenshot := &cobra.Command{
		Use:   "screenshot <url>",
		Short: "Open a URL and save a full-page screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return session(cmd, func(h *web.Hands) error {
				if err := h.Open(args[0], timeout); err != nil {
					return err
				}
				if err := h.Screenshot(out, timeout); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved screenshot: %s\n", out)
				return nil
			})
		},
	}
	screenshot.Flags().StringVar(&out, "out", "webhands.png", "Output PNG path")

	cmd.AddCommand(open, clickText, click, fill, screenshot)
	return cmd
}
