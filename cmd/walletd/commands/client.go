package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	sessionhttp "github.com/x402-foundation/walletsession/http"
)

type clientFlags struct {
	url     string
	timeout time.Duration
	json    bool
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", sessionhttp.DefaultClientURL, "walletd base URL")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "request timeout")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the raw session response")
}

func statusCmd() *cobra.Command {
	return clientCmd("status", "Print the session of a running daemon", (*sessionhttp.Client).Status)
}

func connectCmd() *cobra.Command {
	return clientCmd("connect", "Ask a running daemon to connect its wallet", (*sessionhttp.Client).Connect)
}

func disconnectCmd() *cobra.Command {
	return clientCmd("disconnect", "Ask a running daemon to disconnect", (*sessionhttp.Client).Disconnect)
}

func clientCmd(use, short string, call func(*sessionhttp.Client, context.Context) (sessionhttp.SessionResponse, error)) *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := sessionhttp.NewClient(&sessionhttp.ClientConfig{URL: flags.url, Timeout: flags.timeout})

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			resp, callErr := call(client, ctx)
			if resp.Session.ID == "" && callErr != nil {
				return callErr
			}

			out := cmd.OutOrStdout()
			if flags.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, resp.Status.String())
			}
			return callErr
		},
	}
	flags.register(cmd)
	return cmd
}
