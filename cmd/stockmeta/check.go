package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/stockmeta/internal/output"
	"github.com/jackzampolin/stockmeta/internal/providers"
	"github.com/jackzampolin/stockmeta/internal/svcctx"
)

var (
	checkAPIKey   string
	checkProvider string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the API key against the provider",
	Long: `Check makes a lightweight authenticated request to the selected provider.
Overload and rate-limit responses are retried a few times before giving up.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setupServices(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		cfg := svcctx.ConfigFrom(ctx)
		name := checkProvider
		if name == "" {
			name = cfg.Provider
		}
		client, err := visionClient(ctx, name)
		if err != nil {
			return err
		}

		err = providers.CheckCredential(ctx, client, cfg.CredentialFor(name, checkAPIKey), providers.CheckOptions{
			OnRetry: func(attempt uint, err error) {
				svcctx.LoggerFrom(ctx).Warn("credential check failed, retrying", "attempt", attempt+1, "error", err)
			},
		})
		result := map[string]any{"provider": name, "ok": err == nil}
		if err != nil {
			result["error"] = err.Error()
		}
		if output.IsStructured() {
			if perr := output.Print(result); perr != nil {
				return perr
			}
			return err
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key OK for %s\n", name)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkAPIKey, "api-key", "", "API key (default: config api_key or STOCKMETA_API_KEY)")
	checkCmd.Flags().StringVar(&checkProvider, "provider", "", "provider to check (default: config provider)")
	rootCmd.AddCommand(checkCmd)
}
