package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/stockmeta/internal/llmcall"
	"github.com/jackzampolin/stockmeta/internal/metrics"
	"github.com/jackzampolin/stockmeta/internal/output"
	"github.com/jackzampolin/stockmeta/internal/svcctx"
)

var (
	callsBatch    string
	callsImage    string
	callsFailed   bool
	callsLimit    int
	callsSince    time.Duration
	callsProvider string
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect the log of inference calls",
	Long: `Every inference attempt, including retried 503s, is appended to
~/.stockmeta/logs/calls.jsonl. These commands read that log.`,
}

func callsFilter() llmcall.QueryFilter {
	f := llmcall.QueryFilter{
		BatchID:  callsBatch,
		ImageID:  callsImage,
		Provider: callsProvider,
		Limit:    callsLimit,
	}
	if callsFailed {
		failed := false
		f.Success = &failed
	}
	if callsSince > 0 {
		after := time.Now().Add(-callsSince)
		f.After = &after
	}
	return f
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded calls, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setupServices(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		calls, err := svcctx.CallStoreFrom(ctx).List(callsFilter())
		if err != nil {
			return err
		}
		if output.IsStructured() {
			return output.Print(calls)
		}
		w := cmd.OutOrStdout()
		for _, c := range calls {
			status := "ok"
			if !c.Success {
				status = fmt.Sprintf("failed (%d)", c.StatusCode)
			}
			fmt.Fprintf(w, "%s  %s  %-24s attempt %d  %5dms  %s\n",
				c.Timestamp.Local().Format(time.DateTime), shortID(c.ID), c.ImageName, c.Attempt, c.LatencyMs, status)
		}
		fmt.Fprintf(w, "%d calls\n", len(calls))
		return nil
	},
}

var callsGetCmd = &cobra.Command{
	Use:   "get <call-id>",
	Short: "Show one recorded call including the raw response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setupServices(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		call, err := svcctx.CallStoreFrom(ctx).Get(args[0])
		if err != nil {
			return err
		}
		if call == nil {
			return fmt.Errorf("call not found: %s", args[0])
		}
		return output.Print(call)
	},
}

var callsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize token usage, latency and estimated cost",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setupServices(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		pricing, err := metrics.ParsePricing(svcctx.ConfigFrom(ctx).PricingTable())
		if err != nil {
			return err
		}
		f := callsFilter()
		f.Limit = 0
		calls, err := svcctx.CallStoreFrom(ctx).List(f)
		if err != nil {
			return err
		}
		summary := metrics.Summarize(calls, pricing)
		if output.IsStructured() {
			return output.Print(summary)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Calls:      %d (%d ok, %d failed, %d overloaded)\n",
			summary.Count, summary.SuccessCount, summary.ErrorCount, summary.Overloaded)
		fmt.Fprintf(w, "Images:     %d\n", summary.Images)
		fmt.Fprintf(w, "Tokens:     %d in, %d out\n", summary.InputTokens, summary.OutputTokens)
		fmt.Fprintf(w, "Latency:    avg %.0fms, p95 %.0fms, max %.0fms\n",
			summary.LatencyAvg, summary.LatencyP95, summary.LatencyMax)
		fmt.Fprintf(w, "Est. cost:  $%s\n", summary.CostUSD.StringFixed(4))
		for _, m := range summary.UnpricedModels {
			fmt.Fprintf(w, "  no pricing configured for %s\n", m)
		}
		return nil
	},
}

func init() {
	pf := callsCmd.PersistentFlags()
	pf.StringVar(&callsBatch, "batch", "", "only calls from this batch ID")
	pf.StringVar(&callsImage, "image", "", "only calls for this image ID")
	pf.StringVar(&callsProvider, "provider", "", "only calls to this provider")
	pf.BoolVar(&callsFailed, "failed", false, "only failed calls")
	pf.DurationVar(&callsSince, "since", 0, "only calls newer than this, e.g. 24h")
	callsListCmd.Flags().IntVar(&callsLimit, "limit", 50, "maximum calls to list (0 for all)")

	callsCmd.AddCommand(callsListCmd, callsGetCmd, callsSummaryCmd)
	rootCmd.AddCommand(callsCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
