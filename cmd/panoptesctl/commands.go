package main

import (
	"context"
	"fmt"
	"time"

	"github.com/EternisAI/panoptes/internal/health"
	"github.com/spf13/cobra"
)

var (
	rangeKey      string
	customerLimit int
	showToken     bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange the partner credentials for an access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout())
		defer cancel()

		tok, err := p.tokens.EnsureValidToken(ctx, cliPrincipal)
		if err != nil {
			return err
		}
		rec, _ := p.store.Get(cliPrincipal)
		status := rec.Status(time.Now())
		if !showToken {
			tok = ""
		}
		return renderToken(cmd.OutOrStdout(), outputFormat(), status, tok)
	},
}

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List customers visible to the partner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout())
		defer cancel()

		raw, err := p.client.Customers(ctx, cliPrincipal, customerLimit)
		if err != nil {
			return err
		}
		return renderRaw(cmd.OutOrStdout(), outputFormat(), raw)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health <customer-id> <location-id>",
	Short: "Run a full health check for a location",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout())
		defer cancel()

		report, err := p.reports.LocationHealth(ctx, cliPrincipal, args[0], args[1])
		if err != nil {
			return err
		}
		return renderHealth(cmd.OutOrStdout(), outputFormat(), report)
	},
}

var wanCmd = &cobra.Command{
	Use:   "wan <customer-id> <location-id>",
	Short: "Summarize WAN consumption for a location",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := health.ParseTimeRange(rangeKey)
		if err != nil {
			return err
		}
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout())
		defer cancel()

		report, err := p.reports.WanConsumption(ctx, cliPrincipal, args[0], args[1], r)
		if err != nil {
			return err
		}
		return renderWan(cmd.OutOrStdout(), outputFormat(), report)
	},
}

var onlineCmd = &cobra.Command{
	Use:   "online <customer-id> <location-id>",
	Short: "Show uptime and incidents for a location",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := health.ParseTimeRange(rangeKey)
		if err != nil {
			return err
		}
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout())
		defer cancel()

		report, err := p.reports.OnlineStats(ctx, cliPrincipal, args[0], args[1], r)
		if err != nil {
			return err
		}
		return renderOnline(cmd.OutOrStdout(), outputFormat(), report)
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&showToken, "show-token", false, "print the access token itself")
	customersCmd.Flags().IntVar(&customerLimit, "limit", 10, "maximum number of customers")

	rangeHelp := fmt.Sprintf("time range: %v", health.TimeRangeKeys())
	wanCmd.Flags().StringVar(&rangeKey, "range", health.DefaultTimeRange, rangeHelp)
	onlineCmd.Flags().StringVar(&rangeKey, "range", health.DefaultTimeRange, rangeHelp)
}
