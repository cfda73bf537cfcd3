package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/EternisAI/panoptes/internal/credentials"
	"github.com/EternisAI/panoptes/internal/plume"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/EternisAI/panoptes/internal/token"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ExitCodeSuccess       = 0
	ExitCodeError         = 1
	ExitCodeNotConfigured = 2
	ExitCodeUpstream      = 3
)

// The CLI acts for a single local principal.
const cliPrincipal = "cli"

var rootCmd = &cobra.Command{
	Use:   "panoptesctl",
	Short: "Query Plume Cloud locations from the command line",
	Long: `panoptesctl exchanges Plume partner credentials for an access token and
runs location health, WAN consumption and uptime reports in-process.

Credentials come from flags or the PLUME_AUTH_HEADER and PLUME_PARTNER_ID
environment variables (a .env file is honoured).

Examples:
  panoptesctl token
  panoptesctl health <customer-id> <location-id>
  panoptesctl wan <customer-id> <location-id> --range 7d -o json`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initCLI,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("auth-header", "", "Authorization header for the Plume SSO token endpoint")
	flags.String("partner-id", "", "Plume partner id")
	flags.String("sso-endpoint", plume.DefaultSSOEndpoint, "Plume SSO token endpoint")
	flags.String("api-base", plume.DefaultAPIBase, "Plume API base URL")
	flags.String("reports-base", "", "Plume reports API base URL (defaults to the API base)")
	flags.Duration("timeout", plume.DefaultRequestTimeout, "timeout for each upstream request")
	flags.StringP("output", "o", string(OutputFormatTable), "output format: table, json or yaml")
	flags.String("log-level", "WARNING", "log level: ERROR, WARNING, INFO or DEBUG")

	for _, name := range []string{"auth-header", "partner-id", "sso-endpoint", "api-base", "reports-base", "timeout", "output", "log-level"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
	_ = viper.BindEnv("auth-header", "PLUME_AUTH_HEADER")
	_ = viper.BindEnv("partner-id", "PLUME_PARTNER_ID")
	_ = viper.BindEnv("sso-endpoint", "PLUME_SSO_ENDPOINT")
	_ = viper.BindEnv("api-base", "PLUME_API_BASE")
	_ = viper.BindEnv("reports-base", "PLUME_REPORTS_BASE")

	rootCmd.AddCommand(tokenCmd, customersCmd, healthCmd, wanCmd, onlineCmd)
}

func initCLI(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	var level slog.Level
	switch strings.ToUpper(viper.GetString("log-level")) {
	case "ERROR":
		level = slog.LevelError
	case "INFO":
		level = slog.LevelInfo
	case "DEBUG":
		level = slog.LevelDebug
	default:
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return ValidateOutputFormat(viper.GetString("output"))
}

type pipeline struct {
	store   *credentials.Store
	tokens  *token.Manager
	client  *plume.Client
	reports *reports.Service
}

func newPipeline() (*pipeline, error) {
	cfg := plume.Config{
		SSOEndpoint:    viper.GetString("sso-endpoint"),
		APIBase:        viper.GetString("api-base"),
		ReportsBase:    viper.GetString("reports-base"),
		RequestTimeout: viper.GetDuration("timeout"),
		ReauthOnReject: true,
	}

	store := credentials.NewStore(cfg.Endpoints())
	if _, err := store.Put(credentials.Record{
		PrincipalID: cliPrincipal,
		AuthHeader:  viper.GetString("auth-header"),
		PartnerID:   viper.GetString("partner-id"),
	}); err != nil {
		return nil, err
	}

	tokens := token.NewManager(store, token.WithTimeout(cfg.RequestTimeout))
	client := plume.NewClient(tokens, store, cfg)
	return &pipeline{
		store:   store,
		tokens:  tokens,
		client:  client,
		reports: reports.NewService(client, reports.Config{}),
	}, nil
}

func outputFormat() OutputFormat {
	return OutputFormat(viper.GetString("output"))
}

func Execute() int {
	rootCmd.Version = AppVersion
	rootCmd.SetVersionTemplate(`{{printf "panoptesctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err == nil {
		return ExitCodeSuccess
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	switch {
	case errors.Is(err, token.ErrNotConfigured):
		fmt.Fprintln(os.Stderr, "Set --auth-header and --partner-id, or PLUME_AUTH_HEADER and PLUME_PARTNER_ID.")
		return ExitCodeNotConfigured
	case errors.Is(err, token.ErrExchangeFailed),
		errors.Is(err, token.ErrMalformedTokenResponse),
		errors.Is(err, plume.ErrUnauthenticated),
		errors.Is(err, plume.ErrAuthRejected),
		errors.Is(err, plume.ErrHTTPStatus),
		errors.Is(err, plume.ErrTimeout),
		errors.Is(err, plume.ErrTransport),
		errors.Is(err, plume.ErrMalformedResponse):
		return ExitCodeUpstream
	default:
		return ExitCodeError
	}
}

func commandTimeout() time.Duration {
	// One token exchange plus one round of concurrent report calls.
	return 3 * viper.GetDuration("timeout")
}
