// Package cli implements couchctl, a command line client for CouchDB.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	couch "github.com/rogerbrinkmann/couchdb-rest-api"
	"github.com/rogerbrinkmann/couchdb-rest-api/internal/config"
	"github.com/rogerbrinkmann/couchdb-rest-api/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	flagURL    string
	flagUser   string
	flagPass   string
	flagTime   time.Duration
	flagRate   float64
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "couchctl",
	Short: "Command line client for CouchDB",
	Long: `couchctl talks to a CouchDB instance over its HTTP API.

Connection settings are read from the config file, then COUCH_URL,
COUCH_USER, COUCH_PASSWORD and COUCH_TIMEOUT, then flags.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath(), "config file")
	flags.StringVar(&flagURL, "url", "", "CouchDB base url")
	flags.StringVarP(&flagUser, "user", "u", "", "user name")
	flags.StringVarP(&flagPass, "password", "p", "", "password")
	flags.DurationVar(&flagTime, "timeout", 0, "request timeout")
	flags.Float64Var(&flagRate, "rate", 0, "maximum requests per second, 0 for no limit")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig merges config file, environment and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URL = flagURL
	}
	if flags.Changed("user") {
		cfg.Username = flagUser
	}
	if flags.Changed("password") {
		cfg.Password = flagPass
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagTime
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connect opens a session with the configured server.
func connect(cmd *cobra.Command) (*couch.Server, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	var cred *couch.Credentials
	if cfg.HasCredentials() {
		if cfg.Password == "" {
			cfg.Password = readPassword(cmd, cfg.Username)
		}
		cred = couch.NewCredentials(cfg.Username, cfg.Password)
	}
	logger.Section("Connect")
	s, err := couch.NewServer(cmdContext(cmd), cfg.URL, cred,
		couch.WithTimeout(cfg.Timeout),
		couch.WithUserAgent("couchctl/"+version),
		couch.WithRateLimit(flagRate, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.URL, err)
	}
	return s, nil
}

// readPassword asks for the password of user if stdin is a terminal.
func readPassword(cmd *cobra.Command, user string) string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ""
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", user)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		logger.Warn("read password: %v", err)
		return ""
	}
	return string(password)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
