/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	approvalVoting    = "voting"
	approvalAutomatic = "automatic"

	defaultContextWords   = 50
	automaticContextWords = 200
)

type Config struct {
	approvalMode string
	bind         string
	contextWords int
	dbPath       string
	idleTimeout  time.Duration
	llmKey       string
	llmModel     string
	llmURL       string
	pingTimeout  time.Duration
	port         int
	prefix       string
	profile      bool
	tlsCert      string
	tlsKey       string
	twistTimeout time.Duration
	verbose      bool
	version      bool
	voteWindow   time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.approvalMode != approvalVoting && c.approvalMode != approvalAutomatic {
		return fmt.Errorf("invalid approval mode (must be %q or %q): %q", approvalVoting, approvalAutomatic, c.approvalMode)
	}
	if c.contextWords < 1 {
		return fmt.Errorf("invalid context word count (must be positive): %d", c.contextWords)
	}
	if c.voteWindow <= 0 {
		return fmt.Errorf("invalid vote window (must be positive): %s", c.voteWindow)
	}
	if c.pingTimeout <= 0 {
		return fmt.Errorf("invalid ping timeout (must be positive): %s", c.pingTimeout)
	}
	if c.twistTimeout <= 0 {
		return fmt.Errorf("invalid twist timeout (must be positive): %s", c.twistTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) automatic() bool {
	return c.approvalMode == approvalAutomatic
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PLOTTWIST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "plottwist",
		Short:         "Collaborative storytelling rooms with AI plot twists put to a vote.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.automatic() && !cmd.Flags().Changed("context-words") {
				cfg.contextWords = automaticContextWords
			}
			if err := cfg.validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ServePage(ctx, cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.approvalMode, "approval-mode", approvalVoting, "how plot twists are merged: voting or automatic (env: PLOTTWIST_APPROVAL_MODE)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PLOTTWIST_BIND)")
	fs.IntVar(&cfg.contextWords, "context-words", defaultContextWords, "trailing story words used to prompt for a twist, 200 if unset in automatic mode (env: PLOTTWIST_CONTEXT_WORDS)")
	fs.StringVar(&cfg.dbPath, "db", "", "path to sqlite database for story snapshots, disabled if empty (env: PLOTTWIST_DB)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", 60*time.Minute, "time before idle rooms are closed, 0 to disable (env: PLOTTWIST_IDLE_TIMEOUT)")
	fs.StringVar(&cfg.llmKey, "llm-key", "", "api key for the twist model, built-in twists are used if empty (env: PLOTTWIST_LLM_KEY)")
	fs.StringVar(&cfg.llmModel, "llm-model", "gpt-4o-mini", "model used to generate twists (env: PLOTTWIST_LLM_MODEL)")
	fs.StringVar(&cfg.llmURL, "llm-url", defaultResponsesURL, "responses endpoint used to generate twists (env: PLOTTWIST_LLM_URL)")
	fs.DurationVar(&cfg.pingTimeout, "ping-timeout", 60*time.Second, "time a websocket may go without answering a ping before it is dropped (env: PLOTTWIST_PING_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PLOTTWIST_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PLOTTWIST_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PLOTTWIST_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PLOTTWIST_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PLOTTWIST_TLS_KEY)")
	fs.DurationVar(&cfg.twistTimeout, "twist-timeout", 20*time.Second, "time allowed for generating a single twist (env: PLOTTWIST_TWIST_TIMEOUT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PLOTTWIST_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PLOTTWIST_VERSION)")
	fs.DurationVar(&cfg.voteWindow, "vote-window", 30*time.Second, "time a plot twist stays open for votes (env: PLOTTWIST_VOTE_WINDOW)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("plottwist v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
