package main

import (
	"context"
	"fmt"
	"os"

	"github.com/danmuck/robotctl/internal/logging"
	"github.com/danmuck/robotctl/internal/server"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	addr       string
	port       int
	adminAddr  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "robotctl",
		Short: "Guide remote robots to the secret message",
		Long: `robotctl accepts robot connections over TCP, authenticates each robot,
locates it, and sweeps the target zone until the secret message is found.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.ConfigureRuntime(opts.verbose)
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return server.NewServiceWithConfig(cfg).Run(cmd.Context())
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a robotctl TOML config")
	flags.StringVar(&opts.addr, "addr", "", "host to listen on (default 127.0.0.1)")
	flags.IntVarP(&opts.port, "port", "p", 0, "port to listen on (default 8080)")
	flags.StringVar(&opts.adminAddr, "admin-addr", "", "admin HTTP listen address; empty disables")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

// resolveConfig loads the config file then applies explicitly set flags.
func resolveConfig(cmd *cobra.Command, opts options) (server.ServiceConfig, error) {
	cfg, err := loadServiceConfig(opts.configPath)
	if err != nil {
		return server.ServiceConfig{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") || flags.Changed("port") {
		cfg.ListenAddr, err = overrideAddr(cfg.ListenAddr, opts.addr, opts.port)
		if err != nil {
			return server.ServiceConfig{}, err
		}
	}
	if flags.Changed("admin-addr") {
		cfg.AdminListenAddr = opts.adminAddr
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "robotctl: %v\n", err)
		os.Exit(1)
	}
}
