package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/yourorg/clearsign/internal/config"
	"github.com/yourorg/clearsign/internal/server"
	"github.com/yourorg/clearsign/pkg/types"
)

const defaultConfigContent = `# Credentials may also come from CLAUDE_API_KEY / ETHERSCAN_API_KEY
# or from the env file below.
env_file: ".env"

llm:
  api_key: ""
  base_url: "https://api.anthropic.com"
  model: "claude-2"
  max_tokens: 3000
  context_window: 100000
  temperature: 0.7
  api_version: "2023-06-01"
  timeout: 0s

explorer:
  api_key: ""
  base_url: "https://api.etherscan.io/api"
  chain_id: 0
  timeout: 0s

server:
  host: "0.0.0.0"
  port: 8080

log:
  level: "info"
  format: "json"

redact:
  query_params:
    - apikey
    - api_key
  headers:
    - X-Api-Key
    - Authorization
  replacement: "***REDACTED***"
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var debug bool

	root := &cobra.Command{
		Use:           "clearsign",
		Short:         "Smart contract documentation generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd(&cfgPath, &debug))
	root.AddCommand(newGenerateCmd(&cfgPath, &debug))

	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ~/.clearsign directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			baseDir := filepath.Join(home, ".clearsign")
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			cfgFile := filepath.Join(baseDir, "config.yaml")
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o600); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "please set llm.api_key and explorer.api_key in", cfgFile)
			return nil
		},
	}
}

func newServeCmd(cfgPath *string, debug *bool) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{Use: "serve", Short: "Start HTTP service", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(*cfgPath, *debug)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = host
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err := newLogger(cfg.Log, os.Stdout)
		if err != nil {
			return err
		}
		warnMissingCredentials(logger, cfg)

		gin.SetMode(ginMode(cfg.Log.Level))
		srv, err := server.New(newService(cfg, logger), logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, cfg.Addr())
	}}
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "server host")
	cmd.Flags().IntVar(&port, "port", 8080, "server port")
	return cmd
}

func newGenerateCmd(cfgPath *string, debug *bool) *cobra.Command {
	var address, abiPath string
	cmd := &cobra.Command{Use: "generate", Short: "Generate documentation for one contract", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(*cfgPath, *debug)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		req := types.Request{ContractAddress: address}
		if abiPath != "" {
			data, err := os.ReadFile(abiPath)
			if err != nil {
				return fmt.Errorf("read abi: %w", err)
			}
			req.ABI = json.RawMessage(data)
		}

		doc, err := newService(cfg, logger).Generate(context.WithoutCancel(cmd.Context()), req)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc.Markdown)
		return nil
	}}
	cmd.Flags().StringVar(&address, "address", "", "contract address")
	cmd.Flags().StringVar(&abiPath, "abi", "", "path to a JSON ABI file (skips the explorer lookup)")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func loadConfig(path string, debug bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}
