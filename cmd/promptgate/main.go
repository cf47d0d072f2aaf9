package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zen-systems/promptgate/pkg/classifier"
	"github.com/zen-systems/promptgate/pkg/config"
	"github.com/zen-systems/promptgate/pkg/extractor"
	"github.com/zen-systems/promptgate/pkg/gateway"
	"github.com/zen-systems/promptgate/pkg/inference"
	"github.com/zen-systems/promptgate/pkg/provider"
	"github.com/zen-systems/promptgate/pkg/registry"
	"github.com/zen-systems/promptgate/pkg/router"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "promptgate",
		Short: "Prompt traffic gateway with intent classification and routing",
		Long: `Promptgate sits in front of prompt-driven applications. It classifies each
prompt against the declared prompt targets, extracts typed parameters, tracks
intent drift across turns, and dispatches to application endpoints, LLM
providers, or error targets.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "promptgate.yaml", "path to gateway config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(targetsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var devFlag bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			log, err := buildLogger(devFlag)
			if err != nil {
				return err
			}
			defer log.Sync()

			gw, err := buildGateway(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return gw.Serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&devFlag, "dev", false, "human-readable log output")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the gateway configuration",
		Long:  "Loads and validates the configuration without serving.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			fmt.Printf("Configuration is valid: %d prompt targets, %d providers, %d error targets.\n",
				len(cfg.PromptTargets), len(cfg.LLMProviders), len(cfg.ErrorTargets))
			return nil
		},
	}
}

func targetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "Show declared prompt targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			reg, err := registry.New(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TARGET\tENDPOINT\tREQUIRED PARAMS\tDEFAULT")

			for _, t := range reg.All() {
				required := ""
				for _, p := range t.Parameters {
					if !p.Required {
						continue
					}
					if required != "" {
						required += ", "
					}
					required += p.Name
				}
				def := "-"
				if t.Default {
					def = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.URL(), required, def)
			}

			for _, et := range cfg.ErrorTargets {
				kind := et.ErrorKind
				if kind == "" {
					kind = "any"
				}
				fmt.Fprintf(w, "%s (error: %s)\t%s%s\t-\t-\n", et.ID, kind,
					cfg.Endpoints[et.Endpoint.Name].Address, et.Endpoint.Path)
			}

			return w.Flush()
		},
	}
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildGateway(cfg *config.Config, log *zap.Logger) (*gateway.Gateway, error) {
	reg, err := registry.New(cfg)
	if err != nil {
		return nil, err
	}

	adapters := make(map[string]provider.Adapter, len(cfg.LLMProviders))
	for _, p := range cfg.LLMProviders {
		a, err := provider.NewAdapter(p)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.ID, err)
		}
		adapters[p.ID] = a
	}
	pool, err := provider.NewPool(cfg.LLMProviders, adapters, cfg.Overrides)
	if err != nil {
		return nil, err
	}

	client := inference.NewHTTPClient(cfg.Inference.Address, cfg.InferenceTimeout())
	cls, err := classifier.New(client, reg, cfg.Overrides)
	if err != nil {
		return nil, err
	}

	rtr := router.New(reg, pool, cfg.Overrides)
	return gateway.New(cfg, cls, extractor.New(client), rtr, log), nil
}
