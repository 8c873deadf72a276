package main

import (
	"github.com/spf13/cobra"
)

// buildRootCmd constructs the Cobra command tree.
func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "damod",
		Short:         "Model residency daemon: fetch, load and evict AI models on demand",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var opts serveOptions
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP daemon",
		Example: "  damod serve --config damod.yaml\n" +
			"  damod serve --registry-url https://models.example.com --cache-dir ~/.cache/damod",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &opts)
		},
	}
	serveCmd.Flags().StringVar(&opts.configPath, "config", "", "Config file (.yaml/.json/.toml)")
	serveCmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. :8080")
	serveCmd.Flags().StringVar(&opts.registryURL, "registry-url", "", "Base URL of the model registry")
	serveCmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "Directory for downloaded model weights")
	serveCmd.Flags().StringVar(&opts.indexPath, "index-path", "", "Path of the disk cache index database")
	serveCmd.Flags().Uint64Var(&opts.capacityBytes, "capacity-bytes", 0, "Fallback memory budget when device probing fails")
	serveCmd.Flags().Float64Var(&opts.capacityFraction, "capacity-fraction", 0, "Fraction of probed memory handed to the daemon")
	serveCmd.Flags().Float64Var(&opts.thresholdFraction, "threshold-fraction", 0, "Eviction threshold as a fraction of capacity (default 0.9)")
	serveCmd.Flags().IntVar(&opts.fetchTimeoutSec, "fetch-timeout-sec", 0, "Bound on fetching one model (seconds)")
	serveCmd.Flags().IntVar(&opts.loadTimeoutSec, "load-timeout-sec", 0, "Bound on loading one model into memory (seconds)")
	serveCmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	serveCmd.Flags().BoolVar(&opts.corsEnabled, "cors", false, "Enable CORS")
	serveCmd.Flags().StringVar(&opts.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins")
	root.AddCommand(serveCmd)

	var addr string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the residency snapshot of a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientGet(cmd.OutOrStdout(), addr, "/v1/models/status")
		},
	}
	statusCmd.Flags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "Base URL of the daemon")
	root.AddCommand(statusCmd)

	var fetchAddr string
	fetchCmd := &cobra.Command{
		Use:   "fetch <model>",
		Short: "Download a model into the daemon's disk cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientPost(cmd.OutOrStdout(), fetchAddr, "/v1/models/fetch",
				map[string]string{"model_id": args[0]})
		},
	}
	fetchCmd.Flags().StringVar(&fetchAddr, "addr", "http://127.0.0.1:8080", "Base URL of the daemon")
	root.AddCommand(fetchCmd)

	var purgeAddr string
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Evict all idle resident models from a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clientPost(cmd.OutOrStdout(), purgeAddr, "/v1/models/purge", nil)
		},
	}
	purgeCmd.Flags().StringVar(&purgeAddr, "addr", "http://127.0.0.1:8080", "Base URL of the daemon")
	root.AddCommand(purgeCmd)

	return root
}
