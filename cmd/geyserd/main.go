package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	clientcmd "github.com/rzbill/geyserd/internal/cmd/client"
	serverrun "github.com/rzbill/geyserd/internal/cmd/server"
	"github.com/rzbill/geyserd/internal/runtime"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "geyserd",
		Short:        "geyserd streams filtered Solana chain events to gRPC subscribers",
		SilenceUsage: true,
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start geyserd (engine, gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := serverrun.LoadConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("grpc") {
				cfg.GRPC.Address, _ = flags.GetString("grpc")
			}
			if flags.Changed("unix") {
				cfg.GRPC.UnixSocketPath, _ = flags.GetString("unix")
			}
			if flags.Changed("http") {
				cfg.HTTP.Address, _ = flags.GetString("http")
			}
			if flags.Changed("replay") {
				cfg.Replay.Backend, _ = flags.GetString("replay")
			}
			if flags.Changed("data-dir") {
				cfg.Replay.DataDir, _ = flags.GetString("data-dir")
			}
			if flags.Changed("log-level") {
				cfg.Log.Level, _ = flags.GetString("log-level")
			}
			if flags.Changed("log-format") {
				cfg.Log.Format, _ = flags.GetString("log-format")
			}
			fake, _ := flags.GetBool("fake-source")

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg, FakeSource: fake}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", os.Getenv("GEYSER_CONFIG"), "Config file (.json, .yaml or .yml)")
	serverStartCmd.Flags().String("grpc", "", "gRPC listen address (overrides config)")
	serverStartCmd.Flags().String("unix", "", "Additional unix socket for gRPC")
	serverStartCmd.Flags().String("http", "", "HTTP listen address for health, metrics and debug")
	serverStartCmd.Flags().String("replay", "", "Replay backend: memory|pebble")
	serverStartCmd.Flags().String("data-dir", "", "Replay data directory for the pebble backend")
	serverStartCmd.Flags().Bool("fake-source", false, "Generate synthetic chain events")
	serverStartCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "", "Log format: text|json")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "geyserd", runtime.Version)
		},
	})

	// subscribe, ping, slot, blockhash, server-version
	clientcmd.Register(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
