package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "bot",
		Short:        "AirSwap multi-chain event bot",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Listen to AirSwap contracts and publish events",
		RunE:  runBot,
	}

	runCmd.Flags().String("infura-project-id", "", "Infura project id")
	runCmd.Flags().String("push-chains", "1", "chains served over websocket (comma-separated ids)")
	runCmd.Flags().String("poll-chains", "137,56,43114,8453,59144", "chains served by log polling (comma-separated ids)")
	runCmd.Flags().String("config-store", "./data/config.json", "runtime config store path")
	runCmd.Flags().String("admin-addr", "", "admin HTTP listen address, empty disables")
	runCmd.Flags().Duration("poll-interval", 12*time.Second, "log polling interval")
	runCmd.Flags().Uint64("poll-batch-size", 500, "blocks per eth_getLogs request")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts per RPC call")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("discord-swaps-webhook", "", "Discord webhook for swaps")
	runCmd.Flags().String("discord-events-webhook", "", "Discord webhook for contract events")
	runCmd.Flags().String("slack-webhook", "", "Slack webhook")
	runCmd.Flags().Float64("webhook-rate", 0.5, "webhook requests per second, 0 disables the cap")
	runCmd.Flags().String("jsonl-path", "", "append published events to this JSONL file")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for the event archive")
	runCmd.Flags().String("kafka-brokers", "", "Kafka brokers (comma-separated)")
	runCmd.Flags().String("kafka-topic", "airswap-events", "Kafka topic")
	runCmd.Flags().Bool("log-channel", true, "log published events")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	commandCmd := &cobra.Command{
		Use:   "command <text>",
		Short: "Send an operator command (status, mute, unmute, <min>, max <n>, stats)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCommand,
	}

	commandCmd.Flags().String("admin-addr", "", "admin address of a running bot; empty applies the command to the store directly")
	commandCmd.Flags().String("config-store", "./data/config.json", "runtime config store path")
	commandCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(commandCmd)

	networksCmd := &cobra.Command{
		Use:   "networks",
		Short: "List supported networks",
		RunE:  runNetworks,
	}

	root.AddCommand(networksCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
