package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/admin"
	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/channel"
	"github.com/airswap/airswap-bot/internal/command"
	"github.com/airswap/airswap-bot/internal/config"
	"github.com/airswap/airswap-bot/internal/dex"
	"github.com/airswap/airswap-bot/internal/listener"
	"github.com/airswap/airswap-bot/internal/metrics"
	"github.com/airswap/airswap-bot/internal/orchestrator"
	"github.com/airswap/airswap-bot/internal/stats"
	"github.com/airswap/airswap-bot/internal/valuation"
)

const (
	statsWindow  = time.Hour
	statsRetain  = 24
	maxPollLag   = 2000
	shutdownWait = 5 * time.Second
)

func runBot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := config.OpenStore(cfg.StorePath)
	if err != nil {
		return err
	}
	if cfg.InfuraProjectID != "" && store.String(config.KeyInfuraProjectID) == "" {
		if err := store.Override(config.KeyInfuraProjectID, cfg.InfuraProjectID); err != nil {
			return err
		}
	}
	if store.String(config.KeyInfuraProjectID) == "" {
		return fmt.Errorf("infura project id is required")
	}

	networks, err := chain.BuildNetworks(cfg.PushChains, cfg.PollChains)
	if err != nil {
		return err
	}
	overrides, err := listener.ParseDeployOverrides(cfg.DeployOverrides)
	if err != nil {
		return err
	}
	bindings, err := listener.DefaultBindings(overrides)
	if err != nil {
		return err
	}

	m := metrics.Init()
	names := channel.NewNetworks(networks)

	channels, err := buildChannels(cfg.Channels, names, logger)
	if err != nil {
		return err
	}
	fanout := channel.NewFanout(channels, m, logger)

	tracker := stats.NewTracker(statsWindow, statsRetain)
	engine := valuation.NewEngine(dex.NewQuoter(nil), networks, nil, logger)
	swaps := listener.NewSwapListener(dex.NewTokenCache(), engine, store, fanout, tracker, m, logger)
	events := listener.NewEventPublisher(store, fanout, m, logger)

	routes := make([]orchestrator.Route, 0, len(bindings))
	for _, binding := range bindings {
		var handler listener.Handler = events
		if binding.Name == listener.ContractSwapERC20 {
			handler = swaps
		}
		routes = append(routes, orchestrator.Route{Binding: binding, Handler: handler})
	}

	poll := chain.PollConfig{
		Interval:  cfg.PollInterval,
		BatchSize: cfg.PollBatchSize,
		MaxLag:    maxPollLag,
		Retry: chain.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
			MaxBackoff: 30 * time.Second,
		},
	}

	orch := orchestrator.New(orchestrator.Config{
		Networks: networks,
		Routes:   routes,
		Store:    store,
		Dial:     orchestrator.NetworkDialer(store, poll, logger),
		Channels: fanout,
		Metrics:  m,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AdminAddr != "" {
		executor := command.NewExecutor(store, func() string { return tracker.Report(names.Name) }, logger)
		srv := admin.Serve(cfg.AdminAddr, admin.Handler(func() admin.Health { return healthOf(orch.Status()) }, executor, logger), logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
			defer cancel()
			if err := admin.Shutdown(shutdownCtx, srv); err != nil {
				logger.Warn("admin shutdown", zap.Error(err))
			}
		}()
	}

	logger.Info("bot start",
		zap.Uint64s("push_chains", cfg.PushChains),
		zap.Uint64s("poll_chains", cfg.PollChains),
		zap.Int("contracts", len(bindings)),
		zap.Int("channels", len(channels)),
		zap.String("config_store", cfg.StorePath),
		zap.String("admin_addr", cfg.AdminAddr),
	)

	return orch.Run(ctx)
}

func buildChannels(cfg config.ChannelConfig, names channel.Networks, logger *zap.Logger) ([]channel.Channel, error) {
	var out []channel.Channel
	if cfg.LogChannel {
		out = append(out, channel.NewLog(logger))
	}
	if cfg.DiscordSwapsWebhook != "" || cfg.DiscordEventsWebhook != "" {
		discord, err := channel.NewDiscord(cfg.DiscordSwapsWebhook, cfg.DiscordEventsWebhook, names, cfg.WebhookRate)
		if err != nil {
			return nil, err
		}
		out = append(out, discord)
	}
	if cfg.SlackWebhook != "" {
		slack, err := channel.NewSlack(cfg.SlackWebhook, "", "", names, cfg.WebhookRate)
		if err != nil {
			return nil, err
		}
		out = append(out, slack)
	}
	if cfg.JSONLPath != "" {
		out = append(out, channel.NewJSONL(cfg.JSONLPath))
	}
	if cfg.PGDSN != "" {
		out = append(out, channel.NewPostgres(cfg.PGDSN))
	}
	if len(cfg.KafkaBrokers) > 0 {
		out = append(out, channel.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no publication channel enabled")
	}
	return out, nil
}

func healthOf(status orchestrator.Status) admin.Health {
	health := admin.Health{
		Phase:         status.Phase.String(),
		Healthy:       status.Healthy(),
		Chains:        make(map[string]string, len(status.Chains)),
		Channels:      status.Channels,
		Subscriptions: status.Subscriptions,
	}
	for chainID, phase := range status.Chains {
		health.Chains[strconv.FormatUint(chainID, 10)] = phase.String()
	}
	if !status.LastRestart.IsZero() {
		last := status.LastRestart
		health.LastRestart = &last
	}
	return health
}

var (
	_ listener.Publisher    = (*channel.Fanout)(nil)
	_ orchestrator.Channels = (*channel.Fanout)(nil)
)
