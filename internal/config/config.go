package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds process configuration loaded from flags, env, or config file.
type Config struct {
	InfuraProjectID string
	PushChains      []uint64
	PollChains      []uint64
	StorePath       string
	LogLevel        string
	AdminAddr       string
	PollInterval    time.Duration
	PollBatchSize   uint64
	MaxRetries      int
	RetryBackoff    time.Duration
	DeployOverrides map[string]string
	Channels        ChannelConfig
}

// ChannelConfig selects which publication channels are enabled.
type ChannelConfig struct {
	DiscordSwapsWebhook  string
	DiscordEventsWebhook string
	SlackWebhook         string
	WebhookRate          float64
	JSONLPath            string
	PGDSN                string
	KafkaBrokers         []string
	KafkaTopic           string
	LogChannel           bool
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	// .env is optional; variables may be set externally.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("infura-project-id", "BOT_INFURA_PROJECT_ID", "INFURA_PROJECT_ID"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	v.SetDefault("push-chains", "1")
	v.SetDefault("poll-chains", "137,56,43114,8453,59144")
	v.SetDefault("config-store", "./data/config.json")
	v.SetDefault("log-level", "info")
	v.SetDefault("admin-addr", "")
	v.SetDefault("poll-interval", 12*time.Second)
	v.SetDefault("poll-batch-size", uint64(500))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("webhook-rate", 0.5)
	v.SetDefault("kafka-topic", "airswap-events")
	v.SetDefault("log-channel", true)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("bot")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	pushChains, err := parseChainIDs(getStringSlice(v, "push-chains"))
	if err != nil {
		return Config{}, fmt.Errorf("push-chains: %w", err)
	}
	pollChains, err := parseChainIDs(getStringSlice(v, "poll-chains"))
	if err != nil {
		return Config{}, fmt.Errorf("poll-chains: %w", err)
	}

	cfg := Config{
		InfuraProjectID: v.GetString("infura-project-id"),
		PushChains:      pushChains,
		PollChains:      pollChains,
		StorePath:       v.GetString("config-store"),
		LogLevel:        v.GetString("log-level"),
		AdminAddr:       v.GetString("admin-addr"),
		PollInterval:    v.GetDuration("poll-interval"),
		PollBatchSize:   v.GetUint64("poll-batch-size"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		DeployOverrides: getStringMap(v, "deploys"),
		Channels: ChannelConfig{
			DiscordSwapsWebhook:  v.GetString("discord-swaps-webhook"),
			DiscordEventsWebhook: v.GetString("discord-events-webhook"),
			SlackWebhook:         v.GetString("slack-webhook"),
			WebhookRate:          v.GetFloat64("webhook-rate"),
			JSONLPath:            v.GetString("jsonl-path"),
			PGDSN:                v.GetString("pg-dsn"),
			KafkaBrokers:         getStringSlice(v, "kafka-brokers"),
			KafkaTopic:           v.GetString("kafka-topic"),
			LogChannel:           v.GetBool("log-channel"),
		},
	}

	return cfg, nil
}

func parseChainIDs(items []string) ([]uint64, error) {
	out := make([]uint64, 0, len(items))
	seen := make(map[uint64]struct{}, len(items))
	for _, item := range items {
		id, err := strconv.ParseUint(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q", item)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
