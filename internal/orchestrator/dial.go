package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/config"
	"github.com/airswap/airswap-bot/internal/model"
)

// NetworkDialer opens a supervised push Session or a Poller depending on the
// network's transport kind. Timing and the provider credential are read from
// the store on every dial, so a restart picks up changed values.
func NetworkDialer(store config.Reader, poll chain.PollConfig, logger *zap.Logger) Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, network model.ChainNetwork, onLost func(error)) (chain.Transport, error) {
		credential := store.String(config.KeyInfuraProjectID)
		if credential == "" {
			return nil, fmt.Errorf("%s: provider credential %s is not set", network.Name, config.KeyInfuraProjectID)
		}
		logger := logger.With(zap.String("network", network.Name))

		switch network.Transport {
		case model.TransportPush:
			cfg := chain.SessionConfig{
				KeepAliveInterval: store.Duration(config.KeyKeepAliveIntervalMS),
				PongTimeout:       store.Duration(config.KeyPongTimeoutMS),
			}
			session, err := chain.OpenSession(ctx, network, credential, cfg, onLost, logger)
			if err != nil {
				return nil, err
			}
			return session, nil
		case model.TransportPoll:
			poller, err := chain.OpenPoller(ctx, network, credential, poll, logger)
			if err != nil {
				return nil, err
			}
			return poller, nil
		default:
			return nil, fmt.Errorf("%s: unsupported transport %q", network.Name, network.Transport)
		}
	}
}
