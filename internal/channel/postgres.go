package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airswap/airswap-bot/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS contract_events (
	chain_id      BIGINT      NOT NULL,
	tx_hash       TEXT        NOT NULL,
	log_index     BIGINT      NOT NULL,
	contract      TEXT        NOT NULL,
	contract_addr TEXT        NOT NULL,
	event_name    TEXT        NOT NULL,
	block_number  BIGINT      NOT NULL,
	description   TEXT        NOT NULL,
	params        JSONB       NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, tx_hash, log_index)
);
CREATE TABLE IF NOT EXISTS swaps (
	chain_id          BIGINT           NOT NULL,
	tx_hash           TEXT             NOT NULL,
	log_index         BIGINT           NOT NULL,
	nonce             TEXT             NOT NULL,
	signer_wallet     TEXT             NOT NULL,
	signer_token      TEXT             NOT NULL,
	signer_amount     NUMERIC          NOT NULL,
	sender_wallet     TEXT             NOT NULL,
	sender_token      TEXT             NOT NULL,
	sender_amount     NUMERIC          NOT NULL,
	fee_receiver      TEXT             NOT NULL DEFAULT '',
	value_usd         DOUBLE PRECISION NOT NULL,
	protocol_fee_usd  DOUBLE PRECISION NOT NULL,
	block_ts          TIMESTAMPTZ      NOT NULL,
	created_at        TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, tx_hash, log_index)
);`

// Postgres archives published events and swaps.
type Postgres struct {
	dsn string

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

func NewPostgres(dsn string) *Postgres {
	return &Postgres{dsn: dsn}
}

func (s *Postgres) Name() string { return "postgres" }

// Init connects and creates the archive tables when missing.
func (s *Postgres) Init(ctx context.Context) error {
	if s.dsn == "" {
		return fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return fmt.Errorf("create schema: %w", err)
	}
	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()
	return nil
}

func (s *Postgres) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

func (s *Postgres) PublishEvent(ctx context.Context, event model.DomainEvent) error {
	batch := &pgx.Batch{}
	if err := queueEvent(batch, event); err != nil {
		return err
	}
	return s.send(ctx, batch)
}

// PublishSwap writes the swap row and its event row in one batch.
func (s *Postgres) PublishSwap(ctx context.Context, swap model.SwapEvent) error {
	batch := &pgx.Batch{}
	if err := queueEvent(batch, swap.DomainEvent); err != nil {
		return err
	}
	batch.Queue(`
		INSERT INTO swaps (
			chain_id, tx_hash, log_index, nonce, signer_wallet, signer_token, signer_amount,
			sender_wallet, sender_token, sender_amount, fee_receiver, value_usd, protocol_fee_usd, block_ts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (chain_id, tx_hash, log_index)
		DO UPDATE SET
			value_usd = EXCLUDED.value_usd,
			protocol_fee_usd = EXCLUDED.protocol_fee_usd
	`,
		int64(swap.ChainID),
		swap.TxHash,
		int64(swap.LogIndex),
		swap.Nonce,
		swap.SignerWallet,
		swap.SignerToken,
		swap.SignerAmount,
		swap.SenderWallet,
		swap.SenderToken,
		swap.SenderAmount,
		swap.FeeReceiver,
		swap.SwapValueUSD,
		swap.ProtocolFeeValueUSD,
		swap.Timestamp,
	)
	return s.send(ctx, batch)
}

func queueEvent(batch *pgx.Batch, event model.DomainEvent) error {
	params, err := json.Marshal(event.StringParams())
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	batch.Queue(`
		INSERT INTO contract_events (
			chain_id, tx_hash, log_index, contract, contract_addr, event_name, block_number, description, params
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
	`,
		int64(event.ChainID),
		event.TxHash,
		int64(event.LogIndex),
		event.ContractName,
		event.Address,
		event.EventName,
		int64(event.BlockNumber),
		event.Description,
		params,
	)
	return nil
}

func (s *Postgres) send(ctx context.Context, batch *pgx.Batch) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return fmt.Errorf("postgres channel closed")
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
