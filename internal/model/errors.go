package model

import (
	"errors"
	"fmt"
)

// ErrConnectionLost marks transport loss. It always routes to a pipeline restart.
var ErrConnectionLost = errors.New("connection lost")

// ErrValuation is returned when no pricing strategy produced a USD value.
var ErrValuation = errors.New("valuation failed")

// ConnectionLostError carries the chain whose transport closed or was terminated.
type ConnectionLostError struct {
	ChainID uint64
	Cause   error
}

func (e *ConnectionLostError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("chain %d: connection lost", e.ChainID)
	}
	return fmt.Sprintf("chain %d: connection lost: %v", e.ChainID, e.Cause)
}

func (e *ConnectionLostError) Unwrap() []error {
	return []error{ErrConnectionLost, e.Cause}
}

// NoDeploymentError reports that a contract has no address on a chain.
type NoDeploymentError struct {
	Contract string
	ChainID  uint64
}

func (e *NoDeploymentError) Error() string {
	return fmt.Sprintf("%s: no contract deployed on chain %d", e.Contract, e.ChainID)
}

// DecodeError records a log or receipt that could not be turned into an event.
type DecodeError struct {
	ChainID  uint64 `json:"chain_id"`
	Contract string `json:"contract"`
	TxHash   string `json:"tx_hash"`
	LogIndex uint64 `json:"log_index"`
	Topic0   string `json:"topic0"`
	Err      error  `json:"-"`
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s log %s#%d on chain %d: %v", e.Contract, e.TxHash, e.LogIndex, e.ChainID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// PublishError wraps a failure inside one channel.
type PublishError struct {
	Channel string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish via %s: %v", e.Channel, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
