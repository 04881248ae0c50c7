package listener

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/airswap/airswap-bot/internal/model"
)

// EventSchema describes how one contract event is rendered.
// Describe, when set, takes precedence over Description.
type EventSchema struct {
	Description string
	Describe    func(params map[string]any) string
	ParamNames  []string
}

// ContractBinding ties a contract ABI and its event schemas to per-chain deployments.
// It is read-only after construction and shared by every chain subscription.
type ContractBinding struct {
	Name    string
	ABI     abi.ABI
	Events  map[string]EventSchema
	Deploys map[uint64]common.Address

	byTopic map[common.Hash]string
}

// NewBinding parses the ABI and checks every schema against it.
func NewBinding(name, abiJSON string, events map[string]EventSchema, deploys map[uint64]string) (*ContractBinding, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("%s: parse abi: %w", name, err)
	}

	b := &ContractBinding{
		Name:    name,
		ABI:     parsed,
		Events:  make(map[string]EventSchema, len(events)),
		Deploys: make(map[uint64]common.Address, len(deploys)),
		byTopic: make(map[common.Hash]string, len(events)),
	}

	for eventName, schema := range events {
		event, ok := parsed.Events[eventName]
		if !ok {
			return nil, fmt.Errorf("%s: event %s not in abi", name, eventName)
		}
		if len(schema.ParamNames) == 0 {
			for _, input := range event.Inputs {
				schema.ParamNames = append(schema.ParamNames, input.Name)
			}
		}
		for _, param := range schema.ParamNames {
			if !hasInput(event.Inputs, param) {
				return nil, fmt.Errorf("%s: event %s has no param %s", name, eventName, param)
			}
		}
		b.Events[eventName] = schema
		b.byTopic[event.ID] = eventName
	}

	for chainID, address := range deploys {
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("%s: invalid deploy address %q for chain %d", name, address, chainID)
		}
		b.Deploys[chainID] = common.HexToAddress(address)
	}

	return b, nil
}

func hasInput(args abi.Arguments, name string) bool {
	for _, arg := range args {
		if arg.Name == name {
			return true
		}
	}
	return false
}

// WithDeploys returns a copy whose deploy table is extended by overrides.
func (b *ContractBinding) WithDeploys(overrides map[uint64]common.Address) *ContractBinding {
	if len(overrides) == 0 {
		return b
	}
	out := *b
	out.Deploys = make(map[uint64]common.Address, len(b.Deploys)+len(overrides))
	for k, v := range b.Deploys {
		out.Deploys[k] = v
	}
	for k, v := range overrides {
		out.Deploys[k] = v
	}
	return &out
}

// Address returns the deployment on a chain.
func (b *ContractBinding) Address(chainID uint64) (common.Address, bool) {
	addr, ok := b.Deploys[chainID]
	return addr, ok
}

// EventNames lists the bound events in sorted order.
func (b *ContractBinding) EventNames() []string {
	names := make([]string, 0, len(b.Events))
	for name := range b.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Query builds the log filter for the deployment on a chain: one address, any bound event.
func (b *ContractBinding) Query(chainID uint64) (ethereum.FilterQuery, error) {
	addr, ok := b.Address(chainID)
	if !ok {
		return ethereum.FilterQuery{}, &model.NoDeploymentError{Contract: b.Name, ChainID: chainID}
	}
	topics := make([]common.Hash, 0, len(b.byTopic))
	for _, name := range b.EventNames() {
		topics = append(topics, b.ABI.Events[name].ID)
	}
	return ethereum.FilterQuery{
		Addresses: []common.Address{addr},
		Topics:    [][]common.Hash{topics},
	}, nil
}

// Decode maps a raw log to a DomainEvent, naming parameters in declared order.
func (b *ContractBinding) Decode(chainID uint64, log types.Log) (model.DomainEvent, error) {
	if len(log.Topics) == 0 {
		return model.DomainEvent{}, b.decodeError(chainID, log, fmt.Errorf("missing topics"))
	}
	name, ok := b.byTopic[log.Topics[0]]
	if !ok {
		return model.DomainEvent{}, b.decodeError(chainID, log, fmt.Errorf("unsupported topic0"))
	}
	event := b.ABI.Events[name]
	schema := b.Events[name]

	params, err := decodeParams(event, log)
	if err != nil {
		return model.DomainEvent{}, b.decodeError(chainID, log, err)
	}

	description := schema.Description
	if schema.Describe != nil {
		description = schema.Describe(params)
	}

	return model.DomainEvent{
		ChainID:      chainID,
		ContractName: b.Name,
		Address:      log.Address.Hex(),
		EventName:    name,
		TxHash:       log.TxHash.Hex(),
		BlockNumber:  log.BlockNumber,
		LogIndex:     uint64(log.Index),
		Description:  description,
		Params:       params,
		ParamOrder:   schema.ParamNames,
	}, nil
}

func (b *ContractBinding) decodeError(chainID uint64, log types.Log, err error) error {
	topic0 := ""
	if len(log.Topics) > 0 {
		topic0 = log.Topics[0].Hex()
	}
	return &model.DecodeError{
		ChainID:  chainID,
		Contract: b.Name,
		TxHash:   log.TxHash.Hex(),
		LogIndex: uint64(log.Index),
		Topic0:   topic0,
		Err:      err,
	}
}

func decodeParams(event abi.Event, log types.Log) (map[string]any, error) {
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	params := make(map[string]any, len(event.Inputs))
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(params, indexed, log.Topics[1:]); err != nil {
			return nil, fmt.Errorf("parse topics: %w", err)
		}
	}
	if len(event.Inputs.NonIndexed()) > 0 {
		if err := event.Inputs.UnpackIntoMap(params, log.Data); err != nil {
			return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
		}
	}
	return params, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func paramAddress(params map[string]any, name string) (common.Address, bool) {
	switch v := params[name].(type) {
	case common.Address:
		return v, true
	case *common.Address:
		if v != nil {
			return *v, true
		}
	}
	return common.Address{}, false
}

func paramBigInt(params map[string]any, name string) (*big.Int, bool) {
	v, ok := params[name].(*big.Int)
	return v, ok && v != nil
}
