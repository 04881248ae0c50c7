package listener

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/airswap/airswap-bot/internal/model"
)

// Contract names, also used as the publish kind of their generic events.
const (
	ContractRegistry  = "Registry"
	ContractDelegate  = "Delegate"
	ContractStaking   = "Staking"
	ContractPool      = "Pool"
	ContractSwapERC20 = "SwapERC20"
)

const registryABIJSON = `[
  {"anonymous": false, "type": "event", "name": "SetServerURL", "inputs": [
    {"indexed": true, "name": "staker", "type": "address"},
    {"indexed": false, "name": "url", "type": "string"}
  ]},
  {"anonymous": false, "type": "event", "name": "AddTokens", "inputs": [
    {"indexed": true, "name": "staker", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "address[]"}
  ]},
  {"anonymous": false, "type": "event", "name": "RemoveTokens", "inputs": [
    {"indexed": true, "name": "staker", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "address[]"}
  ]},
  {"anonymous": false, "type": "event", "name": "AddProtocols", "inputs": [
    {"indexed": true, "name": "staker", "type": "address"},
    {"indexed": false, "name": "protocols", "type": "bytes4[]"}
  ]},
  {"anonymous": false, "type": "event", "name": "RemoveProtocols", "inputs": [
    {"indexed": true, "name": "staker", "type": "address"},
    {"indexed": false, "name": "protocols", "type": "bytes4[]"}
  ]}
]`

const delegateABIJSON = `[
  {"anonymous": false, "type": "event", "name": "DelegateSwap", "inputs": [
    {"indexed": false, "name": "nonce", "type": "uint256"},
    {"indexed": false, "name": "signerWallet", "type": "address"}
  ]},
  {"anonymous": false, "type": "event", "name": "SetRule", "inputs": [
    {"indexed": false, "name": "senderWallet", "type": "address"},
    {"indexed": false, "name": "senderToken", "type": "address"},
    {"indexed": false, "name": "senderAmount", "type": "uint256"},
    {"indexed": false, "name": "signerToken", "type": "address"},
    {"indexed": false, "name": "signerAmount", "type": "uint256"},
    {"indexed": false, "name": "expiry", "type": "uint256"}
  ]},
  {"anonymous": false, "type": "event", "name": "UnsetRule", "inputs": [
    {"indexed": false, "name": "senderWallet", "type": "address"},
    {"indexed": false, "name": "senderToken", "type": "address"},
    {"indexed": false, "name": "signerToken", "type": "address"}
  ]}
]`

const stakingABIJSON = `[
  {"anonymous": false, "type": "event", "name": "Transfer", "inputs": [
    {"indexed": true, "name": "from", "type": "address"},
    {"indexed": true, "name": "to", "type": "address"},
    {"indexed": false, "name": "tokens", "type": "uint256"}
  ]}
]`

const poolABIJSON = `[
  {"anonymous": false, "type": "event", "name": "Enable", "inputs": [
    {"indexed": false, "name": "root", "type": "bytes32"}
  ]},
  {"anonymous": false, "type": "event", "name": "Withdraw", "inputs": [
    {"indexed": true, "name": "nonce", "type": "uint256"},
    {"indexed": true, "name": "expiry", "type": "uint256"},
    {"indexed": true, "name": "account", "type": "address"},
    {"indexed": false, "name": "token", "type": "address"},
    {"indexed": false, "name": "amount", "type": "uint256"},
    {"indexed": false, "name": "score", "type": "uint256"}
  ]}
]`

const swapERC20ABIJSON = `[
  {"anonymous": false, "type": "event", "name": "SwapERC20", "inputs": [
    {"indexed": true, "name": "nonce", "type": "uint256"},
    {"indexed": true, "name": "signerWallet", "type": "address"}
  ]}
]`

// AirSwap v4 deployments share one address across chains.
var (
	swapERC20Deploys = sameAddress("0xD82E10B9A4107939e55fCCa9B53A9ede6CF2fC46", 1, 56, 137, 8453, 42161, 43114, 59144)
	registryDeploys  = sameAddress("0x8F9DA6d38939411340b19401E8c54Ea1f51B8f95", 1, 56, 137, 8453, 42161, 43114, 59144)
	stakingDeploys   = map[uint64]string{1: "0x9fc450F9AfE2833Eb44f9A1369Ab3678D3929860"}
)

func sameAddress(address string, chainIDs ...uint64) map[uint64]string {
	out := make(map[uint64]string, len(chainIDs))
	for _, id := range chainIDs {
		out[id] = address
	}
	return out
}

func describeList(verb, noun string) func(map[string]any) string {
	return func(params map[string]any) string {
		staker := model.FormatParam(params["staker"])
		items := model.FormatParam(params[noun])
		if items == "" {
			return fmt.Sprintf("%s %s no %s", staker, verb, noun)
		}
		return fmt.Sprintf("%s %s %s: %s", staker, verb, noun, items)
	}
}

// DefaultBindings builds the contract table. overrides maps a contract name to
// extra or replacement deployments and is how chains without a default deploy are enabled.
func DefaultBindings(overrides map[string]map[uint64]common.Address) ([]*ContractBinding, error) {
	defs := []struct {
		name    string
		abiJSON string
		events  map[string]EventSchema
		deploys map[uint64]string
	}{
		{
			name:    ContractRegistry,
			abiJSON: registryABIJSON,
			events: map[string]EventSchema{
				"SetServerURL": {
					Describe: func(params map[string]any) string {
						return fmt.Sprintf("%s set server URL to %s", model.FormatParam(params["staker"]), model.FormatParam(params["url"]))
					},
					ParamNames: []string{"staker", "url"},
				},
				"AddTokens":       {Describe: describeList("added", "tokens"), ParamNames: []string{"staker", "tokens"}},
				"RemoveTokens":    {Describe: describeList("removed", "tokens"), ParamNames: []string{"staker", "tokens"}},
				"AddProtocols":    {Describe: describeList("added", "protocols"), ParamNames: []string{"staker", "protocols"}},
				"RemoveProtocols": {Describe: describeList("removed", "protocols"), ParamNames: []string{"staker", "protocols"}},
			},
			deploys: registryDeploys,
		},
		{
			name:    ContractDelegate,
			abiJSON: delegateABIJSON,
			events: map[string]EventSchema{
				"DelegateSwap": {Description: "Delegated swap filled", ParamNames: []string{"nonce", "signerWallet"}},
				"SetRule": {
					Description: "Delegate rule set",
					ParamNames:  []string{"senderWallet", "senderToken", "senderAmount", "signerToken", "signerAmount", "expiry"},
				},
				"UnsetRule": {Description: "Delegate rule removed", ParamNames: []string{"senderWallet", "senderToken", "signerToken"}},
			},
		},
		{
			name:    ContractStaking,
			abiJSON: stakingABIJSON,
			events: map[string]EventSchema{
				"Transfer": {
					Describe: func(params map[string]any) string {
						from, _ := paramAddress(params, "from")
						to, _ := paramAddress(params, "to")
						amount := model.FormatParam(params["tokens"])
						switch {
						case from == (common.Address{}):
							return fmt.Sprintf("%s staked %s", to.Hex(), amount)
						case to == (common.Address{}):
							return fmt.Sprintf("%s unstaked %s", from.Hex(), amount)
						default:
							return fmt.Sprintf("%s moved %s stake to %s", from.Hex(), amount, to.Hex())
						}
					},
					ParamNames: []string{"from", "to", "tokens"},
				},
			},
			deploys: stakingDeploys,
		},
		{
			name:    ContractPool,
			abiJSON: poolABIJSON,
			events: map[string]EventSchema{
				"Enable":   {Description: "New rewards claim root enabled", ParamNames: []string{"root"}},
				"Withdraw": {Description: "Rewards claimed", ParamNames: []string{"account", "token", "amount", "score", "nonce", "expiry"}},
			},
		},
		{
			name:    ContractSwapERC20,
			abiJSON: swapERC20ABIJSON,
			events: map[string]EventSchema{
				"SwapERC20": {Description: "Swap", ParamNames: []string{"nonce", "signerWallet"}},
			},
			deploys: swapERC20Deploys,
		},
	}

	bindings := make([]*ContractBinding, 0, len(defs))
	for _, def := range defs {
		b, err := NewBinding(def.name, def.abiJSON, def.events, def.deploys)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b.WithDeploys(overrides[def.name]))
	}
	return bindings, nil
}

// ParseDeployOverrides reads "<Contract>:<chainID>" = "<address>" pairs.
func ParseDeployOverrides(raw map[string]string) (map[string]map[uint64]common.Address, error) {
	out := make(map[string]map[uint64]common.Address)
	for key, address := range raw {
		name, chainPart, ok := strings.Cut(key, ":")
		if !ok {
			return nil, fmt.Errorf("deploy override %q: expected <contract>:<chain id>", key)
		}
		var chainID uint64
		if _, err := fmt.Sscanf(chainPart, "%d", &chainID); err != nil {
			return nil, fmt.Errorf("deploy override %q: invalid chain id", key)
		}
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("deploy override %q: invalid address %q", key, address)
		}
		name = canonicalContractName(name)
		if out[name] == nil {
			out[name] = make(map[uint64]common.Address)
		}
		out[name][chainID] = common.HexToAddress(address)
	}
	return out, nil
}

func canonicalContractName(name string) string {
	for _, known := range []string{ContractRegistry, ContractDelegate, ContractStaking, ContractPool, ContractSwapERC20} {
		if strings.EqualFold(known, strings.TrimSpace(name)) {
			return known
		}
	}
	return strings.TrimSpace(name)
}
