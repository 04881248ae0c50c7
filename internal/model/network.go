package model

import (
	"fmt"
	"strings"
)

// TransportKind selects how logs are delivered for a chain.
type TransportKind string

const (
	TransportPush TransportKind = "push"
	TransportPoll TransportKind = "poll"
)

// ChainNetwork describes one supported chain. Values are immutable after construction.
type ChainNetwork struct {
	ChainID       uint64        `json:"chain_id"`
	Name          string        `json:"name"`
	Label         string        `json:"label"`
	Transport     TransportKind `json:"transport"`
	HTTPTemplate  string        `json:"http_template"`
	WSTemplate    string        `json:"ws_template"`
	ExplorerURL   string        `json:"explorer_url"`
	WrappedNative string        `json:"wrapped_native"`
	Reference     TokenInfo     `json:"reference"`
}

// HTTPURL renders the request/response endpoint for a provider credential.
func (n ChainNetwork) HTTPURL(credential string) string {
	return renderTemplate(n.HTTPTemplate, n.Label, credential)
}

// WSURL renders the streaming endpoint for a provider credential.
func (n ChainNetwork) WSURL(credential string) string {
	return renderTemplate(n.WSTemplate, n.Label, credential)
}

// ReceiptURL links a transaction on the chain's block explorer.
func (n ChainNetwork) ReceiptURL(txHash string) string {
	if n.ExplorerURL == "" {
		return txHash
	}
	return fmt.Sprintf("%s/tx/%s", strings.TrimRight(n.ExplorerURL, "/"), txHash)
}

// AccountURL links an address on the chain's block explorer.
func (n ChainNetwork) AccountURL(address string) string {
	if n.ExplorerURL == "" {
		return address
	}
	return fmt.Sprintf("%s/address/%s", strings.TrimRight(n.ExplorerURL, "/"), address)
}

func renderTemplate(tmpl, label, credential string) string {
	r := strings.NewReplacer("{label}", strings.ToLower(label), "{key}", credential)
	return r.Replace(tmpl)
}
