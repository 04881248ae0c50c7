package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"golang.org/x/time/rate"

	"github.com/airswap/airswap-bot/internal/model"
)

const (
	discordSwapColor  = 0x2b71ff
	discordEventColor = 0x8a8a8a
)

type webhookSender struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newWebhookSender(perSecond float64) webhookSender {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return webhookSender{
		client:  &http.Client{Timeout: 8 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (s webhookSender) do(ctx context.Context, method, url string, body any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: retry after %q", ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 300:
		return fmt.Errorf("webhook http status %d", resp.StatusCode)
	}
	return nil
}

// Discord posts embeds to a swaps webhook and an events webhook. Either may be empty.
type Discord struct {
	swapsURL  string
	eventsURL string
	networks  Networks
	sender    webhookSender
}

// NewDiscord builds the Discord channel. perSecond caps requests, 0 disables the cap.
func NewDiscord(swapsURL, eventsURL string, networks Networks, perSecond float64) (*Discord, error) {
	if swapsURL == "" && eventsURL == "" {
		return nil, fmt.Errorf("discord webhook url required")
	}
	return &Discord{
		swapsURL:  swapsURL,
		eventsURL: eventsURL,
		networks:  networks,
		sender:    newWebhookSender(perSecond),
	}, nil
}

func (d *Discord) Name() string { return "discord" }

// Init fetches each webhook to check it exists.
func (d *Discord) Init(ctx context.Context) error {
	for _, url := range []string{d.swapsURL, d.eventsURL} {
		if url == "" {
			continue
		}
		if err := d.sender.do(ctx, http.MethodGet, url, nil); err != nil {
			return err
		}
	}
	return nil
}

func (d *Discord) Close() error { return nil }

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

func (d *Discord) PublishEvent(ctx context.Context, event model.DomainEvent) error {
	if d.eventsURL == "" {
		return nil
	}
	return d.sender.do(ctx, http.MethodPost, d.eventsURL, discordMessage{Embeds: []discordEmbed{d.eventEmbed(event)}})
}

func (d *Discord) PublishSwap(ctx context.Context, swap model.SwapEvent) error {
	if d.swapsURL == "" {
		return nil
	}
	return d.sender.do(ctx, http.MethodPost, d.swapsURL, discordMessage{Embeds: []discordEmbed{d.swapEmbed(swap)}})
}

func (d *Discord) eventEmbed(event model.DomainEvent) discordEmbed {
	fields := make([]discordField, 0, len(event.ParamOrder)+1)
	for _, kv := range event.OrderedParams() {
		fields = append(fields, discordField{Name: kv[0], Value: kv[1]})
	}
	fields = append(fields, discordField{
		Name:  "Chain",
		Value: fmt.Sprintf("[%s](%s)", d.networks.Name(event.ChainID), d.networks.receiptURL(event.ChainID, event.TxHash)),
	})
	return discordEmbed{
		Title:       event.EventName + " Event",
		Description: event.Description,
		URL:         d.networks.receiptURL(event.ChainID, event.TxHash),
		Color:       discordEventColor,
		Fields:      fields,
	}
}

func (d *Discord) swapEmbed(swap model.SwapEvent) discordEmbed {
	return discordEmbed{
		Title: "New Swap",
		URL:   d.networks.receiptURL(swap.ChainID, swap.TxHash),
		Color: discordSwapColor,
		Fields: []discordField{
			{Name: "Sender Tokens", Value: swap.SenderTokens, Inline: true},
			{Name: "Signer Tokens", Value: swap.SignerTokens, Inline: true},
			{Name: "Value", Value: FormatUSD(swap.SwapValueUSD)},
			{Name: "Protocol Fee", Value: FormatUSD(swap.ProtocolFeeValueUSD)},
			{
				Name:  "Signer Address",
				Value: fmt.Sprintf("[%s](%s)", MinifyAddress(swap.SignerWallet), d.networks.accountURL(swap.ChainID, swap.SignerWallet)),
			},
			{
				Name:  "Chain",
				Value: fmt.Sprintf("[%s](%s)", d.networks.Name(swap.ChainID), d.networks.receiptURL(swap.ChainID, swap.TxHash)),
			},
		},
		Timestamp: swap.Timestamp.Format(time.RFC3339),
	}
}

const (
	defaultSlackSwapTemplate  = "*Swap* {{usd .SwapValueUSD}} on {{chain .ChainID}}: {{.SignerTokens}} for {{.SenderTokens}} by {{short_addr .SignerWallet}} (fee {{usd .ProtocolFeeValueUSD}}) {{receipt .ChainID .TxHash}}"
	defaultSlackEventTemplate = "*{{.ContractName}} {{.EventName}}* on {{chain .ChainID}}: {{.Description}} {{receipt .ChainID .TxHash}}"
)

// Slack posts rendered text messages to an incoming webhook.
type Slack struct {
	url    string
	swap   *template.Template
	event  *template.Template
	sender webhookSender
}

// NewSlack builds a Slack channel. Empty templates fall back to the defaults.
func NewSlack(url, swapTmpl, eventTmpl string, networks Networks, perSecond float64) (*Slack, error) {
	if url == "" {
		return nil, fmt.Errorf("slack webhook url required")
	}
	if swapTmpl == "" {
		swapTmpl = defaultSlackSwapTemplate
	}
	if eventTmpl == "" {
		eventTmpl = defaultSlackEventTemplate
	}
	swap, err := parseTemplate("swap", swapTmpl, networks)
	if err != nil {
		return nil, err
	}
	event, err := parseTemplate("event", eventTmpl, networks)
	if err != nil {
		return nil, err
	}
	return &Slack{url: url, swap: swap, event: event, sender: newWebhookSender(perSecond)}, nil
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Init(context.Context) error {
	if !strings.HasPrefix(s.url, "http://") && !strings.HasPrefix(s.url, "https://") {
		return fmt.Errorf("slack webhook url must be http(s)")
	}
	return nil
}

func (s *Slack) Close() error { return nil }

func (s *Slack) PublishEvent(ctx context.Context, event model.DomainEvent) error {
	return s.send(ctx, s.event, event)
}

func (s *Slack) PublishSwap(ctx context.Context, swap model.SwapEvent) error {
	return s.send(ctx, s.swap, swap)
}

func (s *Slack) send(ctx context.Context, t *template.Template, data any) error {
	text, err := executeTemplate(t, data)
	if err != nil {
		return err
	}
	return s.sender.do(ctx, http.MethodPost, s.url, map[string]string{"text": text})
}

func parseTemplate(name, tmpl string, networks Networks) (*template.Template, error) {
	funcs := template.FuncMap{
		"usd":        FormatUSD,
		"compact":    CompactNumber,
		"short_addr": MinifyAddress,
		"chain":      networks.Name,
		"receipt":    networks.receiptURL,
		"account":    networks.accountURL,
	}
	t, err := template.New(name).Funcs(funcs).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	return t, nil
}

func executeTemplate(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}
