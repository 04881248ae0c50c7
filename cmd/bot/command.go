package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/airswap/airswap-bot/internal/command"
	"github.com/airswap/airswap-bot/internal/config"
)

func runCommand(cmd *cobra.Command, args []string) error {
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

	text := strings.Join(args, " ")

	if cfg.AdminAddr != "" {
		reply, err := postCommand(cfg.AdminAddr, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	}

	store, err := config.OpenStore(cfg.StorePath)
	if err != nil {
		return err
	}
	reply, err := command.NewExecutor(store, nil, logger).Run(text)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}

func postCommand(addr, text string) (string, error) {
	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimSuffix(url, "/") + "/command"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "text/plain", strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("post command: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Reply string `json:"reply"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("command rejected (%d): %s", resp.StatusCode, body.Error)
	}
	return body.Reply, nil
}
