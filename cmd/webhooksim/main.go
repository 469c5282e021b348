package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fr0stylo/abacate/internal/config"
	"github.com/fr0stylo/abacate/internal/server/routes"
	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Key == "" {
		appCfg, err := config.LoadForTool()
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
			os.Exit(1)
		}
		cfg.Key = appCfg.Gateway.Credentials().Current()
	}
	if cfg.Key == "" {
		fmt.Fprintln(os.Stderr, "no signing key: set key in the config or the AbacatePay API key of the active mode")
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	if cfg.Interval == "" {
		if err := sendAll(context.Background(), client, cfg, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "webhook error:", err)
			os.Exit(1)
		}
		return
	}

	interval, _ := time.ParseDuration(cfg.Interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := sendAll(context.Background(), client, cfg, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "webhook error:", err)
		}
		<-ticker.C
	}
}

func loadConfig(path string) (simConfig, error) {
	if strings.TrimSpace(path) == "" {
		return simConfig{}, fmt.Errorf("config path is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("header", headerSignature)
	if err := v.ReadInConfig(); err != nil {
		return simConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg simConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return simConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Key = strings.TrimSpace(cfg.Key)
	cfg.Header = strings.ToLower(strings.TrimSpace(cfg.Header))
	cfg.Interval = strings.TrimSpace(cfg.Interval)

	if cfg.BaseURL == "" {
		return simConfig{}, fmt.Errorf("config must include base_url")
	}
	if cfg.Header != headerSignature && cfg.Header != headerBearer {
		return simConfig{}, fmt.Errorf("header must be %q or %q", headerSignature, headerBearer)
	}
	if len(cfg.Events) == 0 {
		return simConfig{}, fmt.Errorf("config must include at least one event")
	}
	for i, event := range cfg.Events {
		if strings.TrimSpace(event.Body) == "" && strings.TrimSpace(event.Event) == "" {
			return simConfig{}, fmt.Errorf("events[%d] needs event or body", i)
		}
	}
	if cfg.Interval != "" {
		parsed, err := time.ParseDuration(cfg.Interval)
		if err != nil {
			return simConfig{}, fmt.Errorf("invalid interval duration: %w", err)
		}
		if parsed <= 0 {
			return simConfig{}, fmt.Errorf("interval must be positive")
		}
	}

	return cfg, nil
}

func sendAll(ctx context.Context, client *http.Client, cfg simConfig, out io.Writer) error {
	for _, event := range cfg.Events {
		if err := sendWebhook(ctx, client, cfg, event, out); err != nil {
			return err
		}
	}
	return nil
}

func eventBody(event eventConfig) ([]byte, error) {
	if strings.TrimSpace(event.Body) != "" {
		return []byte(event.Body), nil
	}
	data := event.Data
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(map[string]any{"event": event.Event, "data": data})
}

func sendWebhook(ctx context.Context, client *http.Client, cfg simConfig, event eventConfig, out io.Writer) error {
	body, err := eventBody(event)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+routes.WebhookPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	signature := abacatepay.Sign(body, cfg.Key)
	if cfg.Header == headerBearer {
		request.Header.Set(abacatepay.AuthorizationHeader, abacatepay.BearerPrefix+signature)
	} else {
		request.Header.Set(abacatepay.SignatureHeader, signature)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook failed: %s %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	fmt.Fprintf(out, "Webhook status: %s (%s) %s\n", resp.Status, event.Event, strings.TrimSpace(string(payload)))
	return nil
}
