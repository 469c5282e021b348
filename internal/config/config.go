package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Gateway       GatewayConfig
	Notify        NotifyConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path      string
	LogTiming bool
}

type AuthConfig struct {
	AdminJWTSecret string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ObservabilityConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
}

// GatewayConfig is the AbacatePay configuration surface. It is read-only after Load.
type GatewayConfig struct {
	Enabled        bool
	Title          string
	Description    string
	DevMode        bool
	DevAPIKey      string
	ProdAPIKey     string
	PaymentMethods []abacatepay.PaymentMethod
	WebhookURL     string
	ReturnURL      string
	BaseURL        string
	Timeout        time.Duration
	PixExpiresIn   time.Duration
}

type NotifyConfig struct {
	SinkURL string
	Source  string
	Timeout time.Duration
}

func Load() (Config, error) {
	return load(true)
}

// LoadForTool loads config for CLI tools that do not require the admin JWT secret.
func LoadForTool() (Config, error) {
	return load(false)
}

func load(requireAdminSecret bool) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("abacate_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("abacate_port", 8080)
	v.SetDefault("abacate_db_path", "data/abacate")
	v.SetDefault("abacate_db_timing", false)
	v.SetDefault("abacate_admin_jwt_secret", "")
	v.SetDefault("abacate_log_level", "info")
	v.SetDefault("abacate_log_format", "text")
	v.SetDefault("abacate_otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_exporter_otlp_traces_headers", "")
	v.SetDefault("otel_exporter_otlp_metrics_headers", "")
	v.SetDefault("otel_service_name", "abacate")
	v.SetDefault("abacate_version", "dev")
	v.SetDefault("otel_service_version", "")
	v.SetDefault("abacate_otel_sampling_ratio", 1.0)
	v.SetDefault("abacate_otel_metrics_console", false)
	v.SetDefault("abacatepay_enabled", false)
	v.SetDefault("abacatepay_title", "AbacatePay")
	v.SetDefault("abacatepay_description", "Pay with PIX or card through AbacatePay")
	v.SetDefault("abacatepay_dev_mode", true)
	v.SetDefault("abacatepay_api_key_dev", "")
	v.SetDefault("abacatepay_api_key_prod", "")
	v.SetDefault("abacatepay_payment_methods", "PIX,CARD")
	v.SetDefault("abacatepay_webhook_url", "")
	v.SetDefault("abacatepay_base_url", abacatepay.DefaultBaseURL)
	v.SetDefault("abacatepay_timeout", abacatepay.DefaultTimeout)
	v.SetDefault("abacatepay_pix_expires_in", time.Hour)
	v.SetDefault("abacate_return_url", "")
	v.SetDefault("abacate_notify_sink_url", "")
	v.SetDefault("abacate_notify_source", "abacate")
	v.SetDefault("abacate_notify_timeout", 5*time.Second)

	env := resolveEnvironment(v)
	port := v.GetInt("abacate_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid ABACATE_PORT: %d", port)
	}

	samplingRatio := v.GetFloat64("abacate_otel_sampling_ratio")
	if samplingRatio < 0 {
		samplingRatio = 0
	}
	if samplingRatio > 1 {
		samplingRatio = 1
	}

	methods, err := abacatepay.ParsePaymentMethods(v.GetString("abacatepay_payment_methods"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ABACATEPAY_PAYMENT_METHODS: %w", err)
	}

	timeout := v.GetDuration("abacatepay_timeout")
	if timeout <= 0 {
		timeout = abacatepay.DefaultTimeout
	}
	pixExpiresIn := v.GetDuration("abacatepay_pix_expires_in")
	if pixExpiresIn <= 0 {
		pixExpiresIn = time.Hour
	}

	webhookURL := strings.TrimSpace(v.GetString("abacatepay_webhook_url"))
	if webhookURL == "" {
		webhookURL = fmt.Sprintf("http://localhost:%d/abacatepay/v1/webhook", port)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(v.GetString("abacatepay_base_url")), "/")
	if baseURL == "" {
		baseURL = abacatepay.DefaultBaseURL
	}

	serviceName := strings.TrimSpace(v.GetString("otel_service_name"))
	if serviceName == "" {
		serviceName = "abacate"
	}

	serviceVersion := strings.TrimSpace(v.GetString("abacate_version"))
	if serviceVersion == "" {
		serviceVersion = strings.TrimSpace(v.GetString("otel_service_version"))
	}
	if serviceVersion == "" {
		serviceVersion = "dev"
	}

	otlpEndpoint := strings.TrimSpace(v.GetString("otel_exporter_otlp_endpoint"))
	otlpCommonHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_headers"))
	otlpTraceHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_traces_headers"))
	otlpMetricHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_metrics_headers"))
	metricsConsole := v.GetBool("abacate_otel_metrics_console")
	otelEnabled := v.GetBool("abacate_otel_enabled") || otlpEndpoint != "" || metricsConsole
	traceHeaders := mergeHeaderMaps(otlpCommonHeaders, otlpTraceHeaders)
	metricHeaders := mergeHeaderMaps(otlpCommonHeaders, otlpMetricHeaders)

	logFormat := strings.ToLower(strings.TrimSpace(v.GetString("abacate_log_format")))
	if logFormat != "text" && logFormat != "json" {
		return Config{}, fmt.Errorf("invalid ABACATE_LOG_FORMAT: %q", logFormat)
	}

	notifyTimeout := v.GetDuration("abacate_notify_timeout")
	if notifyTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid ABACATE_NOTIFY_TIMEOUT: %s", notifyTimeout)
	}

	cfg := Config{
		Environment: env,
		Server:      ServerConfig{Port: port},
		Logging: LoggingConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("abacate_log_level"))),
			Format: logFormat,
		},
		Database: DatabaseConfig{
			Path:      strings.TrimSpace(v.GetString("abacate_db_path")),
			LogTiming: v.GetBool("abacate_db_timing"),
		},
		Auth: AuthConfig{
			AdminJWTSecret: strings.TrimSpace(v.GetString("abacate_admin_jwt_secret")),
		},
		Observability: ObservabilityConfig{
			Enabled:           otelEnabled,
			OTLPEndpoint:      otlpEndpoint,
			OTLPTraceHeaders:  traceHeaders,
			OTLPMetricHeaders: metricHeaders,
			ServiceName:       serviceName,
			ServiceVer:        serviceVersion,
			SamplingRatio:     samplingRatio,
			MetricsConsole:    metricsConsole,
		},
		Gateway: GatewayConfig{
			Enabled:        v.GetBool("abacatepay_enabled"),
			Title:          strings.TrimSpace(v.GetString("abacatepay_title")),
			Description:    strings.TrimSpace(v.GetString("abacatepay_description")),
			DevMode:        v.GetBool("abacatepay_dev_mode"),
			DevAPIKey:      strings.TrimSpace(v.GetString("abacatepay_api_key_dev")),
			ProdAPIKey:     strings.TrimSpace(v.GetString("abacatepay_api_key_prod")),
			PaymentMethods: methods,
			WebhookURL:     webhookURL,
			ReturnURL:      strings.TrimSpace(v.GetString("abacate_return_url")),
			BaseURL:        baseURL,
			Timeout:        timeout,
			PixExpiresIn:   pixExpiresIn,
		},
		Notify: NotifyConfig{
			SinkURL: strings.TrimSpace(v.GetString("abacate_notify_sink_url")),
			Source:  strings.TrimSpace(v.GetString("abacate_notify_source")),
			Timeout: notifyTimeout,
		},
	}

	if strings.TrimSpace(cfg.Database.Path) == "" {
		cfg.Database.Path = "data/abacate"
	}
	if requireAdminSecret && !cfg.IsLocalDevelopment() && cfg.Auth.AdminJWTSecret == "" {
		return Config{}, fmt.Errorf("ABACATE_ADMIN_JWT_SECRET is required outside local/dev environments")
	}
	if cfg.IsLocalDevelopment() && cfg.Auth.AdminJWTSecret == "" {
		cfg.Auth.AdminJWTSecret = "abacate-local-dev"
	}

	return cfg, nil
}

// Credentials returns the key pair with the active mode applied.
func (g GatewayConfig) Credentials() abacatepay.Credentials {
	return abacatepay.Credentials{DevMode: g.DevMode, DevKey: g.DevAPIKey, ProdKey: g.ProdAPIKey}
}

func parseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair := strings.SplitN(part, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimSpace(pair[0])
		value := strings.TrimSpace(pair[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"abacate_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}

// Client returns a Provider client bound to the active key.
func (g GatewayConfig) Client(httpClient *http.Client, log *slog.Logger) abacatepay.Client {
	return abacatepay.Client{
		BaseURL:    g.BaseURL,
		APIKey:     g.Credentials().Current(),
		Timeout:    g.Timeout,
		HTTPClient: httpClient,
		Logger:     log,
	}
}
