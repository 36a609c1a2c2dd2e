package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "BANVIC"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Locale    LocaleConfig    `yaml:"locale" envconfig:"LOCALE"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/dashboard.log"`
}

// DataConfig locates the seven BanVic CSV extracts.
type DataConfig struct {
	Dir              string `yaml:"dir" envconfig:"DIR" default:"data"`
	Branches         string `yaml:"branches" envconfig:"BRANCHES" default:"agencias.csv"`
	Customers        string `yaml:"customers" envconfig:"CUSTOMERS" default:"clientes.csv"`
	EmployeeBranches string `yaml:"employee_branches" envconfig:"EMPLOYEE_BRANCHES" default:"colaborador_agencia.csv"`
	Employees        string `yaml:"employees" envconfig:"EMPLOYEES" default:"colaboradores.csv"`
	Accounts         string `yaml:"accounts" envconfig:"ACCOUNTS" default:"contas.csv"`
	Proposals        string `yaml:"proposals" envconfig:"PROPOSALS" default:"propostas_credito.csv"`
	Transactions     string `yaml:"transactions" envconfig:"TRANSACTIONS" default:"transacoes.csv"`
}

// DataFile names one source table and where it lives on disk.
type DataFile struct {
	Table string
	Path  string
}

// Files returns the source files in load order.
func (d DataConfig) Files() []DataFile {
	return []DataFile{
		{Table: TableBranches, Path: d.path(d.Branches)},
		{Table: TableCustomers, Path: d.path(d.Customers)},
		{Table: TableEmployeeBranches, Path: d.path(d.EmployeeBranches)},
		{Table: TableEmployees, Path: d.path(d.Employees)},
		{Table: TableAccounts, Path: d.path(d.Accounts)},
		{Table: TableProposals, Path: d.path(d.Proposals)},
		{Table: TableTransactions, Path: d.path(d.Transactions)},
	}
}

func (d DataConfig) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.Dir, name)
}

// LocaleConfig holds the display labels used by the feature deriver and filters.
type LocaleConfig struct {
	// Weekdays lists labels Monday first.
	Weekdays     []string `yaml:"weekdays" envconfig:"WEEKDAYS" default:"Seg,Ter,Qua,Qui,Sex,Sáb,Dom"`
	PeriodStart  string   `yaml:"period_start" envconfig:"PERIOD_START" default:"start"`
	PeriodEnd    string   `yaml:"period_end" envconfig:"PERIOD_END" default:"end"`
	AllCustomers string   `yaml:"all_customers" envconfig:"ALL_CUSTOMERS" default:"All Customers"`
	Unknown      string   `yaml:"unknown" envconfig:"UNKNOWN" default:"unknown"`
}

// ReportConfig tunes report generation.
type ReportConfig struct {
	TopN       int    `yaml:"top_n" envconfig:"TOP_N" default:"10"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR" default:"exports"`
}

// TelemetryConfig controls OpenTelemetry setup
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"banvic-dashboard"`
	Environment   string `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	EnableMetrics bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
	// TraceExporter is one of "none" or "stdout".
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and an optional YAML file.
// Variables that are explicitly set in the environment win over the file; the
// file wins over built-in defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configFile, err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// fileConfig is a parsed config file. The switches record which boolean keys
// the file sets, because false cannot be told apart from an absent key.
type fileConfig struct {
	Config
	switches fileSwitches
}

type fileSwitches struct {
	Security struct {
		EnableCORS *bool `yaml:"enable_cors"`
		RateLimit  struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Telemetry struct {
		EnableMetrics *bool `yaml:"enable_metrics"`
	} `yaml:"telemetry"`
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*fileConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg.Config); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg.switches); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays non-zero file values and the boolean switches the
// file sets onto the env config, unless the matching variable was set
// explicitly.
func mergeConfigs(file fileConfig, env Config) Config {
	overlay(&env.Server.Host, file.Server.Host, "SERVER_HOST")
	overlay(&env.Server.Port, file.Server.Port, "SERVER_PORT")
	overlay(&env.Server.ReadTimeout, file.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	overlay(&env.Server.WriteTimeout, file.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	overlay(&env.Server.IdleTimeout, file.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	overlay(&env.Server.MaxHeaderBytes, file.Server.MaxHeaderBytes, "SERVER_MAX_HEADER_BYTES")
	overlay(&env.Server.ShutdownTimeout, file.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")
	overlay(&env.Server.RequestTimeout, file.Server.RequestTimeout, "SERVER_REQUEST_TIMEOUT")

	overlaySlice(&env.Security.AllowedOrigins, file.Security.AllowedOrigins, "SECURITY_ALLOWED_ORIGINS")
	overlayBool(&env.Security.EnableCORS, file.switches.Security.EnableCORS, "SECURITY_ENABLE_CORS")
	overlayBool(&env.Security.RateLimit.Enabled, file.switches.Security.RateLimit.Enabled, "SECURITY_RATE_LIMIT_ENABLED")
	overlay(&env.Security.RateLimit.RPS, file.Security.RateLimit.RPS, "SECURITY_RATE_LIMIT_RPS")
	overlay(&env.Security.RateLimit.Burst, file.Security.RateLimit.Burst, "SECURITY_RATE_LIMIT_BURST")

	overlay(&env.Logging.Level, file.Logging.Level, "LOGGING_LEVEL")
	overlay(&env.Logging.Format, file.Logging.Format, "LOGGING_FORMAT")
	overlay(&env.Logging.Output, file.Logging.Output, "LOGGING_OUTPUT")
	overlay(&env.Logging.FilePath, file.Logging.FilePath, "LOGGING_FILE_PATH")

	overlay(&env.Data.Dir, file.Data.Dir, "DATA_DIR")
	overlay(&env.Data.Branches, file.Data.Branches, "DATA_BRANCHES")
	overlay(&env.Data.Customers, file.Data.Customers, "DATA_CUSTOMERS")
	overlay(&env.Data.EmployeeBranches, file.Data.EmployeeBranches, "DATA_EMPLOYEE_BRANCHES")
	overlay(&env.Data.Employees, file.Data.Employees, "DATA_EMPLOYEES")
	overlay(&env.Data.Accounts, file.Data.Accounts, "DATA_ACCOUNTS")
	overlay(&env.Data.Proposals, file.Data.Proposals, "DATA_PROPOSALS")
	overlay(&env.Data.Transactions, file.Data.Transactions, "DATA_TRANSACTIONS")

	overlaySlice(&env.Locale.Weekdays, file.Locale.Weekdays, "LOCALE_WEEKDAYS")
	overlay(&env.Locale.PeriodStart, file.Locale.PeriodStart, "LOCALE_PERIOD_START")
	overlay(&env.Locale.PeriodEnd, file.Locale.PeriodEnd, "LOCALE_PERIOD_END")
	overlay(&env.Locale.AllCustomers, file.Locale.AllCustomers, "LOCALE_ALL_CUSTOMERS")
	overlay(&env.Locale.Unknown, file.Locale.Unknown, "LOCALE_UNKNOWN")

	overlay(&env.Report.TopN, file.Report.TopN, "REPORT_TOP_N")
	overlay(&env.Report.ExportsDir, file.Report.ExportsDir, "REPORT_EXPORTS_DIR")

	overlay(&env.Telemetry.ServiceName, file.Telemetry.ServiceName, "TELEMETRY_SERVICE_NAME")
	overlay(&env.Telemetry.Environment, file.Telemetry.Environment, "TELEMETRY_ENVIRONMENT")
	overlayBool(&env.Telemetry.EnableMetrics, file.switches.Telemetry.EnableMetrics, "TELEMETRY_ENABLE_METRICS")
	overlay(&env.Telemetry.TraceExporter, file.Telemetry.TraceExporter, "TELEMETRY_TRACE_EXPORTER")

	overlay(&env.WebSocket.ReadBufferSize, file.WebSocket.ReadBufferSize, "WEBSOCKET_READ_BUFFER_SIZE")
	overlay(&env.WebSocket.WriteBufferSize, file.WebSocket.WriteBufferSize, "WEBSOCKET_WRITE_BUFFER_SIZE")
	overlay(&env.WebSocket.PingPeriod, file.WebSocket.PingPeriod, "WEBSOCKET_PING_PERIOD")
	overlay(&env.WebSocket.PongWait, file.WebSocket.PongWait, "WEBSOCKET_PONG_WAIT")

	return env
}

func overlay[T comparable](dst *T, fileValue T, key string) {
	var zero T
	if fileValue == zero || envSet(key) {
		return
	}
	*dst = fileValue
}

func overlayBool(dst *bool, fileValue *bool, key string) {
	if fileValue == nil || envSet(key) {
		return
	}
	*dst = *fileValue
}

func overlaySlice(dst *[]string, fileValue []string, key string) {
	if len(fileValue) == 0 || envSet(key) {
		return
	}
	*dst = fileValue
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Data.Dir == "" {
		return fmt.Errorf("data directory must be set")
	}

	if c.Report.TopN <= 0 {
		return fmt.Errorf("report top_n must be positive, got %d", c.Report.TopN)
	}

	c.Locale = c.Locale.Normalized()
	if err := c.Locale.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Telemetry.TraceExporter) {
	case "", "none", "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter %q", c.Telemetry.TraceExporter)
	}

	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "file", "both":
	default:
		c.Logging.Output = "stdout"
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	return nil
}

// Normalized returns a copy with surrounding whitespace trimmed from every label.
func (l LocaleConfig) Normalized() LocaleConfig {
	out := l
	out.Weekdays = make([]string, len(l.Weekdays))
	for i, label := range l.Weekdays {
		out.Weekdays[i] = strings.TrimSpace(label)
	}
	out.PeriodStart = strings.TrimSpace(l.PeriodStart)
	out.PeriodEnd = strings.TrimSpace(l.PeriodEnd)
	out.AllCustomers = strings.TrimSpace(l.AllCustomers)
	out.Unknown = strings.TrimSpace(l.Unknown)
	return out
}

// Validate fails fast on a malformed weekday table so label lookup stays total.
// Labels are compared after trimming.
func (l LocaleConfig) Validate() error {
	l = l.Normalized()

	if len(l.Weekdays) != 7 {
		return fmt.Errorf("locale weekdays must have exactly 7 entries, got %d", len(l.Weekdays))
	}

	seen := make(map[string]struct{}, 7)
	for i, label := range l.Weekdays {
		if label == "" {
			return fmt.Errorf("locale weekday %d is empty", i)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("locale weekday %q is duplicated", label)
		}
		seen[label] = struct{}{}
	}

	if l.PeriodStart == "" || l.PeriodEnd == "" {
		return fmt.Errorf("locale period labels must be set")
	}
	if l.PeriodStart == l.PeriodEnd {
		return fmt.Errorf("locale period labels must differ, both are %q", l.PeriodStart)
	}
	if l.AllCustomers == "" {
		return fmt.Errorf("locale all_customers sentinel must be set")
	}
	if l.Unknown == "" {
		return fmt.Errorf("locale unknown sentinel must be set")
	}

	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/dashboard.log",
		},
		Data: DataConfig{
			Dir:              DefaultDataDir,
			Branches:         "agencias.csv",
			Customers:        "clientes.csv",
			EmployeeBranches: "colaborador_agencia.csv",
			Employees:        "colaboradores.csv",
			Accounts:         "contas.csv",
			Proposals:        "propostas_credito.csv",
			Transactions:     "transacoes.csv",
		},
		Locale: LocaleConfig{
			Weekdays:     append([]string(nil), DefaultWeekdays...),
			PeriodStart:  "start",
			PeriodEnd:    "end",
			AllCustomers: "All Customers",
			Unknown:      "unknown",
		},
		Report: ReportConfig{
			TopN:       DefaultTopN,
			ExportsDir: "exports",
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			Environment:   "development",
			EnableMetrics: true,
			TraceExporter: "none",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
