package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// ExecutorModePsql は外部プロセス (psql) でスクリプトを適用するモードです。
	ExecutorModePsql = "psql"
	// ExecutorModePostgres は pgx で直接接続して適用するモードです。
	ExecutorModePostgres = "postgres"

	defaultAPIKeyEnv  = "MINIJOBBER_CLOUD_KEY"
	defaultScriptPath = "/tmp/minijobber_sync.sql"
	defaultSyncRole   = "Minijobber"
)

var defaultExecutorCommand = []string{"docker", "compose", "exec", "-T", "db", "psql", "-U", "supabase_admin", "-d", "postgres"}

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Tenant   TenantConfig   `yaml:"tenant"`
	Remote   RemoteConfig   `yaml:"remote"`
	Output   OutputConfig   `yaml:"output"`
	Executor ExecutorConfig `yaml:"executor"`
	Database DatabaseConfig `yaml:"database"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Log      LogConfig      `yaml:"log"`
}

// TenantConfig は同期先テナントと固定 ID に関する設定です。
type TenantConfig struct {
	PharmacyID        string              `yaml:"pharmacy_id"`
	SyncRole          string              `yaml:"sync_role"`
	FixedEmployee     FixedEmployeeConfig `yaml:"fixed_employee"`
	PreservedStaffIDs []string            `yaml:"preserved_staff_ids"`
}

// FixedEmployeeConfig は既存のスタッフレコードに固定で紐づけるリモート社員です。
type FixedEmployeeConfig struct {
	RemoteID string `yaml:"remote_id"`
	LocalID  string `yaml:"local_id"`
}

// Enabled は固定マッピングが設定されているかを返します。
func (f FixedEmployeeConfig) Enabled() bool {
	return f.RemoteID != ""
}

// RemoteConfig は取得元 API に関する設定です。
type RemoteConfig struct {
	URL        string            `yaml:"url"`
	APIKeyEnv  string            `yaml:"api_key_env"`
	PageSize   int               `yaml:"page_size"`
	Timeout    time.Duration     `yaml:"-"`
	TimeoutRaw string            `yaml:"timeout"`
	Tables     map[string]string `yaml:"tables"`
}

// APIKey は環境変数から認証キーを取得します。
func (r RemoteConfig) APIKey() string {
	return strings.TrimSpace(os.Getenv(r.APIKeyEnv))
}

// OutputConfig は生成スクリプトの出力先です。
type OutputConfig struct {
	ScriptPath string `yaml:"script_path"`
}

// ExecutorConfig はスクリプト適用方法の設定です。
type ExecutorConfig struct {
	Mode    string   `yaml:"mode"`
	Command []string `yaml:"command"`
	Workdir string   `yaml:"workdir"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// DefaultsConfig はリモートで欠損している社員属性の既定値です。
type DefaultsConfig struct {
	EmployeeName      string          `yaml:"employee_name"`
	JobType           string          `yaml:"job_type"`
	HourlyRate        decimal.Decimal `yaml:"-"`
	MonthlyPayment    decimal.Decimal `yaml:"-"`
	HoursBalance      decimal.Decimal `yaml:"-"`
	HourlyRateRaw     string          `yaml:"hourly_rate"`
	MonthlyPaymentRaw string          `yaml:"monthly_payment"`
	HoursBalanceRaw   string          `yaml:"hours_balance"`
}

// LogConfig はログ出力の設定です。
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if err := c.Tenant.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Remote.validateAndNormalize(); err != nil {
		return err
	}
	if c.Output.ScriptPath == "" {
		c.Output.ScriptPath = defaultScriptPath
	}
	if err := c.Executor.validateAndNormalize(); err != nil {
		return err
	}
	if c.Executor.Mode == ExecutorModePostgres {
		if err := c.Database.validateAndNormalize(); err != nil {
			return err
		}
	}
	if err := c.Defaults.validateAndNormalize(); err != nil {
		return err
	}
	return c.Log.validateAndNormalize()
}

func (t *TenantConfig) validateAndNormalize() error {
	if t.PharmacyID == "" {
		return fmt.Errorf("config: tenant.pharmacy_id must be set")
	}
	if _, err := uuid.Parse(t.PharmacyID); err != nil {
		return fmt.Errorf("config: tenant.pharmacy_id: %w", err)
	}
	if t.SyncRole == "" {
		t.SyncRole = defaultSyncRole
	}

	fixed := t.FixedEmployee
	if fixed.RemoteID != "" || fixed.LocalID != "" {
		if fixed.RemoteID == "" {
			return fmt.Errorf("config: tenant.fixed_employee.remote_id must be set")
		}
		if _, err := uuid.Parse(fixed.LocalID); err != nil {
			return fmt.Errorf("config: tenant.fixed_employee.local_id: %w", err)
		}
	}

	for i, id := range t.PreservedStaffIDs {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("config: tenant.preserved_staff_ids[%d]: %w", i, err)
		}
	}
	return nil
}

func (r *RemoteConfig) validateAndNormalize() error {
	if r.URL == "" {
		return fmt.Errorf("config: remote.url must be set")
	}
	if _, err := url.ParseRequestURI(r.URL); err != nil {
		return fmt.Errorf("config: remote.url: %w", err)
	}
	r.URL = strings.TrimRight(r.URL, "/")
	if r.APIKeyEnv == "" {
		r.APIKeyEnv = defaultAPIKeyEnv
	}
	if r.PageSize < 0 {
		return fmt.Errorf("config: remote.page_size must not be negative")
	}

	timeout, err := parseDurationAllowEmpty(r.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: remote.timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	r.Timeout = timeout
	return nil
}

func (e *ExecutorConfig) validateAndNormalize() error {
	if e.Mode == "" {
		e.Mode = ExecutorModePsql
	}
	switch e.Mode {
	case ExecutorModePsql:
		if len(e.Command) == 0 {
			e.Command = append([]string(nil), defaultExecutorCommand...)
		}
	case ExecutorModePostgres:
	default:
		return fmt.Errorf("config: executor.mode %q is not supported", e.Mode)
	}
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (d *DefaultsConfig) validateAndNormalize() error {
	if d.EmployeeName == "" {
		d.EmployeeName = "Unbekannt"
	}
	if d.JobType == "" {
		d.JobType = "Autobote"
	}

	var err error
	if d.HourlyRate, err = parseDecimalOr(d.HourlyRateRaw, "12.41"); err != nil {
		return fmt.Errorf("config: defaults.hourly_rate: %w", err)
	}
	if d.MonthlyPayment, err = parseDecimalOr(d.MonthlyPaymentRaw, "538"); err != nil {
		return fmt.Errorf("config: defaults.monthly_payment: %w", err)
	}
	if d.HoursBalance, err = parseDecimalOr(d.HoursBalanceRaw, "0"); err != nil {
		return fmt.Errorf("config: defaults.hours_balance: %w", err)
	}
	return nil
}

func (l *LogConfig) validateAndNormalize() error {
	if l.Level == "" {
		l.Level = "info"
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is not supported", l.Level)
	}

	if l.Format == "" {
		l.Format = "text"
	}
	if l.Format != "text" && l.Format != "json" {
		return fmt.Errorf("config: log.format %q is not supported", l.Format)
	}

	if l.MaxSizeMB == 0 {
		l.MaxSizeMB = 10
	}
	if l.MaxBackups == 0 {
		l.MaxBackups = 3
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

func parseDecimalOr(raw, fallback string) (decimal.Decimal, error) {
	if raw == "" {
		raw = fallback
	}
	return decimal.NewFromString(raw)
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
