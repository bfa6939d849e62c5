// Package config loads and validates the node's compile-time-selector
// configuration: the buffer/queue/ring sizing, the persistent-segment flash
// geometry, the domain table, and the ambient logging/metrics settings that
// a real firmware build would bake in as preprocessor macros (spec §6,
// "Compile-time selectors").
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/izot/lon-core/internal/bytesize"
)

// PlatformID enumerates the closed set of target platforms spec §6 names.
type PlatformID string

const (
	PlatformLinux     PlatformID = "linux"
	PlatformEmbedded  PlatformID = "embedded"
)

// LinkID enumerates the closed set of link HAL bindings spec §6 names.
type LinkID string

const (
	LinkEthernet LinkID = "ethernet"
	LinkWiFi     LinkID = "wifi"
	LinkMIP      LinkID = "mip"
	LinkUSB      LinkID = "usb"
	LinkPowerLine LinkID = "powerline"
)

// ProtocolID selects the wire framing: native LON or LON/IP (out of scope
// per spec §1 — this selector only gates which link binding is used).
type ProtocolID string

const (
	ProtocolLonNative ProtocolID = "lon_native"
	ProtocolLonIP     ProtocolID = "lon_ip"
)

// SecurityID selects the Transport-layer authentication generation. The
// cipher implementation itself is out of scope (spec §1 Non-goals); this
// core only needs the selector to size/gate AUTHPDU dispatch.
type SecurityID string

const (
	SecurityV1 SecurityID = "v1"
	SecurityV2 SecurityID = "v2"
)

// IsiID and IupID are closed-set feature selectors spec §6 lists alongside
// PLATFORM_ID/LINK_ID/PROTOCOL_ID/SECURITY_ID. Neither ISI (interoperable
// self-installation) nor IUP (image update protocol) logic lives in this
// core; the selectors exist purely so a node's build-time identity is
// fully captured in one place.
type IsiID string

const (
	IsiDisabled IsiID = "disabled"
	IsiEnabled  IsiID = "enabled"
)

type IupID string

const (
	IupDisabled IupID = "disabled"
	IupEnabled  IupID = "enabled"
)

// Config is the root configuration for a lon-core node.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (LONCTL_*) (highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Command-line flags are not merged into the configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Selectors captures the node's compile-time identity (spec §6).
	Selectors SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`

	// Network sizes and policies the Network Layer's queues and buffers.
	Network NetworkConfig `mapstructure:"network" yaml:"network"`

	// DataLink sizes the Data Link Layer's queues and configures its
	// transceiver interfaces.
	DataLink DataLinkConfig `mapstructure:"data_link" yaml:"data_link"`

	// Domain describes the node's domain table (up to two entries).
	Domain DomainConfig `mapstructure:"domain" yaml:"domain"`

	// Persistence configures the flash-backed segment manager.
	Persistence PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`

	// Metrics controls the Prometheus metrics HTTP server.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// SelectorsConfig captures the node's compile-time-selector identity
// (spec §6): which platform, link HAL, wire protocol, security
// generation, and optional ISI/IUP features this build carries.
type SelectorsConfig struct {
	Platform PlatformID `mapstructure:"platform" validate:"required,oneof=linux embedded" yaml:"platform"`
	Link     LinkID     `mapstructure:"link" validate:"required,oneof=ethernet wifi mip usb powerline" yaml:"link"`
	Protocol ProtocolID `mapstructure:"protocol" validate:"required,oneof=lon_native lon_ip" yaml:"protocol"`
	Security SecurityID `mapstructure:"security" validate:"required,oneof=v1 v2" yaml:"security"`
	Isi      IsiID      `mapstructure:"isi" validate:"required,oneof=disabled enabled" yaml:"isi"`
	Iup      IupID      `mapstructure:"iup" validate:"required,oneof=disabled enabled" yaml:"iup"`
}

// NetworkConfig sizes the Network Layer's queues and buffers (feeds
// network.Config).
type NetworkConfig struct {
	InBufSize  bytesize.ByteSize `mapstructure:"in_buf_size" validate:"required,gt=0" yaml:"in_buf_size"`
	OutBufSize bytesize.ByteSize `mapstructure:"out_buf_size" validate:"required,gt=0" yaml:"out_buf_size"`

	InQueueCount     int `mapstructure:"in_queue_count" validate:"required,gt=0" yaml:"in_queue_count"`
	OutQueueCount    int `mapstructure:"out_queue_count" validate:"required,gte=2" yaml:"out_queue_count"`
	OutPriQueueCount int `mapstructure:"out_pri_queue_count" validate:"required,gte=1" yaml:"out_pri_queue_count"`
	AppInQueueCount  int `mapstructure:"app_in_queue_count" validate:"required,gt=0" yaml:"app_in_queue_count"`
	TsaInQueueCount  int `mapstructure:"tsa_in_queue_count" validate:"required,gt=0" yaml:"tsa_in_queue_count"`

	// DropIfUnconfigured gates non-flex sends while the node is
	// uncommissioned (spec §4.4 step 4).
	DropIfUnconfigured bool `mapstructure:"drop_if_unconfigured" yaml:"drop_if_unconfigured"`
}

// InterfaceConfig describes one configured link-layer transceiver
// interface (spec §4.3 Reset: "typically one, more for products with
// multiple transceivers").
type InterfaceConfig struct {
	// Kind selects the transceiver family: mip, usb, or powerline.
	Kind string `mapstructure:"kind" validate:"required,oneof=mip usb powerline" yaml:"kind"`

	// Device is the host path (or identifier) the link HAL opens for this
	// interface — e.g. a serial device path or a loopback label.
	Device string `mapstructure:"device" validate:"required" yaml:"device"`
}

// DataLinkConfig sizes the Data Link Layer's queues and lists its
// configured interfaces (feeds datalink.Config).
type DataLinkConfig struct {
	Interfaces []InterfaceConfig `mapstructure:"interfaces" validate:"required,min=1,dive" yaml:"interfaces"`

	OutQueueCount    int               `mapstructure:"out_queue_count" validate:"required,gt=0" yaml:"out_queue_count"`
	OutPriQueueCount int               `mapstructure:"out_pri_queue_count" validate:"required,gt=0" yaml:"out_pri_queue_count"`
	OutBufSize       bytesize.ByteSize `mapstructure:"out_buf_size" validate:"required,gt=0" yaml:"out_buf_size"`

	// XcvrFetchInterval is the power-line transceiver parameter refresh
	// period (spec §4.3: "starts a 10-second repeat timer").
	XcvrFetchInterval time.Duration `mapstructure:"xcvr_fetch_interval" validate:"required,gt=0" yaml:"xcvr_fetch_interval"`
}

// DomainEntryConfig is one row of the node's domain table.
type DomainEntryConfig struct {
	// Id is the domain id, hex-encoded (e.g. "ab" for a 1-byte domain,
	// "" for a 0-byte domain). Its decoded length must be 0, 1, 3, or 6.
	Id string `mapstructure:"id" yaml:"id"`

	Subnet  uint8 `mapstructure:"subnet" yaml:"subnet"`
	Node    uint8 `mapstructure:"node" validate:"lte=127" yaml:"node"`
	Invalid bool  `mapstructure:"invalid" yaml:"invalid"`
}

// DomainConfig describes the node's domain table (spec §3: "Up to two
// domains per node").
type DomainConfig struct {
	TwoDomains bool                `mapstructure:"two_domains" yaml:"two_domains"`
	Entries    []DomainEntryConfig `mapstructure:"entries" validate:"max=2,dive" yaml:"entries"`
}

// PersistenceConfig configures the flash-backed segment manager (feeds
// persistence.Config and flashhal.NewFileDevice).
type PersistenceConfig struct {
	// FlashPath is the backing file for the reference FileDevice HAL.
	FlashPath string `mapstructure:"flash_path" validate:"required" yaml:"flash_path"`

	BlockSize bytesize.ByteSize `mapstructure:"block_size" validate:"required,gt=0" yaml:"block_size"`
	NumBlocks int               `mapstructure:"num_blocks" validate:"required,gt=0" yaml:"num_blocks"`

	// AppSignature identifies this application's persisted data; a mismatch
	// invalidates a segment on Restore (spec §4.5).
	AppSignature uint32 `mapstructure:"app_signature" yaml:"app_signature"`

	// GuardBand is the minimum quiescent interval before a dirty segment is
	// committed to flash (spec §4.5).
	GuardBand time.Duration `mapstructure:"guard_band" validate:"required,gt=0" yaml:"guard_band"`

	// MaxSegmentSize bounds every segment's payload capacity uniformly;
	// per-segment overrides are not exposed at this layer since the spec
	// does not call for differently-sized segments.
	MaxSegmentSize bytesize.ByteSize `mapstructure:"max_segment_size" validate:"required,gt=0" yaml:"max_segment_size"`
}

// MetricsConfig configures the Prometheus /metrics and /healthz HTTP
// server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with a user-friendly error when no config
// file exists at the resolved path.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Initialize one first:\n"+
				"  lonctl config init\n\n"+
				"Or specify a custom config file:\n"+
				"  lonctl <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Create it with:\n  lonctl config init --config %s", configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}
	if cfg.Domain.TwoDomains && len(cfg.Domain.Entries) < 2 {
		return fmt.Errorf("domain.two_domains is set but fewer than 2 domain entries are configured")
	}
	return nil
}

// SaveConfig writes cfg to path in YAML form.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("LONCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook lets config files use human-readable sizes like
// "1Gi", "500Mi", "100MB" for queue/ring/flash sizing fields.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "lonctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "lonctl")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir exposes the configuration directory path for the init
// command.
func GetConfigDir() string {
	return getConfigDir()
}
