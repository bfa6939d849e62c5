package config

import (
	"strings"
	"time"

	"github.com/izot/lon-core/internal/bytesize"
)

// ApplyDefaults fills in any unspecified configuration fields with
// sensible defaults. Called after loading from file/environment so
// explicit values are always preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applySelectorsDefaults(&cfg.Selectors)
	applyNetworkDefaults(&cfg.Network)
	applyDataLinkDefaults(&cfg.DataLink)
	applyDomainDefaults(&cfg.Domain)
	applyPersistenceDefaults(&cfg.Persistence)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applySelectorsDefaults(cfg *SelectorsConfig) {
	if cfg.Platform == "" {
		cfg.Platform = PlatformLinux
	}
	if cfg.Link == "" {
		cfg.Link = LinkMIP
	}
	if cfg.Protocol == "" {
		cfg.Protocol = ProtocolLonNative
	}
	if cfg.Security == "" {
		cfg.Security = SecurityV2
	}
	if cfg.Isi == "" {
		cfg.Isi = IsiDisabled
	}
	if cfg.Iup == "" {
		cfg.Iup = IupDisabled
	}
}

// applyNetworkDefaults mirrors the LON node sizing codes a real firmware
// build derives from ReadOnlyData's buffer/queue size codes (spec §3).
func applyNetworkDefaults(cfg *NetworkConfig) {
	if cfg.InBufSize == 0 {
		cfg.InBufSize = bytesize.ByteSize(66)
	}
	if cfg.OutBufSize == 0 {
		cfg.OutBufSize = bytesize.ByteSize(66)
	}
	if cfg.InQueueCount == 0 {
		cfg.InQueueCount = 8
	}
	if cfg.OutQueueCount == 0 {
		cfg.OutQueueCount = 4
	}
	if cfg.OutPriQueueCount == 0 {
		cfg.OutPriQueueCount = 2
	}
	if cfg.AppInQueueCount == 0 {
		cfg.AppInQueueCount = 8
	}
	if cfg.TsaInQueueCount == 0 {
		cfg.TsaInQueueCount = 8
	}
	// DropIfUnconfigured defaults to false (zero value): an uncommissioned
	// node's TSA layer may still need to send retry-class replies.
}

func applyDataLinkDefaults(cfg *DataLinkConfig) {
	if len(cfg.Interfaces) == 0 {
		cfg.Interfaces = []InterfaceConfig{{Kind: "mip", Device: "loopback0"}}
	}
	if cfg.OutQueueCount == 0 {
		cfg.OutQueueCount = 4
	}
	if cfg.OutPriQueueCount == 0 {
		cfg.OutPriQueueCount = 2
	}
	if cfg.OutBufSize == 0 {
		cfg.OutBufSize = bytesize.ByteSize(66)
	}
	if cfg.XcvrFetchInterval == 0 {
		cfg.XcvrFetchInterval = 10 * time.Second
	}
}

func applyDomainDefaults(cfg *DomainConfig) {
	if len(cfg.Entries) == 0 {
		cfg.Entries = []DomainEntryConfig{{Id: "", Subnet: 0, Node: 0, Invalid: true}}
	}
}

func applyPersistenceDefaults(cfg *PersistenceConfig) {
	if cfg.FlashPath == "" {
		cfg.FlashPath = "/var/lib/lonctl/flash.img"
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = bytesize.ByteSize(4096)
	}
	if cfg.NumBlocks == 0 {
		cfg.NumBlocks = 64
	}
	if cfg.GuardBand == 0 {
		cfg.GuardBand = 30 * time.Second
	}
	if cfg.MaxSegmentSize == 0 {
		cfg.MaxSegmentSize = bytesize.ByteSize(512)
	}
	// AppSignature 0 is the wildcard value (spec §4.5) — left unset by
	// default so a fresh node accepts segments from any prior build.
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config with every default applied — used
// when no config file is found, and as the basis for `lonctl config
// init`.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
