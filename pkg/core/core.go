// Package core bundles the Network Layer, Data Link Layer, and Persistent
// Segment Manager behind a single Context and drives them with the
// cooperative, single-threaded scheduler spec §5 describes: "a scheduler
// pumps each layer's Reset, Send, Receive callbacks in round-robin
// fashion. No operation in the core may block arbitrarily." This replaces
// the C core's singleton `gp` global with an explicit context passed to
// every layer entry point (spec §9's Design Notes: "Global mutable
// state ... reshape as an explicit Core context").
package core

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/izot/lon-core/internal/logger"
	"github.com/izot/lon-core/pkg/config"
	"github.com/izot/lon-core/pkg/datalink"
	"github.com/izot/lon-core/pkg/flashhal"
	"github.com/izot/lon-core/pkg/network"
	"github.com/izot/lon-core/pkg/persistence"
)

// Context is the process-lifetime bundle of layers a scheduler drives.
// Its lifetime is the process (spec §9: "its lifetime is the process").
type Context struct {
	BootID string

	cfg *config.Config

	Network     *network.Layer
	DataLink    *datalink.Layer
	Flash       flashhal.Device
	Persistence *persistence.Manager

	logCtx *logger.LogContext
}

// New constructs a Context from cfg. Links, if nil, are opened as
// LoopbackLink stand-ins (spec §1: the real link HAL is an out-of-scope
// host interface) — pass real Link implementations for production builds.
func New(cfg *config.Config, links []datalink.Link) (*Context, error) {
	bootID := uuid.New().String()
	logCtx := logger.NewLogContext(bootID)

	c := &Context{
		BootID: bootID,
		cfg:    cfg,
		logCtx: logCtx,
	}

	flashCfg := cfg.Persistence
	dev := flashhal.NewFileDevice(flashCfg.FlashPath, int(flashCfg.BlockSize), flashCfg.NumBlocks)
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("core: init flash device: %w", err)
	}
	if err := dev.Open(); err != nil {
		return nil, fmt.Errorf("core: open flash device: %w", err)
	}
	c.Flash = dev

	maxDataSize := map[persistence.SegmentType]int64{
		persistence.SegmentNetworkImage:    int64(flashCfg.MaxSegmentSize),
		persistence.SegmentSecurityII:      int64(flashCfg.MaxSegmentSize),
		persistence.SegmentNodeDefinition:  int64(flashCfg.MaxSegmentSize),
		persistence.SegmentApplicationData: int64(flashCfg.MaxSegmentSize),
		persistence.SegmentUniqueId:        int64(flashCfg.MaxSegmentSize),
		persistence.SegmentConnectionTable: int64(flashCfg.MaxSegmentSize),
		persistence.SegmentIsi:             int64(flashCfg.MaxSegmentSize),
	}
	c.Persistence = persistence.New(dev, persistence.Config{
		AppSignature: flashCfg.AppSignature,
		GuardBand:    flashCfg.GuardBand,
		MaxDataSize:  maxDataSize,
	})

	c.Network = network.New()
	nwCfg := network.Config{
		NwInBufSize:        int(cfg.Network.InBufSize),
		NwOutBufSize:       int(cfg.Network.OutBufSize),
		NwInQCnt:           cfg.Network.InQueueCount,
		NwOutQCnt:          cfg.Network.OutQueueCount,
		NwOutPriQCnt:       cfg.Network.OutPriQueueCount,
		AppInQCnt:          cfg.Network.AppInQueueCount,
		TsaInQCnt:          cfg.Network.TsaInQueueCount,
		DropIfUnconfigured: cfg.Network.DropIfUnconfigured,
	}
	if err := c.Network.Reset(nwCfg); err != nil {
		return nil, fmt.Errorf("core: network layer reset: %w", err)
	}

	if err := applyDomainConfig(c.Network, cfg.Domain); err != nil {
		return nil, err
	}

	c.DataLink = datalink.New()
	ifaces, err := buildInterfaces(cfg.DataLink.Interfaces, links)
	if err != nil {
		return nil, err
	}
	dlCfg := datalink.Config{
		Interfaces:        ifaces,
		LkOutQCnt:         cfg.DataLink.OutQueueCount,
		LkOutPriQCnt:      cfg.DataLink.OutPriQueueCount,
		LkOutBufSize:      int(cfg.DataLink.OutBufSize),
		LkInBufSize:       int(cfg.Network.InBufSize) + 6,
		LkInQCnt:          cfg.Network.InQueueCount,
		XcvrFetchInterval: cfg.DataLink.XcvrFetchInterval,
	}
	if err := c.DataLink.Reset(dlCfg); err != nil {
		return nil, fmt.Errorf("core: data link layer reset: %w", err)
	}

	c.Network.SetLinkQueues(c.DataLink.OutQueue(), c.DataLink.OutPriQueue())
	c.DataLink.SetNetworkInQueue(c.Network.InQueue())

	c.Persistence.Register(persistence.SegmentNetworkImage, &network.ImageHandler{Layer: c.Network})
	for _, seg := range []persistence.SegmentType{
		persistence.SegmentSecurityII,
		persistence.SegmentNodeDefinition,
		persistence.SegmentApplicationData,
		persistence.SegmentUniqueId,
		persistence.SegmentConnectionTable,
		persistence.SegmentIsi,
	} {
		c.Persistence.Register(seg, &persistence.RawHandler{})
	}

	return c, nil
}

func buildInterfaces(cfgs []config.InterfaceConfig, links []datalink.Link) ([]datalink.InterfaceConfig, error) {
	out := make([]datalink.InterfaceConfig, 0, len(cfgs))
	for i, ic := range cfgs {
		kind, err := parseKind(ic.Kind)
		if err != nil {
			return nil, err
		}
		var link datalink.Link
		if i < len(links) && links[i] != nil {
			link = links[i]
		} else {
			link = NewLoopbackLink(ic.Device)
		}
		out = append(out, datalink.InterfaceConfig{Kind: kind, Link: link})
	}
	return out, nil
}

func parseKind(s string) (datalink.Kind, error) {
	switch s {
	case "mip":
		return datalink.KindMIP, nil
	case "usb":
		return datalink.KindUSB, nil
	case "powerline":
		return datalink.KindPowerLine, nil
	default:
		return 0, fmt.Errorf("core: unrecognized interface kind %q", s)
	}
}

// applyDomainConfig decodes the configured domain table into the network
// layer's DomainTable/ReadOnlyData.
func applyDomainConfig(l *network.Layer, cfg config.DomainConfig) error {
	l.Domain.TwoDomains = cfg.TwoDomains
	l.ReadOnly.TwoDomains = cfg.TwoDomains

	for i, e := range cfg.Entries {
		if i >= 2 {
			break
		}
		id, err := hex.DecodeString(e.Id)
		if err != nil {
			return fmt.Errorf("core: domain entry %d: invalid hex id %q: %w", i, e.Id, err)
		}
		switch len(id) {
		case 0, 1, 3, 6:
		default:
			return fmt.Errorf("core: domain entry %d: id length %d must be 0, 1, 3, or 6", i, len(id))
		}
		row := &l.Domain.Entries[i]
		row.IdLength = len(id)
		copy(row.Id[:], id)
		row.Subnet = e.Subnet
		row.Node = e.Node & 0x7F
		row.Invalid = e.Invalid
	}
	return nil
}

// Tick drives one scheduler round: the cooperative pump of each layer's
// Receive/Send callbacks plus the persistence guard-band check, in the
// dataflow order spec §2 diagrams (link in -> network in -> network out
// -> link out), so a packet observes "Link in -> Network in ->
// Application/TSA" without reordering (spec §5).
func (c *Context) Tick() {
	c.DataLink.LKReceive()
	c.Network.NWReceive()
	c.Network.NWSend()
	c.DataLink.LKSend()
	c.Persistence.CommitTick()
}

// Run drives Tick in a loop at interval until ctx is cancelled.
func (c *Context) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Persistence.ForceCommit()
			c.Persistence.CommitTick()
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// SetConfigured marks the node as commissioned, gating the addressing and
// dispatch policies spec §4.4 describes.
func (c *Context) SetConfigured(configured bool) {
	c.Network.Configured = configured
}

// Close closes every opened link interface and the flash device. Callers
// should call Close once Run has returned.
func (c *Context) Close() error {
	dlErr := c.DataLink.Close()
	flashErr := c.Flash.Close()
	if dlErr != nil {
		return dlErr
	}
	return flashErr
}
