// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command flowgated is the classification daemon: it wires
// internal/controlplane's config loader, internal/classify's pipeline,
// internal/ingress's NFQUEUE/AF_PACKET adapters, internal/ebpfmap's
// pinned bypass-cache store, internal/ctlsock's whitelist-CLI socket,
// and internal/metrics' Prometheus collector into one running process.
// Every piece it wires is itself independently testable; this file only
// does composition and lifecycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flowgate.dev/flowgate/internal/classify"
	"flowgate.dev/flowgate/internal/controlplane"
	"flowgate.dev/flowgate/internal/ctlsock"
	"flowgate.dev/flowgate/internal/ebpfmap"
	"flowgate.dev/flowgate/internal/ingress"
	"flowgate.dev/flowgate/internal/logging"
	"flowgate.dev/flowgate/internal/metrics"
)

// config bundles every flag flowgated accepts. Passed by value into run so
// tests can build one directly instead of threading a dozen positional
// arguments.
type config struct {
	ConfigPath    string
	Link          string
	TableName     string
	QueueNum      uint16
	CtlSocketPath string
	MetricsAddr   string
	Mode          string // "nfqueue" or "afpacket"
	InIface       string // afpacket mode only
	OutIface      string // afpacket mode only
	PinPath       string // pinned bypass-cache map; empty disables it
}

func main() {
	cfg := config{}
	flag.StringVar(&cfg.ConfigPath, "config", "", "path to the HCL control-plane config file")
	flag.StringVar(&cfg.Link, "link", "eth0", "interface to attach the NFQUEUE diversion rule to")
	flag.StringVar(&cfg.TableName, "nft-table", "flowgate", "nftables table name to own")
	queueNum := flag.Uint("queue", 100, "NFQUEUE number")
	flag.StringVar(&cfg.CtlSocketPath, "ctl-socket", ctlsock.DefaultSocketPath, "whitelist-CLI control socket path")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", ":9464", "Prometheus exposition listen address")
	flag.StringVar(&cfg.Mode, "mode", "nfqueue", "ingress adapter: nfqueue or afpacket")
	flag.StringVar(&cfg.InIface, "in-iface", "", "afpacket mode: ingress interface")
	flag.StringVar(&cfg.OutIface, "out-iface", "", "afpacket mode: egress interface")
	flag.StringVar(&cfg.PinPath, "pin-path", "", "pinned eBPF map backing the bypass cache (empty disables)")
	flag.Parse()
	cfg.QueueNum = uint16(*queueNum)

	logger := logging.New(logging.DefaultConfig())

	if err := run(cfg, logger); err != nil {
		logger.Error("flowgated exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *logging.Logger) error {
	tables := classify.NewTables()

	if cfg.ConfigPath != "" {
		if err := controlplane.Load(cfg.ConfigPath, tables, logger); err != nil {
			return fmt.Errorf("load control-plane config: %w", err)
		}
	}

	store := ebpfmap.OpenPinned(cfg.PinPath, logger)
	defer store.Close()
	if err := tables.AttachBypassStore(store); err != nil {
		return fmt.Errorf("seed bypass cache from pinned map: %w", err)
	}

	pipeline := classify.NewPipeline(tables)

	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.New(tables)); err != nil {
		return fmt.Errorf("register metrics collector: %w", err)
	}
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	defer metricsSrv.Close()

	ctlSrv := ctlsock.NewServer(tables, logger)
	go func() {
		if err := ctlSrv.Serve(cfg.CtlSocketPath); err != nil {
			logger.Warn("control socket stopped", "error", err)
		}
	}()
	defer ctlSrv.Close()

	reader, cleanup, err := newReader(cfg, pipeline, logger)
	if err != nil {
		return fmt.Errorf("construct %s ingress reader: %w", cfg.Mode, err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		reader.Stop()
		cancel()
	}()

	logger.Info("flowgated started", "mode", cfg.Mode, "ctl_socket", cfg.CtlSocketPath)
	return reader.Start(ctx)
}

// newReader constructs the configured ingress.Reader. nfqueue mode also
// installs the nftables diversion rule Attacher owns; afpacket mode
// bridges two already-up interfaces itself and has no nftables rule to
// install. cleanup releases whatever attach state newReader acquired and
// must be called regardless of the returned error.
func newReader(cfg config, pipeline *classify.Pipeline, logger *logging.Logger) (ingress.Reader, func(), error) {
	switch cfg.Mode {
	case "afpacket":
		reader, err := ingress.NewAFPacketReader(cfg.InIface, cfg.OutIface, pipeline, 0, logger)
		if err != nil {
			return nil, func() {}, err
		}
		return reader, func() {}, nil
	case "nfqueue", "":
		attacher := ingress.NewAttacher(logger)
		attachCfg := ingress.AttachConfig{Link: cfg.Link, TableName: cfg.TableName, QueueNum: cfg.QueueNum}
		cleanup := func() {}
		if err := attacher.Attach(attachCfg); err != nil {
			logger.Warn("nftables attach failed, continuing without kernel diversion", "error", err)
		} else {
			cleanup = func() { attacher.Detach(attachCfg) }
		}
		return ingress.NewNFQueueReader(cfg.QueueNum, pipeline, 0, logger), cleanup, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown ingress mode %q (want nfqueue or afpacket)", cfg.Mode)
	}
}
