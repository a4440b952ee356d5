// Command folio-server runs the Folio Transfer & Delivery Core as a
// single long-running daemon: it loads configuration, wires the core's
// leaf-first singletons, advertises itself on the LAN, and serves the
// catalog until terminated.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"

	"github.com/foliobooks/folio/pkg/config"
	"github.com/foliobooks/folio/pkg/conversioncache"
	"github.com/foliobooks/folio/pkg/converter"
	"github.com/foliobooks/folio/pkg/delivery"
	"github.com/foliobooks/folio/pkg/discovery"
	"github.com/foliobooks/folio/pkg/library"
	"github.com/foliobooks/folio/pkg/metadata"
	"github.com/foliobooks/folio/pkg/secrets"
	"github.com/foliobooks/folio/pkg/transferserver"
	"github.com/foliobooks/folio/pkg/version"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting folio-server", logger.Data{"version": version.Version})

	var opts struct {
		ConfigPath     string `long:"config" description:"Path to a YAML config file" env:"CONFIG_FILE"`
		PortRangeStart int    `long:"port-range-start" description:"Override the HTTPTransferServer bind range start"`
		PortRangeEnd   int    `long:"port-range-end" description:"Override the HTTPTransferServer bind range end"`
		NoDiscovery    bool   `long:"no-discovery" description:"Disable LAN discovery advertisement"`
	}
	if _, err := flags.Parse(&opts); err != nil {
		log.Err(err).Fatal("flags parse error")
	}
	if opts.ConfigPath != "" {
		os.Setenv("CONFIG_FILE", opts.ConfigPath)
	}

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}
	if opts.PortRangeStart != 0 {
		cfg.PortRangeStart = opts.PortRangeStart
	}
	if opts.PortRangeEnd != 0 {
		cfg.PortRangeEnd = opts.PortRangeEnd
	}
	if opts.NoDiscovery {
		cfg.DiscoveryEnabled = false
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		log.Err(err).Fatal("cache directory error")
	}
	if err := os.MkdirAll(cfg.LibraryDir, 0o755); err != nil {
		log.Err(err).Fatal("library directory error")
	}
	if err := os.MkdirAll(cfg.ConfigDirectory, 0o755); err != nil {
		log.Err(err).Fatal("config directory error")
	}

	// Leaves first (spec.md §9's construction-order note): cache, then
	// converter, then metadata aggregator, then delivery, then
	// discovery, then the HTTP server that fronts all of them.
	cache := conversioncache.New(cfg.CacheDir)

	conv := converter.New(func() string { return uuid.NewString() })
	if !conv.IsAvailable() {
		log.Warn("calibre binaries not found on PATH; kindle conversion will return 503 until installed", nil)
	}

	aggregator := metadata.New(
		metadata.NewOpenLibraryProvider(),
		metadata.NewGoogleBooksProvider(os.Getenv("GOOGLE_BOOKS_API_KEY")),
	)

	books := library.NewFSProvider(cfg.LibraryDir)
	if err := books.Rescan(); err != nil {
		log.Err(err).Fatal("initial library scan failed")
	}

	secretStore := secrets.NewFileStore(cfg.ConfigDirectory)
	store := config.NewStore(cfg.ConfigDirectory)

	deliverySvc := delivery.New(secretStore)
	if err := loadSMTPConfig(store, deliverySvc); err != nil {
		log.Err(err).Warn("no usable stored SMTP configuration; delivery will fail until configured")
	}

	discoverySvc := discovery.New()

	transferSvc, err := transferserver.New(books, conv, cache, aggregator, transferserver.Config{
		PortRangeStart: cfg.PortRangeStart,
		PortRangeEnd:   cfg.PortRangeEnd,
	})
	if err != nil {
		log.Err(err).Fatal("transfer server construction error")
	}

	if err := transferSvc.Start(ctx); err != nil {
		log.Err(err).Fatal("transfer server failed to bind a port")
	}
	log.Info("transfer server started", logger.Data{"url": transferSvc.URL(), "port": transferSvc.Port()})

	if cfg.DiscoveryEnabled {
		catalog, _ := books.List(ctx)
		extra := map[string]string{
			"platform": runtime.GOOS,
			"books":    fmt.Sprintf("%d", len(catalog)),
		}
		if err := discoverySvc.Advertise(transferSvc.Port(), cfg.DiscoveryServiceName, extra); err != nil {
			log.Err(err).Warn("discovery advertisement failed; server remains reachable by direct URL")
		} else {
			log.Info("advertising on LAN", logger.Data{"service_name": cfg.DiscoveryServiceName})
		}
	}

	graceful := signals.Setup()
	<-graceful
	log.Info("starting graceful shutdown")

	discoverySvc.StopAdvertising()

	if err := transferSvc.Shutdown(ctx); err != nil {
		log.Err(err).Error("transfer server shutdown error")
	}
	log.Info("folio-server shutdown complete")
}

// loadSMTPConfig restores a previously persisted SMTP configuration
// from the config.Store (spec.md §6's persisted-state layout), if one
// exists, and applies it to svc.
func loadSMTPConfig(store *config.Store, svc *delivery.Service) error {
	var cfg delivery.SMTPConfig
	ok, err := store.Get(config.KeySMTPConfiguration, &cfg)
	if err != nil {
		return errors.Wrap(err, "reading stored SMTP configuration")
	}
	if !ok {
		return errors.New("no stored SMTP configuration")
	}
	return svc.SetConfig(&cfg)
}
