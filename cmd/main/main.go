package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"p2p-observer/src/catalog"
	"p2p-observer/src/config"
	"p2p-observer/src/dashboard"
	"p2p-observer/src/favorites"
	"p2p-observer/src/filter"
	"p2p-observer/src/interfaces"
	"p2p-observer/src/logger"
	"p2p-observer/src/models"
	"p2p-observer/src/network"
	"p2p-observer/src/poller"
	"p2p-observer/src/refsync"
	"p2p-observer/src/server"
	"p2p-observer/src/storage"
	"p2p-observer/src/upstream"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 1. Load config from YAML file (+ .env overrides)
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	logger.Setup(config.LogLevel, config.LogFile)
	appLogger := logger.NewLogger(config.Name)

	// 3. Session history store
	store, err := storage.NewSessionStore(config.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init store: %v", err)
		os.Exit(1)
	}
	if err := store.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	// 4. Network layer and upstream clients
	var netMgr interfaces.INetworkManager = network.NewAsyncNetworkManager(config.MConfig, appLogger)

	clients := map[string]interfaces.IP2PClient{
		dashboard.ExchangeBinance: upstream.NewBinanceClient(config.MConfig, netMgr),
		dashboard.ExchangeBybit:   upstream.NewBybitClient(config.MConfig, netMgr),
	}
	catalogs := make(map[string]*catalog.Cache, len(clients))
	for name, client := range clients {
		catalogs[name] = catalog.NewCache(client)
	}
	xe := upstream.NewXeClient(config.MConfig, netMgr)
	gf := upstream.NewGFinanceClient(config.MConfig, netMgr)

	// 5. Favorites table and filter controller
	favs, err := favorites.Load(config.Favorites.Path)
	if err != nil {
		appLogger.Warning("Favorites unavailable: %v", err)
	}
	filters := filter.NewController([]string{dashboard.ExchangeBinance, dashboard.ExchangeBybit}, favs)

	// 6. Reference synchronizer. Pair-driven spread lookups run with the
	// exchange's committed payment methods and the global flags.
	scheduler := poller.NewScheduler()
	var dash *dashboard.Dashboard
	paramsFor := func(exchange, asset, fiat string) models.MQuoteParams {
		params := models.MQuoteParams{
			Asset:  asset,
			Fiat:   fiat,
			Side:   config.Dashboard.DefaultSide,
			Amount: config.Dashboard.DefaultAmount,
		}
		if dash != nil {
			params = dash.Snapshot().Params
			params.Asset = asset
			params.Fiat = fiat
		}
		params.Payments = filters.Committed(exchange)
		return params
	}
	refSync := refsync.NewSynchronizer(xe, gf, clients, paramsFor, store)

	// 7. Dashboard orchestrator
	dash = dashboard.NewDashboard(config.MConfig, scheduler, filters, catalogs, clients, refSync, store)

	// 8. HTTP / WebSocket server
	srv := server.NewFastAPIServer(config.MConfig, appLogger)
	srv.AttachControl(dash)
	dash.AttachExchanger(srv)

	// 9. Start polling and serving
	dash.Start()
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	dash.Stop()
	srv.Stop()
}
