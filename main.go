package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wanderstay/staypoints/config"
	"github.com/wanderstay/staypoints/models"
	"github.com/wanderstay/staypoints/routes"
	"github.com/wanderstay/staypoints/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(&models.PointsAccount{}, &models.CheckInStreak{}, &models.PointsHistoryEntry{})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r, err := routes.SetupRouter(db, reg)
	if err != nil {
		utils.Sugar.Fatalf("setup router: %v", err)
	}

	utils.Sugar.Infof("Starting points API on port %s (timezone %s)", cfg.AppPort, cfg.PointsTimezone)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
