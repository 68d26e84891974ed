package main

import (
	"os"
	"os/signal"
	"syscall"

	"refcore/internal/config"
	"refcore/internal/database"
	"refcore/internal/repositories"
	"refcore/internal/schedulers"
	"refcore/internal/services"

	"github.com/robfig/cron/v3"
)

// Core exposes the referral/commission operations consumed by the API layer.
type Core struct {
	Users       *services.UserService
	Vip         *services.VipService
	Team        *services.TeamService
	Commissions *services.CommissionService
}

func main() {
	logger := config.InitLogger()
	if err := config.InitConfig(); err != nil {
		logger.Fatalf("Failed to init config: %v", err)
	}

	logger.Infoln("Config initialized")

	psqlConfig := config.LoadPostgresConfig()
	psql, err := database.NewPostgres(psqlConfig)
	if err != nil {
		logger.Fatal("Failed to connect to database: ", err)
	}
	defer func() {
		if err := psql.Close(); err != nil {
			logger.Error("Failed to close database: ", err)
		}
	}()

	if err := psql.Ping(); err != nil {
		logger.Fatal("Failed to ping database: ", err)
	}

	if err := psql.Migrate("file://migrations"); err != nil {
		logger.Fatal("Failed to migrate database: ", err)
	}

	logger.Infoln("Database initialized")

	redisCli, err := database.InitRedisCli()
	if err != nil {
		logger.Error("Redis unavailable, team trees will not be cached: ", err)
		redisCli = nil
	}

	userRepo := repositories.NewUserRepository(psql.Db)
	vipRepo := repositories.NewVipRepository(psql.Db)
	txRepo := repositories.NewTransactionRepository(psql.Db)

	teamService := services.NewTeamService(userRepo, vipRepo, redisCli)
	calculator := services.NewDefaultCalculator(userRepo, vipRepo)

	// The bundle handed to the API layer.
	core := &Core{
		Users:       services.NewUserService(userRepo),
		Vip:         services.NewVipService(userRepo, vipRepo, txRepo, teamService),
		Team:        teamService,
		Commissions: services.NewCommissionService(userRepo, txRepo, calculator),
	}

	c := cron.New()
	if _, err := c.AddFunc("@every 5m", schedulers.RetrySkippedCredits(core.Commissions)); err != nil {
		logger.Fatal("Failed to schedule credit retry sweep: ", err)
	}
	c.Start()
	defer c.Stop()

	logger.Infoln("Referral core started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infoln("Shutting down")
}
