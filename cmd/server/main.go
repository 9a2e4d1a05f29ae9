package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/harunaoki/cardroom-backend/internal/config"
	"github.com/harunaoki/cardroom-backend/internal/database"
	"github.com/harunaoki/cardroom-backend/internal/handler"
	"github.com/harunaoki/cardroom-backend/internal/logger"
	"github.com/harunaoki/cardroom-backend/internal/queue"
	"github.com/harunaoki/cardroom-backend/internal/repository"
	"github.com/harunaoki/cardroom-backend/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("database connect failed: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warnf("redis unreachable; response cache and rate limiting disabled")
	}

	patrons := repository.NewPatronRepo(db)
	tokens := repository.NewTokenRepo(db)
	tables := repository.NewTableRepo(db)
	settlements := repository.NewSettlementRepo(db)
	withdrawals := repository.NewWithdrawalRepo(db)
	orders := repository.NewOrderRepo(db)
	waitlist := repository.NewWaitlistRepo(db)
	templates := repository.NewGameTemplateRepo(db)

	h := router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, patrons, tokens),
		Admin:       handler.NewAdminHandler(patrons),
		Seats:       handler.NewSeatHandler(db, patrons, tables, waitlist),
		Tables:      handler.NewTableHandler(tables, templates, waitlist),
		Settlements: handler.NewSettlementHandler(db, patrons, tables, settlements),
		Withdrawals: handler.NewWithdrawalHandler(db, patrons, withdrawals),
		Orders:      handler.NewOrderHandler(db, patrons, orders),
		Waitlist:    handler.NewWaitlistHandler(db, waitlist, templates),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, cfg.JWTSecret, rdb)

	// Activity log consumer; reconnects on its own and never returns.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			logger.Errorf("activity consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}
