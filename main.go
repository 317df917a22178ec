package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"raid-service/internal/config"
	"raid-service/internal/coordinator"
	"raid-service/internal/db"
	"raid-service/internal/handlers"
	"raid-service/internal/jobs"
	"raid-service/internal/middleware"
	"raid-service/internal/notify"
	"raid-service/internal/observability"
	"raid-service/internal/rabbitmq"
	"raid-service/internal/repositories"
	"raid-service/internal/ws"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	shutdownTracing, err := observability.InitTracing(context.Background(), "raid-service", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()

	bossRepo := repositories.NewBossRepo(database)
	ticketRepo := repositories.NewTicketRepo(database)
	partyRepo := repositories.NewPartyRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub(logger)
	dispatcher := notify.NewDispatcher(publisher, "push.notifications", logger)
	events := coordinator.MultiEvents(hub, dispatcher)

	chat := coordinator.NewChatLog(messageRepo, partyRepo, events, cfg.MessageCharLimit)
	roster := coordinator.NewRoster(partyRepo, bossRepo, chat, events, logger, coordinator.RosterConfig{
		GateDuration:    cfg.GateDuration,
		HostLeavePolicy: cfg.HostLeavePolicy,
	})
	matcher := coordinator.NewMatcher(ticketRepo, partyRepo, bossRepo, chat, events, logger, coordinator.MatcherConfig{
		MatchThreshold: cfg.MatchThreshold,
		TicketTTL:      cfg.TicketTTL,
		GateDuration:   cfg.GateDuration,
	})

	verifier := middleware.NewVerifier(cfg.JWTSecret)

	bossHandler := handlers.NewBossHandler(bossRepo)
	queueHandler := handlers.NewQueueHandler(matcher)
	partyHandler := handlers.NewPartyHandler(roster, chat)
	partyWS := ws.NewPartyWebSocketHandler(hub, partyRepo, verifier, logger)

	sweeper := jobs.NewSweeper(roster, matcher, logger)
	if err := sweeper.Start(cfg.SweepInterval); err != nil {
		logger.Fatal("failed to start sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware("raid-service"))

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := verifier.RequireAuth()

	router.GET("/bosses", bossHandler.ListBosses)
	router.GET("/bosses/:boss_id", bossHandler.GetBoss)

	router.POST("/queue/join", auth, queueHandler.JoinQueue)
	router.POST("/queue/cancel", auth, queueHandler.CancelTicket)
	router.GET("/queue/me", auth, queueHandler.MyTickets)

	router.POST("/party", auth, partyHandler.CreateParty)
	router.GET("/parties", auth, partyHandler.ListParties)
	router.GET("/party/:party_id", auth, partyHandler.GetParty)
	router.POST("/party/:party_id/join", auth, partyHandler.JoinParty)
	router.POST("/party/:party_id/added-host", auth, partyHandler.ConfirmAddedHost)
	router.POST("/party/:party_id/ready", auth, partyHandler.MarkReady)
	router.POST("/party/:party_id/leave", auth, partyHandler.LeaveParty)
	router.POST("/party/:party_id/close", auth, partyHandler.CloseParty)
	router.POST("/party/:party_id/kick", auth, partyHandler.KickMember)
	router.GET("/party/:party_id/messages", auth, partyHandler.GetMessages)
	router.POST("/party/:party_id/message", auth, partyHandler.PostMessage)

	router.GET("/ws/parties/:party_id", partyWS.Handle)

	logger.Info("raid service listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
