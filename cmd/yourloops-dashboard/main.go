package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"yourloops-dashboard/common/database"
	"yourloops-dashboard/common/logger"
	mqttcommon "yourloops-dashboard/common/mqtt"
	rediscommon "yourloops-dashboard/common/redis"
	"yourloops-dashboard/internal/config"
	"yourloops-dashboard/internal/dataapi"
	httpapi "yourloops-dashboard/internal/http"
	"yourloops-dashboard/internal/metrics"
	alarmmqtt "yourloops-dashboard/internal/mqtt"
	"yourloops-dashboard/internal/repository"
	"yourloops-dashboard/internal/service"
	"yourloops-dashboard/internal/store"
	"yourloops-dashboard/internal/summary"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "yourloops-dashboard")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		log.Warn("Unknown display timezone, using UTC", zap.String("timezone", cfg.DisplayTimezone), zap.Error(err))
		loc = time.UTC
	}

	// Repositories: Postgres when reachable, in-memory otherwise.
	var (
		db    *sql.DB
		repos *repository.Repositories
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for yourloops-dashboard")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory", zap.Error(err))
		}
	}
	if db != nil {
		repos = repository.NewPostgresRepositories(db)
	} else {
		repos = repository.NewMemory().Repositories()
	}

	// Redis backs the summary cache and the metrics stream.
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	var (
		recorder metrics.Recorder
		cache    *summary.Cache
	)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rediscommon.Ping(pingCtx, redisClient); err == nil {
		recorder = metrics.NewStreamRecorder(redisClient, cfg.MetricsStream, log)
		cache = summary.NewCache(store.NewRedisKV(redisClient), cfg.Summary.CacheTTL)
	} else {
		log.Warn("Redis unavailable, metrics go to the log and summaries are not cached", zap.Error(err))
		recorder = metrics.NewLogRecorder(log)
	}
	pingCancel()

	api := dataapi.NewClient(cfg.DataAPI.URL, cfg.DataAPI.Timeout, log)
	timings := summary.NewTimerMetrics(recorder, cfg.Summary.MetricsInterval, log)
	queue := summary.NewQueue(summary.NewFetcher(api, timings, cfg.Summary.V1Enabled, log), cache, log)

	patients := service.NewPatientService(repos, cache, loc, log)
	teams := service.NewTeamService(repos, patients, recorder, log)
	invitations := service.NewInvitationService(repos, log)
	caregivers := service.NewCaregiverService(repos, log)
	summaries := service.NewSummaryService(queue, patients, log)

	patientsHandler := httpapi.NewPatientsHandler(patients, summaries, log)
	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes(summaries.Pending)
	router.RegisterPatientRoutes(patientsHandler)
	router.RegisterTeamRoutes(httpapi.NewTeamsHandler(teams, patients, log), patientsHandler)
	router.RegisterInvitationRoutes(httpapi.NewInvitationsHandler(invitations, log))
	router.RegisterCaregiverRoutes(httpapi.NewCaregiversHandler(caregivers, log))

	var (
		mqttClient *mqttcommon.Client
		alarms     *alarmmqtt.AlarmBroker
	)
	if cfg.MQTT.Enabled {
		if c, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, log); err == nil {
			mqttClient = c
			alarms = alarmmqtt.NewAlarmBroker(c, repos.Members, patients, cfg.MQTT.AlarmTopic, cfg.MQTT.QoS, log)
			if err := alarms.Start(); err != nil {
				log.Error("Alarm broker failed to start", zap.Error(err))
				alarms = nil
			}
		} else {
			log.Warn("MQTT enabled but connection failed, alarms are not ingested", zap.Error(err))
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if alarms != nil {
		alarms.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	queue.Close()
	timings.Flush()
	_ = rediscommon.Close(redisClient)
	_ = database.Close(db)
}
