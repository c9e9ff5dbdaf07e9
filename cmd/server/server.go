package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"chat-client/internal/config"
	"chat-client/internal/domain/chat"
	"chat-client/internal/domain/conversation"
	"chat-client/internal/domain/lifecycle"
	"chat-client/internal/domain/model"
	"chat-client/internal/domain/session"
	"chat-client/internal/infrastructure/backend"
	"chat-client/internal/infrastructure/logger"
	"chat-client/internal/infrastructure/metrics"
	"chat-client/internal/infrastructure/snapshot"
	"chat-client/internal/interfaces/httpserver"
	"chat-client/internal/interfaces/httpserver/handlers/chathandler"
	v1 "chat-client/internal/interfaces/httpserver/routes/v1"
	chatroute "chat-client/internal/interfaces/httpserver/routes/v1/chat"
	modelroute "chat-client/internal/interfaces/httpserver/routes/v1/model"
)

// @title Chat Client API
// @version 1.0
// @description Conversation core for the chat web client: local conversation state, streaming sessions, and backend persistence.
// @BasePath /
func main() {
	ctx := context.Background()

	boot := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		boot.Fatal().Err(err).Msg("configure logger")
	}
	log = log.With().Str("service", cfg.ServiceName).Str("environment", cfg.Environment).Logger()

	// Local snapshot store backs hydration and survives backend outages.
	snapshots, err := snapshot.Open(ctx, cfg.SnapshotDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open snapshot store")
	}
	defer snapshots.Close()

	store := conversation.NewStore(conversation.StoreConfig{MaxCheckpoints: cfg.MaxCheckpoints}, log)

	userID := cfg.BackendAPIKey
	if userID == "" {
		userID = "anonymous"
	}
	if snap, found, err := snapshots.Load(ctx, userID); err != nil {
		log.Warn().Err(err).Msg("snapshot load failed, starting empty")
		store.SetUser(userID)
	} else if found {
		if err := store.Hydrate(snap); err != nil {
			log.Warn().Err(err).Msg("snapshot rejected, starting empty")
			store.SetUser(userID)
		}
	} else {
		store.SetUser(userID)
	}

	client := backend.NewClient(cfg.BackendBaseURL, cfg.BackendAPIKey, cfg.RequestTimeout)
	gateway := backend.NewGateway(client)
	streamer := backend.NewSSEStreamer(cfg.BackendBaseURL, cfg.BackendAPIKey)

	sess := session.New(streamer, log)
	catalog := model.NewCatalog(gateway, cfg.DefaultModel, log)

	manager := lifecycle.NewManager(store, gateway, sess, lifecycle.Config{
		CreateTimeout: cfg.CreateTimeout,
		DeleteTimeout: cfg.DeleteTimeout,
		DefaultModel:  cfg.DefaultModel,
		LocalFallback: cfg.LocalFallbackEnabled,
	}, log)

	actions := chat.NewMessageActions(store, sess, gateway, log)
	reconciler := chat.NewReconciler(store, sess, actions, gateway, gateway, chat.ReconcilerConfig{
		PersistTimeout: cfg.PersistTimeout,
		TitleMaxLength: cfg.TitleMaxLength,
	}, log)
	reconciler.SetOnPersistFailure(func(convID string, err error) {
		metrics.RecordPersistFailure()
	})
	reconciler.Start()

	// Warm the model catalog; failures fall back to pass-through resolution.
	if err := catalog.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial model catalog refresh failed")
	}

	handler := chathandler.NewChatHandler(store, manager, actions, sess, catalog, log)
	v1Route := v1.NewV1Route(chatroute.NewChatRoute(handler), modelroute.NewModelRoute(handler))
	server := httpserver.NewHTTPServer(v1Route, cfg, log)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, egCtx := errgroup.WithContext(runCtx)
	eg.Go(func() error {
		log.Info().Int("port", cfg.HTTPPort).Msg("http server starting")
		return server.Run()
	})
	eg.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return nil
			case <-ticker.C:
				snap := store.Export()
				if snap.UserID == "" {
					continue
				}
				if err := snapshots.Save(egCtx, snap); err != nil {
					log.Warn().Err(err).Msg("periodic snapshot save failed")
				}
			}
		}
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Flush the latest state to the local snapshot before exit.
		if snap := store.Export(); snap.UserID != "" {
			if err := snapshots.Save(shutdownCtx, snap); err != nil {
				log.Warn().Err(err).Msg("final snapshot save failed")
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
