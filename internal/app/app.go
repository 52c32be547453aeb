// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/markdave123-py/zapdesk/internal/config"
	"github.com/markdave123-py/zapdesk/internal/core"
	"github.com/markdave123-py/zapdesk/internal/core/chatbot"
	db "github.com/markdave123-py/zapdesk/internal/core/database"
	"github.com/markdave123-py/zapdesk/internal/core/dispatch"
	"github.com/markdave123-py/zapdesk/internal/core/llm"
	"github.com/markdave123-py/zapdesk/internal/core/messaging"
	objectclient "github.com/markdave123-py/zapdesk/internal/core/object-client"
	"github.com/markdave123-py/zapdesk/internal/services"
)

type App struct {
	cfg        *config.Config
	DBClient   core.DbClient
	Dispatcher *dispatch.Dispatcher
	Server     *Server
	closers    []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	a := &App{cfg: cfg}

	dbClient, err := newDbClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	a.closers = append(a.closers, dbClient.Close)
	log.Printf("Database (%s) initialized and ready.", cfg.StorageDriver)

	backend, err := a.newBackend(appCtx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize the generation backend: %w", err)
	}

	var archiver core.TranscriptArchiver
	if cfg.ArchiveEnabled() {
		objClient, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		archiver = objectclient.NewTranscriptArchiver(objClient, cfg.BucketName)
		log.Printf("Transcript archive enabled (bucket=%s).", cfg.BucketName)
	}

	sender := messaging.NewTwilioSender(cfg.WhatsAppBaseURL, cfg.WhatsAppAccountSID, cfg.WhatsAppAuthToken, cfg.WhatsAppPhoneNumber)

	conversations := services.NewConversationService(dbClient, chatbot.NewResponder(backend), sender, archiver)
	faqs := services.NewFAQService(dbClient)
	agents := services.NewAgentService(dbClient, cfg.JWTSecret)

	if err := agents.EnsureAdmin(appCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		a.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	a.Dispatcher = dispatch.NewDispatcher(conversations.Handle, cfg.DispatchQueueSize)
	a.Server = NewServer(cfg, a.Dispatcher, conversations, faqs, agents)
	return a, nil
}

func newDbClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg.StorageDriver == config.StorageMemory {
		return db.NewMemoryClient(), nil
	}
	return db.NewDatabaseClient(ctx, cfg)
}

func (a *App) newBackend(ctx context.Context) (core.TextGenerationBackend, error) {
	switch a.cfg.AIProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAILLM(a.cfg.OpenAIAPIKey, a.cfg.OpenAIModel)
	default:
		g, err := llm.NewGeminiLLM(ctx, a.cfg.AIAPIKey, a.cfg.GenModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		return g, nil
	}
}

// Start launches the dispatcher workers; they stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.Dispatcher.Start(ctx, a.cfg.DispatchWorkers)
}

func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
}
