package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"officebot/internal/api"
	"officebot/internal/auth"
	"officebot/internal/bot"
	"officebot/internal/completion"
	"officebot/internal/config"
	"officebot/internal/extract"
	"officebot/internal/prompt"
	"officebot/internal/redis"
	"officebot/internal/session"
	"officebot/internal/storage"
	"officebot/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("OFFICEBOT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	systemPrompt, err := prompt.Load(cfg.BasicConfig.SystemPromptPath)
	if err != nil {
		log.Fatalf("load system prompt: %v", err)
	}

	extractor := extract.New(extract.Options{Language: cfg.BasicConfig.OCRLanguage})

	downloads, err := storage.NewDownloads(cfg.BasicConfig.DownloadDir)
	if err != nil {
		log.Fatalf("prepare downloads: %v", err)
	}
	cleanInterval := time.Duration(cfg.BasicConfig.TempCleanInterval) * time.Minute
	if cleanInterval <= 0 {
		cleanInterval = storage.DefaultTempFileCleanupInterval
	}
	tempTTL := time.Duration(cfg.BasicConfig.TempFileTTL) * time.Minute
	if tempTTL <= 0 {
		tempTTL = storage.DefaultTempFileTTL
	}
	downloads.StartCleaner(ctx, cleanInterval, tempTTL)

	var store session.Store = session.NewMemoryStore(cfg.BasicConfig.HistoryLimit)
	if cfg.Redis.Enabled {
		rdb, err := redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		historyTTL := time.Duration(cfg.Redis.HistoryTTL) * time.Minute
		store, err = session.NewRedisStore(rdb, cfg.BasicConfig.HistoryLimit, historyTTL, cfg.Redis.HistoryKey)
		if err != nil {
			log.Fatalf("create history store: %v", err)
		}
		log.Printf("history store: redis %s:%d", cfg.Redis.Host, cfg.Redis.Port)
	}

	timeout := time.Duration(cfg.Completion.TimeoutSeconds) * time.Second
	tokens, backend, err := buildBackend(ctx, cfg, timeout)
	if err != nil {
		log.Fatalf("init completion backend: %v", err)
	}
	var policy *completion.Policy
	if cfg.Policy.DomainFilter {
		policy = completion.NewPolicy(cfg.Policy.Keywords)
	}
	client := completion.NewClient(tokens, backend, store, completion.Options{
		SystemPrompt:  systemPrompt,
		Model:         cfg.Completion.Model,
		Temperature:   cfg.Completion.Temperature,
		MaxTokens:     cfg.Completion.MaxTokens,
		MaxTextLength: cfg.BasicConfig.MaxTextLength,
		Policy:        policy,
	})

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		MinWorkers:        cfg.BasicConfig.MinWorkers,
		MaxWorkers:        cfg.BasicConfig.MaxWorkers,
		QueueSize:         cfg.BasicConfig.QueueSize,
		WorkerIdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	})

	if addr := cfg.BasicConfig.ServerAddress; addr != "" {
		handlers := api.NewHandler(extractor, cfg.Completion.Provider, cfg.BasicConfig.MaxFileSize, auth.NewGuard(cfg.BasicConfig.APIToken))
		router := gin.Default()
		handlers.RegisterRoutes(router)
		srv := &http.Server{Addr: addr, Handler: router}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("ops server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Printf("ops server listening on %s", addr)
	}

	tg, err := newBotAPI(cfg.Telegram)
	if err != nil {
		log.Fatalf("connect telegram: %v", err)
	}
	log.Printf("authorized as @%s, provider %s", tg.Self.UserName, cfg.Completion.Provider)

	b := bot.New(tg, extractor, client, downloads, dispatcher, bot.Options{
		MaxFileSize:      cfg.BasicConfig.MaxFileSize,
		MaxMessageLength: cfg.BasicConfig.MaxMessageLength,
		HTTPTimeout:      timeout,
	})
	if err := b.RegisterCommands(); err != nil {
		log.Printf("register commands: %v", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Telegram.PollTimeoutSeconds
	b.Run(ctx, tg.GetUpdatesChan(u))

	log.Printf("shutting down")
	tg.StopReceivingUpdates()
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := dispatcher.Stop(stopCtx); err != nil {
		log.Printf("stop dispatcher: %v", err)
	}
}

// buildBackend picks the GigaChat OAuth flow or one of the eino providers.
func buildBackend(ctx context.Context, cfg *config.Config, timeout time.Duration) (completion.TokenSource, completion.Backend, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Completion.Provider))
	if provider == config.ProviderGigaChat {
		httpClient := completion.NewHTTPClient(timeout, cfg.Completion.InsecureSkipVerify)
		tokens := completion.NewOAuthTokens(completion.OAuthConfig{
			AuthURL:      cfg.Completion.AuthURL,
			Scope:        cfg.Completion.Scope,
			ClientID:     cfg.Completion.ClientID,
			ClientSecret: cfg.Completion.ClientSecret,
			Credentials:  cfg.Completion.Credentials,
			AccessToken:  cfg.Completion.AccessToken,
		}, httpClient)
		return tokens, completion.NewOpenAIBackend(cfg.Completion.BaseURL, httpClient), nil
	}
	prov := cfg.Providers[provider]
	backend, err := completion.NewEinoBackend(ctx, provider, prov, cfg.Completion.MaxTokens, timeout)
	if err != nil {
		return nil, nil, err
	}
	return completion.StaticToken(prov.APIKey), backend, nil
}

func newBotAPI(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	tg, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, err
	}
	tg.Debug = cfg.Debug
	return tg, nil
}
