package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"rag-chat-relay/config"
	"rag-chat-relay/extract"
	"rag-chat-relay/llm"
	"rag-chat-relay/rag"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("loading .env", "error", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Logging))
	if !strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := NewServer(buildPipeline(cfg), cfg.Server.AllowedOrigin, cfg.MaxUploadBytes())
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr, "ready", srv.pipeline.Ready())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

func buildPipeline(cfg *config.AppConfig) *rag.Pipeline {
	var ocr extract.OCR
	if cfg.OCR.TesseractPath != "" {
		tess := extract.Tesseract{Path: cfg.OCR.TesseractPath, Lang: cfg.OCR.Lang}
		if tess.Available() {
			ocr = tess
		} else {
			slog.Warn("tesseract not found, embedded images will not be read", "path", cfg.OCR.TesseractPath)
		}
	}

	// A nil completer leaves the pipeline unready; chat answers 503.
	var completer rag.Completer
	if cfg.CompletionReady() {
		client, err := llm.NewClient(llm.Config{
			Provider:   cfg.Completion.Provider,
			BaseURL:    cfg.Completion.BaseURL,
			APIKey:     cfg.Completion.APIKey,
			APIVersion: cfg.Completion.APIVersion,
			Model:      cfg.Completion.Model,
		})
		if err != nil {
			slog.Error("completion client not initialized", "error", err)
		} else {
			completer = client
		}
	} else {
		slog.Warn("completion service not configured, chat is unavailable",
			"provider", cfg.Completion.Provider)
	}

	return rag.NewPipeline(rag.NewChunkStore(), extract.New(ocr), completer, pipelineOptions(cfg))
}

func pipelineOptions(cfg *config.AppConfig) rag.Options {
	budget := rag.DefaultBudget
	if cfg.Context.Preset == config.PresetCompact {
		budget = rag.CompactBudget
	}
	if cfg.Context.MaxChars > 0 {
		budget.MaxChars = cfg.Context.MaxChars
	}
	if cfg.Context.TopK > 0 {
		budget.TopK = cfg.Context.TopK
	}

	return rag.Options{
		WindowWords:     cfg.Chunker.WindowWords,
		OverlapWords:    cfg.OverlapWords(),
		Budget:          budget,
		ConsumeAfterUse: cfg.ConsumeAfterUse(),
		Completion: rag.CompletionParams{
			Temperature: cfg.Temperature(),
			MaxTokens:   cfg.Completion.MaxTokens,
		},
		Timeout: cfg.CompletionTimeout(),
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
