package main

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/clearsign/internal/config"
	"github.com/yourorg/clearsign/internal/explorer"
	"github.com/yourorg/clearsign/internal/generator"
	"github.com/yourorg/clearsign/internal/pipeline"
)

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

func newService(cfg *config.Config, logger *slog.Logger) *pipeline.Service {
	resolver := &explorer.Client{
		BaseURL:    cfg.Explorer.BaseURL,
		APIKey:     cfg.Explorer.APIKey,
		ChainID:    cfg.Explorer.ChainID,
		HTTPClient: &http.Client{Timeout: cfg.Explorer.Timeout},
		Logger:     logger.With("component", "explorer"),
		Redact:     cfg.Redact,
	}
	completer := &generator.Client{
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		MaxTokens:     cfg.LLM.MaxTokens,
		ContextWindow: cfg.LLM.ContextWindow,
		Temperature:   cfg.LLM.Temperature,
		APIVersion:    cfg.LLM.APIVersion,
		HTTPClient:    &http.Client{Timeout: cfg.LLM.Timeout},
		Logger:        logger.With("component", "llm"),
		Redact:        cfg.Redact,
	}
	creds := pipeline.Credentials{
		GenerationKey: cfg.LLM.APIKey,
		MetadataKey:   cfg.Explorer.APIKey,
	}
	return pipeline.NewService(creds, resolver, completer, logger.With("component", "pipeline"))
}

func warnMissingCredentials(logger *slog.Logger, cfg *config.Config) {
	if cfg.LLM.APIKey == "" {
		logger.Warn("CLAUDE_API_KEY not set; every request will fail")
	}
	if cfg.Explorer.APIKey == "" {
		logger.Warn("ETHERSCAN_API_KEY not set; requests without an abi will fail")
	}
}

// ginMode keeps gin's banner and route dump out of non-debug output.
func ginMode(level string) string {
	if strings.EqualFold(level, "debug") {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
