// Package pipeline runs one documentation request from credential check to
// generated Markdown.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/yourorg/clearsign/internal/abi"
	"github.com/yourorg/clearsign/internal/generator"
	"github.com/yourorg/clearsign/pkg/types"
)

// Resolver yields the interface description for a contract.
type Resolver interface {
	Resolve(ctx context.Context, address string, supplied json.RawMessage) (json.RawMessage, error)
}

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt, apiKey string) (string, error)
}

// Credentials are the provider keys loaded once at startup.
type Credentials struct {
	GenerationKey string
	MetadataKey   string
}

// Service composes the resolver and completer. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	creds     Credentials
	resolver  Resolver
	completer Completer
	logger    *slog.Logger
}

func NewService(creds Credentials, resolver Resolver, completer Completer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		creds:     creds,
		resolver:  resolver,
		completer: completer,
		logger:    logger,
	}
}

// Generate runs the request through credential check, ABI resolution,
// prompt construction and generation. Every failure is an *Error.
func (s *Service) Generate(ctx context.Context, req types.Request) (*types.GeneratedDocument, error) {
	log := s.logger.With("contract_address", req.ContractAddress)

	if s.creds.GenerationKey == "" {
		return nil, &Error{Kind: KindConfiguration, Err: ErrMissingGenerationKey}
	}
	if !req.HasABI() && s.creds.MetadataKey == "" {
		return nil, &Error{Kind: KindConfiguration, Err: ErrMissingMetadataKey}
	}
	log.DebugContext(ctx, "credentials checked", "abi_supplied", req.HasABI())

	description, err := s.resolver.Resolve(ctx, req.ContractAddress, req.ABI)
	if err != nil {
		return nil, &Error{Kind: KindMetadata, Err: err}
	}
	log.DebugContext(ctx, "metadata ready", "abi_bytes", len(description))

	functions := abi.ExtractFunctions(description)
	prompt := generator.BuildPrompt(functions, req.ContractAddress, description)
	log.DebugContext(ctx, "prompt ready", "functions", len(functions), "prompt_bytes", len(prompt))

	completion, err := s.completer.Complete(ctx, prompt, s.creds.GenerationKey)
	if err != nil {
		return nil, &Error{Kind: KindGeneration, Err: err}
	}
	log.DebugContext(ctx, "generation complete", "markdown_bytes", len(completion))

	return &types.GeneratedDocument{Markdown: completion}, nil
}
