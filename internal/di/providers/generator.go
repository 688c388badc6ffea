package providers

import (
	"github.com/samber/do/v2"

	"github.com/playforge/playforge-server/internal/config"
	"github.com/playforge/playforge-server/internal/generator"
	"github.com/playforge/playforge-server/internal/logger"
)

// Generator is the content-generation adapter the server depends on.
type Generator = generator.Adapter

// ProvideGenerator provides the OpenAI-compatible generation client,
// wired to the live settings service for prompt customization.
func ProvideGenerator(i do.Injector) (Generator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	settingsHandle := do.MustInvoke[*SettingsHandle](i)

	client := generator.NewClient(generator.ClientConfig{
		ResponsesURL:  cfg.Generator.BaseURL,
		APIKey:        cfg.Generator.APIKey,
		FastModel:     cfg.Generator.FastModel,
		ThinkingModel: cfg.Generator.ThinkingModel,
		Timeout:       cfg.Generator.Timeout,
		RPS:           cfg.Generator.RPS,
		Burst:         cfg.Generator.Burst,
	}, settingsHandle.Service, log.Logger)

	log.Info("Generator client initialized",
		"fast_model", cfg.Generator.FastModel,
		"thinking_model", cfg.Generator.ThinkingModel,
	)

	return client, nil
}
