package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/casecoach/backend/services/embedding"
)

// newProvider builds the embedding provider selected by flags. The openai
// provider reads its key from LLM_API_KEY, same as the server.
func newProvider() (embedding.Provider, error) {
	switch viper.GetString("provider") {
	case "openai":
		return embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:    os.Getenv("LLM_API_KEY"),
			Model:     viper.GetString("model"),
			Dimension: viper.GetInt("dimension"),
		})
	case "local":
		// NewLocalProvider clamps dimension 0 to its default.
		return embedding.NewLocalProvider(viper.GetInt("dimension")), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", viper.GetString("provider"))
	}
}
