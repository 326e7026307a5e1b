package llm

import (
	"fmt"
	"time"

	"github.com/agentdesk/admin-platform/internal/model"
)

// Factory builds provider clients for agents using their stored API keys.
type Factory struct {
	difyBaseURL string
	timeout     time.Duration
}

// NewFactory creates a client factory.
func NewFactory(difyBaseURL string, timeout time.Duration) *Factory {
	return &Factory{difyBaseURL: difyBaseURL, timeout: timeout}
}

// ForAgent returns the provider client matching the agent's configuration.
func (f *Factory) ForAgent(agent *model.Agent) (Client, error) {
	switch agent.Provider {
	case model.ProviderOpenAI:
		return NewOpenAIClient(agent.APIKey)
	case model.ProviderDify, "":
		return NewDifyClient(f.difyBaseURL, agent.APIKey, f.timeout)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", agent.Provider)
	}
}
