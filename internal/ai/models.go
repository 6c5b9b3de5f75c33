package ai

// ModelInfo describes a model's context window, used to size data samples
// embedded in prompts.
type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int
}

var models = map[string]ModelInfo{
	"gemini-1.5-flash":                 {Name: "gemini-1.5-flash", Provider: ProviderGemini, ContextTokens: 1000000},
	"gemini-1.5-pro":                   {Name: "gemini-1.5-pro", Provider: ProviderGemini, ContextTokens: 1000000},
	"gemini-2.0-flash":                 {Name: "gemini-2.0-flash", Provider: ProviderGemini, ContextTokens: 1000000},
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000},
	"openai/gpt-4o":                    {Name: "openai/gpt-4o", Provider: ProviderOpenRouter, ContextTokens: 128000},
	"google/gemini-1.5-flash":          {Name: "google/gemini-1.5-flash", Provider: ProviderOpenRouter, ContextTokens: 1000000},
	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", Provider: ProviderOpenRouter, ContextTokens: 131072},
	"llama3.1":                         {Name: "llama3.1", Provider: ProviderOllama, ContextTokens: 8192},
	"llama3:latest":                    {Name: "llama3:latest", Provider: ProviderOllama, ContextTokens: 8192},
	"mistral:7b-instruct":              {Name: "mistral:7b-instruct", Provider: ProviderOllama, ContextTokens: 8192},
	"phi3:mini-4k-instruct":            {Name: "phi3:mini-4k-instruct", Provider: ProviderOllama, ContextTokens: 4096},
}

var defaultModels = map[string]string{
	ProviderGemini:     "gemini-1.5-flash",
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderOllama:     "llama3.1",
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// PromptBudget returns the number of prompt tokens available for data
// samples after reserving room for the completion. Unknown models get a
// conservative local-model budget.
func PromptBudget(model string, maxTokens int) int {
	ctx := 8192
	if mi, ok := LookupModel(model); ok {
		ctx = mi.ContextTokens
	}
	// Data samples never need more than this, even on large-context models.
	if ctx > 16000 {
		ctx = 16000
	}
	budget := ctx - maxTokens - 512
	if budget < 512 {
		budget = 512
	}
	return budget
}
