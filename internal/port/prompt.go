package port

// PromptVersion is one versioned extraction prompt.
type PromptVersion struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Active  bool   `json:"active"`
	Content string `json:"-"`
}

// PromptStore returns extraction prompt text by version identifier. The
// orchestrator treats prompt content as an opaque string.
type PromptStore interface {
	Active() (*PromptVersion, error)
	Get(versionID string) (*PromptVersion, error)
	List() ([]PromptVersion, error)
	SetActive(versionID string) error
}
