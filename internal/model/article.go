package model

import (
	"time"

	"github.com/google/uuid"
)

// HistoricalArticle is one discovered post from a source's archive.
// URL is the identity key: two records with the same URL are the same
// article regardless of other field differences.
type HistoricalArticle struct {
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	PublishedDate time.Time `json:"published_date"`
	Description   string    `json:"description,omitempty"`
	Author        string    `json:"author,omitempty"`
}

// AgentResult is the output of a single agent's Collect call. It is
// constructed once at the end of collection and immutable afterwards.
type AgentResult struct {
	Success       bool                `json:"success"`
	Articles      []HistoricalArticle `json:"articles"`
	ArticlesFound int                 `json:"articles_found"`
	Strategy      string              `json:"strategy"`
	Confidence    float64             `json:"confidence"`
	Errors        []string            `json:"errors,omitempty"`
	Metadata      *ResultMetadata     `json:"metadata,omitempty"`
}

// ResultMetadata carries provenance about how a collection ran.
type ResultMetadata struct {
	PlatformDetected string   `json:"platform_detected"`
	MethodsUsed      []string `json:"methods_used"`
	TotalTimeMs      int64    `json:"total_time_ms"`
}

// PlatformIndicators is the static self-description of an agent's
// detection surface. Introspection only, never used for routing.
type PlatformIndicators struct {
	Platform          string   `json:"platform"`
	Description       string   `json:"description"`
	URLPatterns       []string `json:"url_patterns"`
	ContentSignatures []string `json:"content_signatures"`
	APIEndpoints      []string `json:"api_endpoints,omitempty"`
	BaseConfidence    float64  `json:"base_confidence"`
}

// AgentAnalysis is one agent's confidence estimate for a URL.
type AgentAnalysis struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	CanHandle  bool    `json:"can_handle"`
}

// AnalysisResults records the outcome of the analysis and selection
// phases of an orchestration.
type AnalysisResults struct {
	AgentsAnalyzed  []AgentAnalysis `json:"agents_analyzed"`
	SelectedAgent   string          `json:"selected_agent"`
	SelectionReason string          `json:"selection_reason"`
}

// NeedsAttention flags that no specialized agent recognized the input
// platform. Advisory metadata only; collection behavior is unaffected.
type NeedsAttention struct {
	Reason           string   `json:"reason"`
	Suggestions      []string `json:"suggestions"`
	PlatformAnalysis string   `json:"platform_analysis"`
}

// OrchestrationResult is an AgentResult augmented with orchestration
// provenance. Created once per Collect call, never persisted.
type OrchestrationResult struct {
	AgentResult

	// AgentUsed may encode a fallback chain, e.g. "Ghost (failed) → Universal".
	AgentUsed       string           `json:"agent_used"`
	AnalysisResults *AnalysisResults `json:"analysis_results,omitempty"`
	NeedsAttention  *NeedsAttention  `json:"needs_attention,omitempty"`
	CollectionID    uuid.UUID        `json:"collection_id"`
}

// AnalysisReport is the output of analysis-only mode: phases 1-2 of the
// protocol without verification or collection.
type AnalysisReport struct {
	URL                   string           `json:"url"`
	AnalysisResults       *AnalysisResults `json:"analysis_results"`
	Recommendation        string           `json:"recommendation"`
	NeedsSpecializedAgent bool             `json:"needs_specialized_agent"`
}

// AgentInfo describes a registered agent for static introspection.
type AgentInfo struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Indicators  PlatformIndicators `json:"indicators"`
}
