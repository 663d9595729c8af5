package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/okhval/hindsite/internal/agent"
	"github.com/okhval/hindsite/internal/model"
)

// minInterestConfidence is the floor below which an agent is not
// considered a candidate. Exclusive: exactly 0.1 does not qualify.
const minInterestConfidence = 0.1

// PlatformHinter is the optional LLM collaborator consulted only when
// no specialized agent recognized the platform. Advisory: its output
// lands in the needs-attention suggestions and nowhere else.
type PlatformHinter interface {
	PlatformHint(ctx context.Context, url string) (string, error)
}

// Orchestrator routes a URL through the four-phase protocol: analyze
// every agent's confidence, select the best candidate, verify it, and
// collect. Collect never panics through to the caller; every internal
// failure degrades to the Universal fallback or a terminal failure
// result.
type Orchestrator struct {
	registry *agent.Registry
	hinter   PlatformHinter
	verbose  bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHinter attaches the optional platform-hint provider.
func WithHinter(h PlatformHinter) Option {
	return func(o *Orchestrator) { o.hinter = h }
}

// WithVerbose enables phase-by-phase progress output.
func WithVerbose(v bool) Option {
	return func(o *Orchestrator) { o.verbose = v }
}

// New creates an orchestrator over the given registry.
func New(registry *agent.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{registry: registry}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.verbose {
		fmt.Printf(format+"\n", args...)
	}
}

// Collect runs the full protocol for one URL. It always returns a
// structurally valid result, possibly with Success=false; it never
// panics.
func (o *Orchestrator) Collect(ctx context.Context, rawURL string) (result *model.OrchestrationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = o.emergencyFallback(ctx, rawURL, fmt.Sprintf("orchestration panic: %v", r))
		}
	}()

	id := uuid.New()

	// Phase 1: analyze
	analysis := o.analyze(ctx, rawURL)

	// Phase 2: select
	selected := o.selectAgent(analysis)
	if selected == nil {
		return o.collectUnknownPlatform(ctx, rawURL, analysis, id)
	}

	o.logf("selected %s: %s", analysis.SelectedAgent, analysis.SelectionReason)

	// Phase 3: verify (the fallback always passes implicitly)
	fallback := o.registry.Fallback()
	agentUsed := selected.Name()
	if selected != fallback && !o.safeVerify(ctx, selected, rawURL) {
		o.logf("verification failed for %s, falling back to %s", selected.Name(), fallback.Name())
		analysis.SelectionReason += fmt.Sprintf("; %s failed verification, fell back to %s", selected.Name(), fallback.Name())
		agentUsed = fmt.Sprintf("%s (failed) → %s", selected.Name(), fallback.Name())
		selected = fallback
	}

	// Phase 4: collect
	agentResult := selected.Collect(ctx, rawURL)
	if agentResult == nil {
		agentResult = &model.AgentResult{Strategy: selected.Name()}
	}

	o.logf("collected %d articles via %s", agentResult.ArticlesFound, agentUsed)

	return &model.OrchestrationResult{
		AgentResult:     *agentResult,
		AgentUsed:       agentUsed,
		AnalysisResults: analysis,
		CollectionID:    id,
	}
}

// AnalyzeOnly runs phases 1-2 without verification or collection.
func (o *Orchestrator) AnalyzeOnly(ctx context.Context, rawURL string) *model.AnalysisReport {
	analysis := o.analyze(ctx, rawURL)
	selected := o.selectAgent(analysis)

	fallback := o.registry.Fallback()
	needsSpecialized := selected == nil || (fallback != nil && selected == fallback)

	recommendation := fmt.Sprintf("use %s (%s)", analysis.SelectedAgent, analysis.SelectionReason)
	if selected == nil {
		recommendation = "no agent recognized this platform; Universal fallback would be used"
	}

	return &model.AnalysisReport{
		URL:                   rawURL,
		AnalysisResults:       analysis,
		Recommendation:        recommendation,
		NeedsSpecializedAgent: needsSpecialized,
	}
}

// ListAgents returns static introspection for every registered agent.
func (o *Orchestrator) ListAgents() []model.AgentInfo {
	agents := o.registry.Agents()
	infos := make([]model.AgentInfo, 0, len(agents))
	for _, a := range agents {
		ind := a.PlatformIndicators()
		infos = append(infos, model.AgentInfo{
			Name:        a.Name(),
			Description: ind.Description,
			Indicators:  ind,
		})
	}
	return infos
}

// analyze asks every agent for a confidence estimate, sequentially so
// probe traffic stays gentle and logs stay ordered. A panicking
// estimator is recorded as confidence 0.
func (o *Orchestrator) analyze(ctx context.Context, rawURL string) *model.AnalysisResults {
	agents := o.registry.Agents()
	analyzed := make([]model.AgentAnalysis, 0, len(agents))

	for _, a := range agents {
		conf := o.safeEstimate(ctx, a, rawURL)
		analyzed = append(analyzed, model.AgentAnalysis{
			Name:       a.Name(),
			Confidence: conf,
			CanHandle:  conf > minInterestConfidence,
		})
		o.logf("  %-12s confidence %.2f", a.Name(), conf)
	}

	// Stable sort keeps registry order as the tiebreaker: more
	// specific agents are registered first
	sort.SliceStable(analyzed, func(i, j int) bool {
		return analyzed[i].Confidence > analyzed[j].Confidence
	})

	return &model.AnalysisResults{AgentsAnalyzed: analyzed}
}

// selectAgent picks the highest-confidence candidate and records the
// selection reason. Returns nil when no agent qualifies.
func (o *Orchestrator) selectAgent(analysis *model.AnalysisResults) agent.Agent {
	for _, a := range analysis.AgentsAnalyzed {
		if !a.CanHandle {
			continue
		}

		selected := o.registry.ByName(a.Name)
		if selected == nil {
			continue
		}

		analysis.SelectedAgent = a.Name
		analysis.SelectionReason = selectionReason(selected == o.registry.Fallback(), a.Confidence)
		return selected
	}

	analysis.SelectedAgent = ""
	analysis.SelectionReason = "no agent above confidence threshold"
	return nil
}

func selectionReason(isFallback bool, confidence float64) string {
	if isFallback {
		return "fallback agent"
	}
	switch {
	case confidence > 0.8:
		return fmt.Sprintf("high confidence (%.2f)", confidence)
	case confidence > 0.5:
		return fmt.Sprintf("medium confidence (%.2f)", confidence)
	default:
		return fmt.Sprintf("low confidence (%.2f), may fallback", confidence)
	}
}

func (o *Orchestrator) safeEstimate(ctx context.Context, a agent.Agent, rawURL string) (conf float64) {
	defer func() {
		if r := recover(); r != nil {
			conf = 0
		}
	}()
	return a.EstimateConfidence(ctx, rawURL)
}

func (o *Orchestrator) safeVerify(ctx context.Context, a agent.Agent, rawURL string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return a.Verify(ctx, rawURL)
}

// collectUnknownPlatform handles the no-candidate path: collect with
// the fallback anyway and attach advisory needs-attention metadata.
func (o *Orchestrator) collectUnknownPlatform(ctx context.Context, rawURL string, analysis *model.AnalysisResults, id uuid.UUID) *model.OrchestrationResult {
	fallback := o.registry.Fallback()

	o.logf("no agent recognized %s, collecting with %s", rawURL, fallback.Name())

	agentResult := fallback.Collect(ctx, rawURL)
	if agentResult == nil {
		agentResult = &model.AgentResult{Strategy: fallback.Name()}
	}

	attention := &model.NeedsAttention{
		Reason: "no specialized agent recognized this platform",
		Suggestions: []string{
			"consider implementing a specialized agent for this platform",
			"check whether the site exposes a documented content API",
		},
		PlatformAnalysis: analyzePlatformMarkers(rawURL),
	}

	if o.hinter != nil {
		if hint, err := o.hinter.PlatformHint(ctx, rawURL); err == nil && hint != "" {
			attention.Suggestions = append(attention.Suggestions, hint)
		}
	}

	return &model.OrchestrationResult{
		AgentResult:     *agentResult,
		AgentUsed:       fallback.Name() + " (unknown platform)",
		AnalysisResults: analysis,
		NeedsAttention:  attention,
		CollectionID:    id,
	}
}

// cmsNameFragments are hostname substrings that suggest a known CMS
// even when no agent claimed the URL.
var cmsNameFragments = []string{
	"wordpress", "ghost", "substack", "medium", "blogger", "blogspot",
	"typepad", "squarespace", "wix", "tumblr", "hashnode", "svbtle",
}

// analyzePlatformMarkers is a cheap, network-free heuristic string
// listing whatever platform markers the URL itself carries.
func analyzePlatformMarkers(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "URL did not parse; no analysis possible"
	}

	host := strings.ToLower(u.Hostname())
	var markers []string

	for _, fragment := range cmsNameFragments {
		if strings.Contains(host, fragment) {
			markers = append(markers, fmt.Sprintf("hostname mentions %q", fragment))
		}
	}
	if strings.HasPrefix(host, "blog.") {
		markers = append(markers, "blog. subdomain")
	}
	if strings.Contains(strings.ToLower(u.Path), "/blog/") || strings.HasSuffix(strings.ToLower(u.Path), "/blog") {
		markers = append(markers, "/blog/ path segment")
	}

	if len(markers) == 0 {
		return "no platform markers detected in URL"
	}
	return "detected: " + strings.Join(markers, ", ")
}

// emergencyFallback is the last resort after an uncaught panic: one
// direct Universal collection, itself guarded, then a terminal failure
// result if even that fails.
func (o *Orchestrator) emergencyFallback(ctx context.Context, rawURL, cause string) *model.OrchestrationResult {
	fallback := o.registry.Fallback()

	result := func() (result *model.OrchestrationResult) {
		defer func() {
			if r := recover(); r != nil {
				result = nil
			}
		}()

		agentResult := fallback.Collect(ctx, rawURL)
		if agentResult == nil {
			return nil
		}
		agentResult.Errors = append([]string{cause}, agentResult.Errors...)

		return &model.OrchestrationResult{
			AgentResult:  *agentResult,
			AgentUsed:    fallback.Name() + " (emergency fallback)",
			CollectionID: uuid.New(),
		}
	}()

	if result != nil {
		return result
	}

	return &model.OrchestrationResult{
		AgentResult: model.AgentResult{
			Success:  false,
			Articles: nil,
			Errors:   []string{cause, "emergency fallback also failed"},
		},
		AgentUsed:    "None (total failure)",
		CollectionID: uuid.New(),
	}
}
