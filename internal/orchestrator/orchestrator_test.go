package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/okhval/hindsite/internal/agent"
	"github.com/okhval/hindsite/internal/model"
)

// stubAgent is a scriptable collector for protocol tests.
type stubAgent struct {
	name       string
	confidence float64
	verifies   bool

	estimatePanics bool
	collectPanics  bool

	collectCalls int
	verifyCalls  int
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) EstimateConfidence(_ context.Context, _ string) float64 {
	if s.estimatePanics {
		panic("estimate exploded")
	}
	return s.confidence
}

func (s *stubAgent) Verify(_ context.Context, _ string) bool {
	s.verifyCalls++
	return s.verifies
}

func (s *stubAgent) Collect(_ context.Context, url string) *model.AgentResult {
	s.collectCalls++
	if s.collectPanics {
		panic("collect exploded")
	}
	return &model.AgentResult{
		Success:       true,
		ArticlesFound: 1,
		Articles:      []model.HistoricalArticle{{Title: "From " + s.name, URL: url + "/post/" + strings.ToLower(s.name)}},
		Strategy:      s.name,
		Confidence:    s.confidence,
		Metadata:      &model.ResultMetadata{PlatformDetected: strings.ToLower(s.name)},
	}
}

func (s *stubAgent) PlatformIndicators() model.PlatformIndicators {
	return model.PlatformIndicators{Platform: strings.ToLower(s.name), Description: s.name + " stub"}
}

func newTestOrchestrator(agents ...agent.Agent) *Orchestrator {
	return New(agent.NewRegistryWith(agents...))
}

func TestCollect_HighConfidenceAgentSelected(t *testing.T) {
	specialist := &stubAgent{name: "Ghost", confidence: 0.95, verifies: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: true}

	result := newTestOrchestrator(specialist, fallback).Collect(context.Background(), "https://demo.ghost.io")

	if result.AgentUsed != "Ghost" {
		t.Errorf("expected Ghost, got %q", result.AgentUsed)
	}
	if !strings.Contains(result.AnalysisResults.SelectionReason, "high confidence") {
		t.Errorf("expected high-confidence reason, got %q", result.AnalysisResults.SelectionReason)
	}
	if !result.Success || result.ArticlesFound != 1 {
		t.Errorf("unexpected result: %+v", result.AgentResult)
	}
	if result.NeedsAttention != nil {
		t.Error("recognized platform must not flag needs-attention")
	}
	if result.CollectionID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected a collection ID")
	}
}

func TestCollect_SelectionReasonBands(t *testing.T) {
	tests := []struct {
		confidence float64
		want       string
	}{
		{0.95, "high confidence"},
		{0.6, "medium confidence"},
		{0.3, "low confidence"},
	}

	for _, tt := range tests {
		specialist := &stubAgent{name: "Specialist", confidence: tt.confidence, verifies: true}
		fallback := &stubAgent{name: "Universal", confidence: 0.05, verifies: true}

		result := newTestOrchestrator(specialist, fallback).Collect(context.Background(), "https://example.com")
		if !strings.Contains(result.AnalysisResults.SelectionReason, tt.want) {
			t.Errorf("confidence %v: got reason %q, want %q", tt.confidence, result.AnalysisResults.SelectionReason, tt.want)
		}
	}
}

func TestCollect_FallbackSelectionReasonFixed(t *testing.T) {
	specialist := &stubAgent{name: "Specialist", confidence: 0, verifies: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.9, verifies: true}

	result := newTestOrchestrator(specialist, fallback).Collect(context.Background(), "https://example.com")
	if result.AnalysisResults.SelectionReason != "fallback agent" {
		t.Errorf("Universal selection reason must be fixed, got %q", result.AnalysisResults.SelectionReason)
	}
}

func TestCollect_ThresholdIsExclusive(t *testing.T) {
	borderline := &stubAgent{name: "Borderline", confidence: 0.1, verifies: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.05, verifies: true}

	result := newTestOrchestrator(borderline, fallback).Collect(context.Background(), "https://example.com")

	for _, a := range result.AnalysisResults.AgentsAnalyzed {
		if a.Name == "Borderline" && a.CanHandle {
			t.Error("confidence exactly 0.1 must not qualify")
		}
	}
	if result.NeedsAttention == nil {
		t.Error("no qualifying agent should trigger the unknown-platform path")
	}
}

func TestCollect_VerificationFailureFallsBack(t *testing.T) {
	liar := &stubAgent{name: "Ghost", confidence: 0.9, verifies: false}
	fallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: true}

	result := newTestOrchestrator(liar, fallback).Collect(context.Background(), "https://example.com")

	if result.AgentUsed != "Ghost (failed) → Universal" {
		t.Errorf("unexpected agentUsed: %q", result.AgentUsed)
	}
	if liar.collectCalls != 0 {
		t.Error("failed verification must prevent collection by the selected agent")
	}
	if fallback.collectCalls != 1 {
		t.Errorf("fallback should collect exactly once, got %d", fallback.collectCalls)
	}
	if !strings.Contains(result.AnalysisResults.SelectionReason, "failed verification") {
		t.Errorf("expected explanatory note, got %q", result.AnalysisResults.SelectionReason)
	}
}

func TestCollect_OnlySelectedAgentVerified(t *testing.T) {
	winner := &stubAgent{name: "Winner", confidence: 0.9, verifies: true}
	loser := &stubAgent{name: "Loser", confidence: 0.6, verifies: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: true}

	newTestOrchestrator(winner, loser, fallback).Collect(context.Background(), "https://example.com")

	if winner.verifyCalls != 1 {
		t.Errorf("winner should be verified once, got %d", winner.verifyCalls)
	}
	if loser.verifyCalls != 0 {
		t.Errorf("non-selected agents must not be verified, got %d", loser.verifyCalls)
	}
}

func TestCollect_FallbackNeverVerified(t *testing.T) {
	fallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: false}

	result := newTestOrchestrator(fallback).Collect(context.Background(), "https://example.com")

	if fallback.verifyCalls != 0 {
		t.Error("the fallback passes verification implicitly")
	}
	if result.AgentUsed != "Universal" {
		t.Errorf("unexpected agentUsed: %q", result.AgentUsed)
	}
}

func TestCollect_UnknownPlatformPath(t *testing.T) {
	specialist := &stubAgent{name: "Specialist", confidence: 0.05, verifies: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.05, verifies: true}

	result := newTestOrchestrator(specialist, fallback).Collect(context.Background(), "https://blog.mystery-site.com/blog/whatever")

	if result.AgentUsed != "Universal (unknown platform)" {
		t.Errorf("unexpected agentUsed: %q", result.AgentUsed)
	}
	if result.NeedsAttention == nil {
		t.Fatal("expected needs-attention block")
	}
	if len(result.NeedsAttention.Suggestions) == 0 {
		t.Error("expected non-empty suggestions")
	}
	if !strings.Contains(result.NeedsAttention.PlatformAnalysis, "blog. subdomain") {
		t.Errorf("expected blog. marker in analysis, got %q", result.NeedsAttention.PlatformAnalysis)
	}
	if !result.Success {
		t.Error("unknown platform is not an error when the fallback collects")
	}
}

func TestCollect_EstimatePanicRecordedAsZero(t *testing.T) {
	broken := &stubAgent{name: "Broken", confidence: 0.9, estimatePanics: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: true}

	result := newTestOrchestrator(broken, fallback).Collect(context.Background(), "https://example.com")

	for _, a := range result.AnalysisResults.AgentsAnalyzed {
		if a.Name == "Broken" && (a.Confidence != 0 || a.CanHandle) {
			t.Errorf("panicking estimator must score 0, got %+v", a)
		}
	}
	if result.AgentUsed != "Universal" {
		t.Errorf("expected fallback selection, got %q", result.AgentUsed)
	}
}

func TestCollect_EmergencyFallbackOnPanic(t *testing.T) {
	bomb := &stubAgent{name: "Bomb", confidence: 0.9, verifies: true, collectPanics: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: true}

	result := newTestOrchestrator(bomb, fallback).Collect(context.Background(), "https://example.com")

	if result.AgentUsed != "Universal (emergency fallback)" {
		t.Errorf("unexpected agentUsed: %q", result.AgentUsed)
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "panic") {
		t.Errorf("original panic should lead the errors list, got %v", result.Errors)
	}
	if !result.Success {
		t.Error("emergency fallback collected successfully, result should reflect that")
	}
}

func TestCollect_TotalFailureNeverPanics(t *testing.T) {
	bomb := &stubAgent{name: "Bomb", confidence: 0.9, verifies: true, collectPanics: true}
	deadFallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: true, collectPanics: true}

	result := newTestOrchestrator(bomb, deadFallback).Collect(context.Background(), "https://example.com")

	if result == nil {
		t.Fatal("Collect must never return nil")
	}
	if result.Success {
		t.Error("total failure must report Success=false")
	}
	if result.AgentUsed != "None (total failure)" {
		t.Errorf("unexpected agentUsed: %q", result.AgentUsed)
	}
	if result.ArticlesFound != 0 || len(result.Articles) != 0 {
		t.Error("total failure must carry zero articles")
	}
}

func TestAnalyzeOnly(t *testing.T) {
	specialist := &stubAgent{name: "Specialist", confidence: 0.9, verifies: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: true}

	report := newTestOrchestrator(specialist, fallback).AnalyzeOnly(context.Background(), "https://example.com")

	if report.AnalysisResults.SelectedAgent != "Specialist" {
		t.Errorf("unexpected selection: %q", report.AnalysisResults.SelectedAgent)
	}
	if report.NeedsSpecializedAgent {
		t.Error("a confident specialist means no new agent is needed")
	}
	if specialist.verifyCalls != 0 || specialist.collectCalls != 0 {
		t.Error("analysis-only mode must not verify or collect")
	}
}

func TestAnalyzeOnly_FallbackSelectionNeedsSpecializedAgent(t *testing.T) {
	specialist := &stubAgent{name: "Specialist", confidence: 0.05, verifies: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: true}

	report := newTestOrchestrator(specialist, fallback).AnalyzeOnly(context.Background(), "https://example.com")

	if !report.NeedsSpecializedAgent {
		t.Error("fallback selection should recommend building a specialized agent")
	}
}

func TestListAgents(t *testing.T) {
	a := &stubAgent{name: "A"}
	b := &stubAgent{name: "B"}

	infos := newTestOrchestrator(a, b).ListAgents()
	if len(infos) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(infos))
	}
	if infos[0].Name != "A" || infos[1].Name != "B" {
		t.Errorf("registration order not preserved: %+v", infos)
	}
}

type stubHinter struct{ hint string }

func (s *stubHinter) PlatformHint(_ context.Context, _ string) (string, error) {
	return s.hint, nil
}

func TestCollect_HinterAppendsSuggestion(t *testing.T) {
	fallback := &stubAgent{name: "Universal", confidence: 0.05, verifies: true}
	orch := New(agent.NewRegistryWith(fallback), WithHinter(&stubHinter{hint: "LLM hint: looks like Jekyll"}))

	result := orch.Collect(context.Background(), "https://example.com")

	if result.NeedsAttention == nil {
		t.Fatal("expected needs-attention block")
	}
	found := false
	for _, s := range result.NeedsAttention.Suggestions {
		if strings.Contains(s, "Jekyll") {
			found = true
		}
	}
	if !found {
		t.Errorf("hint not appended: %v", result.NeedsAttention.Suggestions)
	}
}

func TestAnalyzePlatformMarkers(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://blog.example.com", "blog. subdomain"},
		{"https://example.com/blog/post", "/blog/ path segment"},
		{"https://my-wordpress-host.com", "wordpress"},
		{"https://plain.example.com", "no platform markers"},
	}

	for _, tt := range tests {
		got := analyzePlatformMarkers(tt.url)
		if !strings.Contains(got, tt.want) {
			t.Errorf("analyzePlatformMarkers(%q) = %q, want substring %q", tt.url, got, tt.want)
		}
	}
}

func TestTieBreak_RegistryOrderWins(t *testing.T) {
	first := &stubAgent{name: "First", confidence: 0.7, verifies: true}
	second := &stubAgent{name: "Second", confidence: 0.7, verifies: true}
	fallback := &stubAgent{name: "Universal", confidence: 0.3, verifies: true}

	result := newTestOrchestrator(first, second, fallback).Collect(context.Background(), "https://example.com")
	if result.AgentUsed != "First" {
		t.Errorf("registry order should break ties, got %q", result.AgentUsed)
	}
}
