package report

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"compassdev/database/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSummarySession(store *fakeStore, sessionID int64) {
	store.addSession(postgres.InterviewSession{
		ID:            sessionID,
		OwnerID:       "user-1",
		Phase:         postgres.PhaseSummary,
		QuestionIndex: 8,
		Status:        postgres.StatusActive,
	})
	store.messages = append(store.messages,
		postgres.SessionMessage{ID: "m1", SessionID: sessionID, Role: postgres.RoleAssistant, PersonaID: "icebreaker", Content: "What did you love as a kid?"},
		postgres.SessionMessage{ID: "m2", SessionID: sessionID, Role: postgres.RoleUser, PersonaID: "icebreaker", Content: "Taking radios apart on the kitchen table."},
	)
}

func testOrchestrator(store *fakeStore, llm CompletionClient) *Orchestrator {
	return Connect(OrchestratorConnectProps{
		Logger:    testLogger(),
		Store:     store,
		LLM:       llm,
		BaseDelay: time.Millisecond,
	})
}

func TestFetchDependentBeforeFoundationIsPending(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := cannedLLM()
	o := testOrchestrator(store, llm)

	res, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeStyle})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, res.Status)
	assert.Nil(t, res.Content)
	assert.Equal(t, 0, llm.callCount())
	assert.False(t, store.hasReport(1, TypeStyle))
}

func TestFetchFoundationGeneratesAndFinalizes(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := cannedLLM()
	o := testOrchestrator(store, llm)

	res, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.NoError(t, err)

	require.Equal(t, StatusReady, res.Status)
	assert.False(t, res.Cached)

	var content FoundationContent
	require.NoError(t, json.Unmarshal(res.Content, &content))
	assert.Equal(t, "I want to build tools that help curious people teach themselves.", content.Statement)
	assert.NotEmpty(t, content.Markdown)
	assert.Equal(t, []string{"curiosity", "craft"}, content.Themes)

	session, err := store.GetSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, postgres.StatusCompleted, session.Status)
	require.True(t, session.GeneratedStatement.Valid)
	assert.Equal(t, content.Markdown, session.GeneratedStatement.String)
}

func TestFetchSecondCallServesCache(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := cannedLLM()
	o := testOrchestrator(store, llm)

	first, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.NoError(t, err)
	second, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, llm.callCount())
}

func TestFetchReadsThroughStoreAfterCacheLoss(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := cannedLLM()

	first := testOrchestrator(store, llm)
	_, err := first.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.NoError(t, err)

	// A fresh orchestrator has an empty memory cache; the stored row must
	// still satisfy the fetch without another completion call.
	second := testOrchestrator(store, llm)
	res, err := second.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.NoError(t, err)

	assert.Equal(t, StatusReady, res.Status)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, llm.callCount())
}

func TestFetchForceRegenerateCallsUpstreamAgain(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := cannedLLM()
	o := testOrchestrator(store, llm)

	_, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.NoError(t, err)

	res, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation, ForceRegenerate: true})
	require.NoError(t, err)

	assert.Equal(t, StatusReady, res.Status)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, llm.callCount())
}

func TestFetchRejectedThreeTimesLeavesNoRow(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	store.reports["1/foundation"] = postgres.SessionReport{
		SessionID:  1,
		ReportType: string(TypeFoundation),
		Content:    json.RawMessage(`{"markdown":"# Foundation","statement":"s","narrative":"n","themes":[]}`),
	}

	// Valid JSON every time, but only two styles: each attempt fails the
	// cardinality gate and the raw reply must never be stored.
	llm := &fakeLLM{handler: func(prompt string) (string, error) {
		return `{"styles":[{"name":"a","description":"d","whenItShines":"w"},{"name":"b","description":"d","whenItShines":"w"}]}`, nil
	}}
	o := testOrchestrator(store, llm)

	_, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeStyle})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQualityGate)

	assert.Equal(t, 3, llm.callCount())
	assert.False(t, store.hasReport(1, TypeStyle))

	// The type stays fetchable: a later attempt with a healthy upstream
	// succeeds from scratch.
	llm.mu.Lock()
	llm.handler = cannedLLM().handler
	llm.mu.Unlock()

	res, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeStyle})
	require.NoError(t, err)
	assert.Equal(t, StatusReady, res.Status)
}

func TestFetchUpstreamErrorRetriesThenFails(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := &fakeLLM{handler: func(prompt string) (string, error) {
		return "", fmt.Errorf("completion service unavailable")
	}}
	o := testOrchestrator(store, llm)

	_, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.Error(t, err)
	assert.Equal(t, 3, llm.callCount())
	assert.Equal(t, 0, store.reportCount())
}

func TestFetchDegradesToUnstructuredProse(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := &fakeLLM{handler: func(prompt string) (string, error) {
		return "They are driven by curiosity, plainly. No braces anywhere in this reply.", nil
	}}
	o := testOrchestrator(store, llm)

	res, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.NoError(t, err)

	require.Equal(t, StatusReady, res.Status)
	var content UnstructuredContent
	require.NoError(t, json.Unmarshal(res.Content, &content))
	assert.Equal(t, "They are driven by curiosity, plainly. No braces anywhere in this reply.", content.Markdown)
	assert.Equal(t, 3, llm.callCount())

	// a completed session must carry a statement even on the degraded path
	session, err := store.GetSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, postgres.StatusCompleted, session.Status)
	require.True(t, session.GeneratedStatement.Valid)
	assert.Equal(t, content.Markdown, session.GeneratedStatement.String)
}

func TestFetchDependencyCheckSurfacesStoreError(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	store.getReportErr = fmt.Errorf("connection refused")
	llm := cannedLLM()
	o := testOrchestrator(store, llm)

	// a store outage is an error, never a misleading "pending"
	res, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeStyle})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 0, llm.callCount())
}

func TestFetchFoundationCascadesRemainingTypes(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := cannedLLM()
	o := testOrchestrator(store, llm)

	res, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation, CascadeOnFoundation: true})
	require.NoError(t, err)
	require.Equal(t, StatusReady, res.Status)

	require.Eventually(t, func() bool {
		return store.reportCount() == len(AllReportTypes())
	}, 5*time.Second, 10*time.Millisecond)

	for _, rt := range AllReportTypes() {
		assert.True(t, store.hasReport(1, rt), "missing report %s", rt)
	}
	// One completion call per type, none repeated.
	assert.Equal(t, len(AllReportTypes()), llm.callCount())
}

func TestCascadeSkipsAlreadyGeneratedTypes(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := cannedLLM()
	o := testOrchestrator(store, llm)

	// style generated ahead of the cascade
	_, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.NoError(t, err)
	_, err = o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeStyle})
	require.NoError(t, err)
	callsBefore := llm.callCount()

	o.runCascade(context.Background(), 1)

	assert.Equal(t, len(AllReportTypes()), store.reportCount())
	// strengths, letter, scores, roadmap generated; foundation and style skipped
	assert.Equal(t, callsBefore+4, llm.callCount())
}

func TestDependentPromptCarriesFoundationMarkdown(t *testing.T) {
	store := newFakeStore()
	seedSummarySession(store, 1)
	llm := cannedLLM()
	o := testOrchestrator(store, llm)

	_, err := o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeFoundation})
	require.NoError(t, err)
	_, err = o.Fetch(context.Background(), FetchProps{SessionID: 1, Type: TypeLetter})
	require.NoError(t, err)

	llm.mu.Lock()
	defer llm.mu.Unlock()
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "[FOUNDATION REPORT]")
	assert.Contains(t, llm.prompts[1], "[INTERVIEW TRANSCRIPT]")
	assert.Contains(t, llm.prompts[1], "Maya: What did you love as a kid?")
	assert.Contains(t, llm.prompts[1], "You: Taking radios apart on the kitchen table.")
}
