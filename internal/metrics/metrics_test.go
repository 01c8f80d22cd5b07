package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGenerationByOutcome(t *testing.T) {
	m := New()
	m.ObserveGeneration("chat", time.Now(), nil)
	m.ObserveGeneration("chat", time.Now(), errors.New("boom"))
	m.ObserveGeneration("chat", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generationCalls.WithLabelValues("chat", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationCalls.WithLabelValues("chat", OutcomeError)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGeneration("chat", time.Now(), nil)
	m.PromptRejected()
	m.DialoguePair()
	m.DialogueRun(nil)
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.PromptRejected()
	m.DialoguePair()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "zsalon_prompts_rejected_total 1"))
	assert.True(t, strings.Contains(body, "zsalon_dialogue_turn_pairs_total 1"))
}
