package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
	"github.com/pre-triage-server/internal/service"
	"github.com/pre-triage-server/internal/session"
)

func writeCorpus(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		reference.FileSynonyms: `{
			"version": "api-test-1",
			"synonyms": [
				{"canonical": "idrarda yanma", "variants": ["idrar yaparken yanıyor"]},
				{"canonical": "sık idrara çıkma", "variants": ["çok sık idrara çıkıyorum"]},
				{"canonical": "baş ağrısı", "variants": ["başım ağrıyor"]},
				{"canonical": "ateş", "variants": ["ateşim var"]}
			]
		}`,
		reference.FileDiseaseSymptoms: `{
			"Urinary tract infection": ["burning_micturition", "frequent_urination", "fever"],
			"Migraine": ["headache", "nausea"]
		}`,
		reference.FileSymptomSeverity: `{
			"burning_micturition": 4, "frequent_urination": 3, "headache": 3, "fever": 4, "nausea": 5
		}`,
		reference.FileReferenceToCanonical: `{
			"burning_micturition": "idrarda yanma",
			"frequent_urination": "sık idrara çıkma",
			"headache": "baş ağrısı",
			"fever": "ateş",
			"nausea": null
		}`,
		reference.FileDiseaseToSpecialty: `{
			"fallback_specialty_id": "internal_gi",
			"fallback_display_name": "Dahiliye",
			"map": [
				{"disease_label": "Urinary tract infection", "specialty_id": "urology_internal", "display_name": "Üroloji", "confidence": 0.9},
				{"disease_label": "Migraine", "specialty_id": "neurology", "display_name": "Nöroloji", "confidence": 0.85}
			]
		}`,
		reference.FileSpecialtyKeywords: `{
			"scoring": {"keyword_points": 3, "phrase_points": 5, "negative_penalty": -4},
			"specialties": [
				{"id": "urology_internal", "display_name": "Üroloji", "keywords": ["idrarda yanma", "sık idrara çıkma"], "negative_keywords": []},
				{"id": "neurology", "display_name": "Nöroloji", "keywords": ["baş ağrısı"], "negative_keywords": []},
				{"id": "internal_gi", "display_name": "Dahiliye", "keywords": ["ateş"], "negative_keywords": []}
			]
		}`,
		reference.FileQuestionBank: `{
			"questions": [
				{"canonical": "ateş", "text": "Ateşiniz var mı?", "answer_type": "yes_no"}
			]
		}`,
		reference.FileEmergencyRules: `{
			"hard_triggers": [
				{"id": "cardiac", "label": "Kalp krizi şüphesi", "keywords": ["göğsümde baskı"], "regex": "nefes(im)?\\s+(dar|daralıyor)"}
			],
			"soft_triggers": [],
			"age_risk": {"min": 0, "max": 5, "min2": 66, "max2": 120},
			"instructions": ["Hemen 112'yi arayın."]
		}`,
		reference.FileRiskRules: `{
			"high": {"canonicals_any": ["gogus_agrisi"]},
			"medium": {"canonicals_any": ["ates"]}
		}`,
		reference.FileStopRules: `{
			"max_questions": 6,
			"high_confidence_disease_score": 0.45,
			"min_specialty_score_gap": 2.0
		}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func newTestServer(t *testing.T, adminKey string) (*Server, *session.MemoryStore) {
	t.Helper()
	dir := t.TempDir()
	writeCorpus(t, dir)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	rt, err := reference.Load(dir, logger)
	require.NoError(t, err)

	cfg := &domain.Config{}
	cfg.Logging.Level = "info"
	cfg.Admin.APIKey = adminKey
	cfg.Engine = domain.EngineConfig{
		KeywordPoints: 3, PhrasePoints: 5, NegativePenalty: -4,
		CandidateTopK: 5, CandidateMinScore: 0.05, SeverityWeightStep: 0.25,
		MaxQuestions: 6, HighConfidenceScore: 0.45, MinSpecialtyScoreGap: 2.0,
	}

	store := session.NewMemoryStore()
	events := session.NewMemoryEventStore()
	orchestrator := service.NewOrchestrator(rt, &cfg.Engine, store, events, logger)
	return NewServer(cfg, orchestrator, store, events, rt, logger), store
}

func postTurn(t *testing.T, s *Server, body any) (*httptest.ResponseRecorder, domain.Envelope) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/triage/turn", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var envelope domain.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

func TestTurnEndpoint_Result(t *testing.T) {
	s, _ := newTestServer(t, "")

	w, envelope := postTurn(t, s, map[string]any{
		"locale":       "tr",
		"user_message": "idrar yaparken yanıyor ve çok sık idrara çıkıyorum",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.EnvelopeResult, envelope.Type)
	assert.Equal(t, "urology_internal", envelope.Result.SpecialtyID)
	assert.NotEmpty(t, envelope.SessionID)
}

func TestTurnEndpoint_Emergency(t *testing.T) {
	s, _ := newTestServer(t, "")

	w, envelope := postTurn(t, s, map[string]any{
		"locale":       "tr",
		"user_message": "göğsümde baskı var",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.EnvelopeEmergency, envelope.Type)
	assert.Equal(t, "cardiac", envelope.Emergency.MatchedRule)
}

func TestTurnEndpoint_EmptyInput(t *testing.T) {
	s, _ := newTestServer(t, "")

	w, envelope := postTurn(t, s, map[string]any{"locale": "tr"})

	// A well-formed request with no usable input is an engine-level ERROR
	// envelope, not a transport failure.
	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, domain.EnvelopeError, envelope.Type)
	assert.Equal(t, domain.CodeEmptyInput, envelope.Error.Code)
}

func TestTurnEndpoint_MalformedBody(t *testing.T) {
	s, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/triage/turn", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTurnEndpoint_UnknownSession(t *testing.T) {
	s, _ := newTestServer(t, "")

	w, envelope := postTurn(t, s, map[string]any{
		"session_id":   "missing",
		"user_message": "başım ağrıyor",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, domain.EnvelopeError, envelope.Type)
	assert.Equal(t, domain.CodeSessionNotFound, envelope.Error.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "api-test-1", body["reference_version"])
}

func TestAdminEndpoints_RequireKey(t *testing.T) {
	s, _ := newTestServer(t, "top-secret")

	req := httptest.NewRequest(http.MethodGet, "/admin/reference/stats", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/reference/stats", nil)
	req.Header.Set("X-API-Key", "top-secret")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "api-test-1", stats["version"])
}

func TestAdminSessionEvents(t *testing.T) {
	s, _ := newTestServer(t, "top-secret")

	_, envelope := postTurn(t, s, map[string]any{
		"locale":       "tr",
		"user_message": "idrar yaparken yanıyor ve çok sık idrara çıkıyorum",
	})
	require.NotEmpty(t, envelope.SessionID)

	req := httptest.NewRequest(http.MethodGet, "/admin/sessions/"+envelope.SessionID+"/events", nil)
	req.Header.Set("X-API-Key", "top-secret")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		SessionID string          `json:"session_id"`
		Events    []*domain.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, envelope.SessionID, body.SessionID)
	assert.NotEmpty(t, body.Events)
}

func TestSameOrigin(t *testing.T) {
	newReq := func(host, origin string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/triage/stream", nil)
		req.Host = host
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		return req
	}

	assert.True(t, sameOrigin(newReq("triage.example.com", "")), "non-browser clients send no Origin")
	assert.True(t, sameOrigin(newReq("triage.example.com", "https://triage.example.com")))
	assert.True(t, sameOrigin(newReq("localhost:8080", "http://localhost:8080")))
	assert.False(t, sameOrigin(newReq("triage.example.com", "https://evil.example.com")))
	assert.False(t, sameOrigin(newReq("triage.example.com", "://not a url")))
}

func TestRateLimitDisabledByDefault(t *testing.T) {
	s, _ := newTestServer(t, "")

	for i := 0; i < 20; i++ {
		w, _ := postTurn(t, s, map[string]any{
			"locale":       "tr",
			"user_message": "göğsümde baskı var",
		})
		assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
	}
}
