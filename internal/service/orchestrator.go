package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/reference"
	"github.com/pre-triage-server/internal/turkish"
)

// Answer value lexicons used to fold a structured answer into the known or
// denied symptom sets.
var (
	affirmativeValues = map[string]struct{}{
		"evet": {}, "var": {}, "oldu": {}, "oluyor": {}, "yes": {},
	}
	negativeValues = map[string]struct{}{
		"hayır": {}, "hayir": {}, "yok": {}, "olmadı": {}, "olmuyor": {}, "no": {},
	}
)

// TurnRequest is one user turn: free text, a structured answer, or both.
type TurnRequest struct {
	SessionID   string
	Locale      string
	UserMessage string
	Answer      *TurnAnswer
	Profile     *domain.Profile
}

// TurnAnswer is a structured reply to a previously asked question.
type TurnAnswer struct {
	Canonical string
	Value     string
}

// Orchestrator wires the pipeline stages, serializes turns per session and
// persists state plus the event log.
type Orchestrator struct {
	rt    *reference.Runtime
	store domain.SessionStore
	events domain.EventStore
	log   *logrus.Logger

	extractor  *Extractor
	guard      *SafetyGuard
	candidates *CandidateGenerator
	scorer     *SpecialtyScorer
	merger     *Merger
	risk       *RiskStratifier
	selector   *QuestionSelector
	stop       *StopController
	envelopes  *EnvelopeBuilder

	// Per-session lock table with TTL so abandoned sessions do not pin
	// mutexes forever. Second turn for a session waits for the first.
	lockMu sync.Mutex
	locks  *expirable.LRU[string, *sync.Mutex]

	// Event-log writes are best-effort; the breaker keeps a failing store
	// from slowing every turn down.
	eventBreaker *gobreaker.CircuitBreaker
}

func NewOrchestrator(
	rt *reference.Runtime,
	cfg *domain.EngineConfig,
	store domain.SessionStore,
	events domain.EventStore,
	log *logrus.Logger,
) *Orchestrator {
	lockTTL := cfg.SessionLockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	maxLocks := cfg.MaxSessionLocks
	if maxLocks <= 0 {
		maxLocks = 4096
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "event-log",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Orchestrator{
		rt:           rt,
		store:        store,
		events:       events,
		log:          log,
		extractor:    NewExtractor(rt),
		guard:        NewSafetyGuard(rt, log),
		candidates:   NewCandidateGenerator(rt, cfg),
		scorer:       NewSpecialtyScorer(rt, cfg),
		merger:       NewMerger(rt),
		risk:         NewRiskStratifier(rt),
		selector:     NewQuestionSelector(rt),
		stop:         NewStopController(rt.Stop),
		envelopes:    NewEnvelopeBuilder(rt),
		locks:        expirable.NewLRU[string, *sync.Mutex](maxLocks, nil, lockTTL),
		eventBreaker: breaker,
	}
}

// HandleTurn runs one complete turn and always returns an envelope; errors
// surface as ERROR envelopes, never as Go errors to the transport layer.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) domain.Envelope {
	if strings.TrimSpace(req.UserMessage) == "" && req.Answer == nil {
		return domain.NewErrorEnvelope(req.SessionID, 0,
			domain.NewTriageError(domain.CodeEmptyInput, "user_message or answer is required", true))
	}

	lock := o.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	envelope, err := o.runTurn(ctx, req)
	if err == nil {
		return envelope
	}
	if ctx.Err() != nil {
		return domain.NewErrorEnvelope(req.SessionID, 0,
			domain.NewTriageError(domain.CodeDeadlineExceeded, "turn deadline exceeded", true))
	}

	// One retry on optimistic-concurrency conflict, rebuilt from fresh state.
	te := domain.AsTriageError(err)
	if te.Code == domain.CodeSessionConflict {
		o.log.WithField("session_id", req.SessionID).Warn("Turn conflict, retrying once")
		envelope, err = o.runTurn(ctx, req)
		if err == nil {
			return envelope
		}
		te = domain.AsTriageError(err)
	}

	o.log.WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"code":       te.Code,
		"error":      te.Error(),
	}).Error("Turn failed")
	return domain.NewErrorEnvelope(req.SessionID, 0, te)
}

func (o *Orchestrator) runTurn(ctx context.Context, req TurnRequest) (domain.Envelope, error) {
	session, created, err := o.loadOrCreate(ctx, req)
	if err != nil {
		return domain.Envelope{}, err
	}
	if session.IsComplete {
		return domain.Envelope{}, domain.ErrSessionComplete
	}

	expectedTurn := session.TurnIndex
	session.TurnIndex++

	newText := RedactPII(req.UserMessage)
	if newText != "" {
		if session.RawText == "" {
			session.RawText = newText
		} else {
			session.RawText += " " + newText
		}
		o.recordEvent(ctx, session, domain.EventUserMessage, map[string]any{"length": len(newText)})
	}

	if days := ExtractDurationDays(newText); days != nil {
		session.DurationDays = days
	}
	if req.Profile != nil {
		session.Profile = req.Profile
	}

	newAnswers := o.foldAnswer(ctx, session, req.Answer)

	// Extraction runs over the full accumulated text so segmentation across
	// turns cannot change the outcome.
	extracted := o.extractor.Extract(session.RawText, session.Answers)
	for _, canonical := range extracted {
		if !session.Denied.Has(canonical) {
			session.Known.Add(canonical)
			session.Asked.Add(canonical)
		}
	}
	o.recordEvent(ctx, session, domain.EventCanonicalsExtracted, map[string]any{"canonicals": extracted})

	if safety := o.guard.Check(session.RawText, session.Profile); safety.Emergency {
		session.IsComplete = true
		session.EnvelopeType = string(domain.EnvelopeEmergency)
		session.StopReason = "EMERGENCY_DETECTED"
		envelope := o.envelopes.Emergency(session, safety)
		o.recordEvent(ctx, session, domain.EventEmergencyTriggered, map[string]any{"rule": safety.RuleID})
		if err := o.persist(ctx, session, created, expectedTurn); err != nil {
			return domain.Envelope{}, err
		}
		o.recordEvent(ctx, session, domain.EventEnvelopeEmergency, nil)
		return envelope, nil
	}

	// Score only the new evidence of this turn; prior credit is carried in
	// the session's cumulative specialty scores.
	session.SpecialtyScores = o.scorer.Score(newText, newAnswers, session.SpecialtyScores)
	o.recordEvent(ctx, session, domain.EventSpecialtyScored, nil)

	session.DiseaseCandidates = o.candidates.Generate(session.Known.Sorted())
	o.recordEvent(ctx, session, domain.EventCandidatesGenerated, map[string]any{"count": len(session.DiseaseCandidates)})

	session.FinalScores = o.merger.Merge(session.SpecialtyScores, session.DiseaseCandidates)
	ranked := o.merger.Rank(session.FinalScores)
	session.Confidence = ComputeConfidence(session.DiseaseCandidates)

	topDisease := 0.0
	if len(session.DiseaseCandidates) > 0 {
		topDisease = session.DiseaseCandidates[0].Score
	}

	decision := o.stop.Evaluate(session.TurnIndex, topDisease, o.merger.SpecialtyGap(ranked), false)
	var question *SelectedQuestion
	if !decision.Stop {
		question = o.selector.Select(session.DiseaseCandidates, session.Known, session.Denied, session.Asked, req.Locale)
		if question == nil {
			decision = o.stop.Evaluate(session.TurnIndex, topDisease, o.merger.SpecialtyGap(ranked), true)
		}
	}

	if decision.Stop {
		risk := o.risk.Assess(session.Known.Sorted(), session.Confidence, false, session.DurationDays, session.Profile)
		session.RiskLevel = risk.Level
		session.StopReason = decision.Reason
		session.EnvelopeType = string(domain.EnvelopeResult)
		session.IsComplete = true
		envelope := o.envelopes.Result(session, ranked, session.DiseaseCandidates, risk, decision)
		if err := o.persist(ctx, session, created, expectedTurn); err != nil {
			return domain.Envelope{}, err
		}
		o.recordEvent(ctx, session, domain.EventEnvelopeResult, map[string]any{"stop_reason": decision.Reason})
		return envelope, nil
	}

	session.Asked.Add(question.Canonical)
	session.EnvelopeType = string(domain.EnvelopeQuestion)
	envelope := o.envelopes.Question(session, question)
	if err := o.persist(ctx, session, created, expectedTurn); err != nil {
		return domain.Envelope{}, err
	}
	o.recordEvent(ctx, session, domain.EventQuestionEmitted, map[string]any{"canonical": question.Canonical})
	o.recordEvent(ctx, session, domain.EventEnvelopeQuestion, nil)
	return envelope, nil
}

func (o *Orchestrator) loadOrCreate(ctx context.Context, req TurnRequest) (*domain.Session, bool, error) {
	if req.SessionID != "" {
		session, err := o.store.Get(ctx, req.SessionID)
		if err != nil {
			return nil, false, err
		}
		return session, false, nil
	}
	session := domain.NewSession(uuid.NewString(), req.Locale)
	o.recordEvent(ctx, session, domain.EventSessionCreated, map[string]any{"locale": req.Locale})
	return session, true, nil
}

// foldAnswer records the structured answer and moves its canonical into
// known or denied per the affirmative/negative lexicon. Returns the map of
// answers that arrived this turn for the scorer's answer boosts.
func (o *Orchestrator) foldAnswer(ctx context.Context, session *domain.Session, answer *TurnAnswer) map[string]string {
	if answer == nil {
		return nil
	}
	canonical := turkish.Normalize(answer.Canonical)
	if canonical == "" {
		return nil
	}
	value := strings.ToLower(strings.TrimSpace(answer.Value))
	session.Answers[canonical] = value
	session.Asked.Add(canonical)

	if _, yes := affirmativeValues[value]; yes {
		session.Denied.Remove(canonical)
		session.Known.Add(canonical)
	} else if _, no := negativeValues[value]; no {
		session.Known.Remove(canonical)
		session.Denied.Add(canonical)
	}

	o.recordEvent(ctx, session, domain.EventAnswerReceived, map[string]any{
		"canonical": canonical,
		"value":     value,
	})

	mapped := "yes"
	if _, no := negativeValues[value]; no {
		mapped = "no"
	} else if _, yes := affirmativeValues[value]; !yes {
		mapped = value
	}
	return map[string]string{canonical: mapped}
}

func (o *Orchestrator) persist(ctx context.Context, session *domain.Session, created bool, expectedTurn int) error {
	session.UpdatedAt = time.Now().UTC()
	if created {
		return o.store.Create(ctx, session)
	}
	return o.store.Update(ctx, session, expectedTurn)
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	if sessionID == "" {
		// A fresh session cannot race with itself.
		return &sync.Mutex{}
	}
	o.lockMu.Lock()
	defer o.lockMu.Unlock()
	if lock, ok := o.locks.Get(sessionID); ok {
		return lock
	}
	lock := &sync.Mutex{}
	o.locks.Add(sessionID, lock)
	return lock
}

// recordEvent appends to the event log through the circuit breaker. Event
// failures never fail a turn.
func (o *Orchestrator) recordEvent(ctx context.Context, session *domain.Session, eventType string, payload map[string]any) {
	if o.events == nil {
		return
	}
	event := &domain.Event{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		TurnIndex: session.TurnIndex,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	_, err := o.eventBreaker.Execute(func() (any, error) {
		return nil, o.events.Append(ctx, event)
	})
	if err != nil {
		o.log.WithFields(logrus.Fields{
			"session_id": session.ID,
			"event_type": eventType,
			"error":      err,
		}).Warn("Event log append failed")
	}
}
