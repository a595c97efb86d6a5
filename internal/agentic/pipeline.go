// Package agentic answers free-form queries by routing them to a knowledge
// source, answering from retrieved context and self-grading the answer.
package agentic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/ai"
	"github.com/spigell/resume-agent/internal/notify"
	"github.com/spigell/resume-agent/internal/profile"
	"github.com/spigell/resume-agent/internal/prompts"
	"github.com/spigell/resume-agent/internal/retrieval"
	"github.com/spigell/resume-agent/internal/state"
	"github.com/spigell/resume-agent/internal/utils"
	"github.com/spigell/resume-agent/internal/verdict"
)

const (
	DefaultTopK           = 4
	DefaultMeetingSubject = "Meeting Scheduled Notification"

	rawProfileHeader = "[Raw Resume Data]"
	logPreviewLength = 250
)

// Searcher returns up to k passages for a query. A missing index is
// reported with retrieval.ErrIndexNotFound.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Result is the outcome of one pipeline call.
type Result struct {
	Source   state.Route
	Answer   string
	Passed   bool
	Feedback string
	Revised  bool
}

// Config wires the pipeline. Profiles, Notifier and the meeting recipient
// are optional.
type Config struct {
	Generator ai.Generator

	// Sources maps an index name (retrieval.ResumeIndex, retrieval.ProjectIndex)
	// to its searcher.
	Sources map[string]Searcher
	TopK    int

	Profiles   profile.Store
	ProfileKey string
	// MergeProfileContext appends the raw profile to retrieved context
	// instead of replacing it.
	MergeProfileContext bool

	Notifier         notify.Notifier
	MeetingRecipient string
	MeetingSubject   string

	Logger *zap.Logger
}

type Pipeline struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if strings.TrimSpace(cfg.MeetingSubject) == "" {
		cfg.MeetingSubject = DefaultMeetingSubject
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pipeline{cfg: cfg, logger: cfg.Logger}, nil
}

// Run routes the query, answers it and grades the answer. A failed grade
// triggers exactly one correction, which is returned without re-grading.
// A blank query is answered with a fixed message and reaches no model.
func (p *Pipeline) Run(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		p.logger.Info("empty query")
		return &Result{Source: state.RouteNone, Answer: state.EmptyQuestionAnswer}, nil
	}

	source := p.Route(ctx, query)
	result := &Result{Source: source}

	if source == state.RouteMeeting {
		result.Answer = p.ScheduleMeeting(ctx, query)
		result.Passed = result.Answer == state.MeetingScheduledAnswer
		return result, nil
	}

	answer, grounded := p.retrieveAndAnswer(ctx, query, source)
	result.Answer = answer

	if !grounded {
		p.logger.Info("answer is not grounded in any context, skipping grading", zap.String("answer", answer))
		return result, nil
	}

	result.Passed, result.Feedback = p.GradeAnswer(ctx, query, answer)
	p.logger.Info("answer graded", zap.Bool("passed", result.Passed), zap.String("feedback", result.Feedback))

	if result.Passed {
		return result, nil
	}

	revised, err := p.cfg.Generator.GenerateContent(ctx, prompts.Correction(query, result.Feedback))
	if err != nil {
		p.logger.Warn("correction failed, keeping the first answer", zap.Error(err))
		return result, nil
	}

	result.Answer = strings.TrimSpace(revised)
	result.Revised = true
	p.logger.Info("revised answer generated", zap.String("preview", utils.TruncateForLog(result.Answer, logPreviewLength)))

	return result, nil
}

// Route picks the knowledge source for the query. Classifier failures fall
// back to the resume.
func (p *Pipeline) Route(ctx context.Context, query string) state.Route {
	reply, err := p.cfg.Generator.GenerateContent(ctx, prompts.Route(query))
	if err != nil {
		p.logger.Warn("routing failed, using resume", zap.Error(err))
		return state.RouteResume
	}

	route := verdict.QueryRoute(reply)
	p.logger.Info("query routed", zap.String("source", route.String()), zap.String("reply", utils.TruncateForLog(reply, logPreviewLength)))
	return route
}

// RetrieveAndAnswer answers the query from the indexes selected by source.
// Fixed answers are returned when no index or no context is available.
func (p *Pipeline) RetrieveAndAnswer(ctx context.Context, query string, source state.Route) string {
	answer, _ := p.retrieveAndAnswer(ctx, query, source)
	return answer
}

func (p *Pipeline) retrieveAndAnswer(ctx context.Context, query string, source state.Route) (string, bool) {
	var names []string
	if source.IncludesResume() {
		names = append(names, retrieval.ResumeIndex)
	}
	if source.IncludesProject() {
		names = append(names, retrieval.ProjectIndex)
	}

	available := 0
	var passages []string
	for _, name := range names {
		searcher, ok := p.cfg.Sources[name]
		if !ok || searcher == nil {
			continue
		}

		docs, err := searcher.Search(ctx, query, p.cfg.TopK)
		switch {
		case errors.Is(err, retrieval.ErrIndexNotFound):
			p.logger.Info("index is not built", zap.String("index", name))
			continue
		case err != nil:
			p.logger.Warn("search failed", zap.String("index", name), zap.Error(err))
			available++
			continue
		}

		available++
		passages = append(passages, docs...)
		p.logger.Debug("passages retrieved", zap.String("index", name), zap.Int("count", len(docs)))
	}

	if available == 0 {
		return state.NoEmbeddingsAnswer, false
	}
	if len(passages) == 0 {
		return state.NoContextAnswer, false
	}

	docs := strings.Join(passages, "\n\n")
	if source.IncludesResume() {
		docs = p.withProfile(docs)
	}

	answer, err := p.cfg.Generator.GenerateContent(ctx, prompts.RAGAnswer(query, docs))
	if err != nil {
		p.logger.Warn("answer generation failed", zap.Error(err))
		return state.GenerationFailedAnswer, false
	}

	return strings.TrimSpace(answer), true
}

// withProfile adds the raw profile document to the context. By default it
// replaces the retrieved passages.
func (p *Pipeline) withProfile(retrieved string) string {
	if p.cfg.Profiles == nil {
		return retrieved
	}

	_, raw, err := p.cfg.Profiles.Load(p.cfg.ProfileKey)
	if err != nil {
		p.logger.Warn("profile unavailable, using retrieved context", zap.Error(err))
		return retrieved
	}

	block := fmt.Sprintf("%s\n%s", rawProfileHeader, strings.TrimSpace(string(raw)))
	if p.cfg.MergeProfileContext {
		return retrieved + "\n\n" + block
	}
	return block
}

// GradeAnswer asks the evaluator whether the answer satisfies the query.
func (p *Pipeline) GradeAnswer(ctx context.Context, query, answer string) (bool, string) {
	reply, err := p.cfg.Generator.GenerateContent(ctx, prompts.Grade(query, answer))
	if err != nil {
		return false, fmt.Sprintf("grader unavailable: %v", err)
	}
	return verdict.Grade(reply)
}

// ScheduleMeeting sends exactly one meeting notification.
func (p *Pipeline) ScheduleMeeting(ctx context.Context, query string) string {
	recipient := p.meetingRecipient()
	if recipient == "" {
		p.logger.Warn("no meeting recipient configured")
		return state.MeetingFailedAnswer
	}

	if p.cfg.Notifier == nil {
		p.logger.Warn("notifier is not configured", zap.String("recipient", recipient))
		return state.MeetingFailedAnswer
	}

	if err := p.cfg.Notifier.Notify(ctx, recipient, p.cfg.MeetingSubject, prompts.Meeting(query)); err != nil {
		p.logger.Warn("meeting notification failed", zap.String("recipient", recipient), zap.Error(err))
		return state.MeetingFailedAnswer
	}

	p.logger.Info("meeting scheduled", zap.String("recipient", recipient))
	return state.MeetingScheduledAnswer
}

// meetingRecipient is the configured address, else the profile email.
func (p *Pipeline) meetingRecipient() string {
	if r := strings.TrimSpace(p.cfg.MeetingRecipient); r != "" {
		return r
	}

	if p.cfg.Profiles == nil {
		return ""
	}

	prof, _, err := p.cfg.Profiles.Load(p.cfg.ProfileKey)
	if err != nil || !notify.ValidRecipient(prof.Email) {
		return ""
	}
	return strings.TrimSpace(prof.Email)
}
