package agentic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-agent/internal/profile"
	"github.com/spigell/resume-agent/internal/retrieval"
	"github.com/spigell/resume-agent/internal/state"
)

type kind string

const (
	kindRoute      kind = "route"
	kindAnswer     kind = "answer"
	kindGrade      kind = "grade"
	kindCorrection kind = "correction"
)

func classify(prompt string) kind {
	switch {
	case strings.HasPrefix(prompt, "You are a routing assistant"):
		return kindRoute
	case strings.HasPrefix(prompt, "You are an evaluator"):
		return kindGrade
	case strings.HasPrefix(prompt, "Your last answer did not meet expectations"):
		return kindCorrection
	default:
		return kindAnswer
	}
}

type fakeGenerator struct {
	mu      sync.Mutex
	replies map[kind][]string
	errs    map[kind]error
	calls   map[kind][]string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		replies: make(map[kind][]string),
		errs:    make(map[kind]error),
		calls:   make(map[kind][]string),
	}
}

func (g *fakeGenerator) on(k kind, replies ...string) *fakeGenerator {
	g.replies[k] = append(g.replies[k], replies...)
	return g
}

func (g *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := classify(prompt)
	g.calls[k] = append(g.calls[k], prompt)

	if err := g.errs[k]; err != nil {
		return "", err
	}

	queue := g.replies[k]
	if len(queue) == 0 {
		return "", fmt.Errorf("unexpected %s prompt", k)
	}
	if len(queue) > 1 {
		g.replies[k] = queue[1:]
	}
	return queue[0], nil
}

type fakeSearcher struct {
	docs  []string
	err   error
	calls int
}

func (s *fakeSearcher) Search(context.Context, string, int) ([]string, error) {
	s.calls++
	return s.docs, s.err
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, recipient, subject, body string) error {
	n.sent = append(n.sent, recipient+"|"+subject+"|"+body)
	return n.err
}

type memoryProfiles struct {
	raw string
}

func (m *memoryProfiles) Load(string) (*profile.Profile, []byte, error) {
	if m.raw == "" {
		return nil, nil, profile.ErrNotFound
	}
	p, err := profile.Decode([]byte(m.raw))
	return p, []byte(m.raw), err
}

func (m *memoryProfiles) Save(string, *profile.Profile) error { return nil }

func newPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestNewRequiresGenerator(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestRunAnswersEmptyQueryWithMessage(t *testing.T) {
	gen := newFakeGenerator()
	p := newPipeline(t, Config{Generator: gen})

	res, err := p.Run(context.Background(), "   ")
	require.NoError(t, err)

	assert.Equal(t, state.EmptyQuestionAnswer, res.Answer)
	assert.Equal(t, state.RouteNone, res.Source)
	assert.False(t, res.Passed)
	assert.Empty(t, gen.calls)
}

func TestRunPassesOnFirstGrade(t *testing.T) {
	gen := newFakeGenerator().
		on(kindRoute, "project").
		on(kindAnswer, "  Built a Kubernetes operator.  ").
		on(kindGrade, `{"grade": "pass", "feedback": "complete"}`)

	projects := &fakeSearcher{docs: []string{"Project Title: op"}}
	p := newPipeline(t, Config{
		Generator: gen,
		Sources:   map[string]Searcher{retrieval.ProjectIndex: projects},
	})

	res, err := p.Run(context.Background(), "What did they build?")
	require.NoError(t, err)

	assert.Equal(t, state.RouteProject, res.Source)
	assert.Equal(t, "Built a Kubernetes operator.", res.Answer)
	assert.True(t, res.Passed)
	assert.False(t, res.Revised)
	assert.Empty(t, gen.calls[kindCorrection])
	assert.Equal(t, 1, projects.calls)
}

func TestRunRevisesExactlyOnce(t *testing.T) {
	gen := newFakeGenerator().
		on(kindRoute, "resume").
		on(kindAnswer, "first").
		on(kindGrade, `{"grade": "fail", "feedback": "missing dates"}`).
		on(kindCorrection, "second")

	p := newPipeline(t, Config{
		Generator: gen,
		Sources:   map[string]Searcher{retrieval.ResumeIndex: &fakeSearcher{docs: []string{"passage"}}},
	})

	res, err := p.Run(context.Background(), "When did they graduate?")
	require.NoError(t, err)

	assert.Equal(t, "second", res.Answer)
	assert.True(t, res.Revised)
	assert.False(t, res.Passed)
	assert.Equal(t, "missing dates", res.Feedback)
	assert.Len(t, gen.calls[kindGrade], 1, "revised answer must not be re-graded")
	require.Len(t, gen.calls[kindCorrection], 1)
	assert.Contains(t, gen.calls[kindCorrection][0], "missing dates")
}

func TestRunKeepsFirstAnswerWhenCorrectionFails(t *testing.T) {
	gen := newFakeGenerator().
		on(kindRoute, "resume").
		on(kindAnswer, "first").
		on(kindGrade, "no json here")
	gen.errs[kindCorrection] = errors.New("quota")

	p := newPipeline(t, Config{
		Generator: gen,
		Sources:   map[string]Searcher{retrieval.ResumeIndex: &fakeSearcher{docs: []string{"passage"}}},
	})

	res, err := p.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, "first", res.Answer)
	assert.False(t, res.Revised)
	assert.Len(t, gen.calls[kindCorrection], 1)
}

func TestRunMeetingNotifiesOnceAndSkipsRetrieval(t *testing.T) {
	gen := newFakeGenerator().on(kindRoute, "meeting")
	resume := &fakeSearcher{docs: []string{"passage"}}
	notifier := &fakeNotifier{}

	p := newPipeline(t, Config{
		Generator:        gen,
		Sources:          map[string]Searcher{retrieval.ResumeIndex: resume},
		Notifier:         notifier,
		MeetingRecipient: "owner@example.com",
	})

	res, err := p.Run(context.Background(), "Schedule a call on Friday")
	require.NoError(t, err)

	assert.Equal(t, state.RouteMeeting, res.Source)
	assert.Equal(t, state.MeetingScheduledAnswer, res.Answer)
	require.Len(t, notifier.sent, 1)
	assert.True(t, strings.HasPrefix(notifier.sent[0], "owner@example.com|"+DefaultMeetingSubject+"|"))
	assert.Contains(t, notifier.sent[0], "Schedule a call on Friday")
	assert.Zero(t, resume.calls)
	assert.Empty(t, gen.calls[kindGrade])
}

func TestRunMeetingFailure(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		notifier *fakeNotifier
	}{
		{
			name:     "notifier error",
			notifier: &fakeNotifier{err: errors.New("smtp down")},
			cfg:      Config{MeetingRecipient: "owner@example.com"},
		},
		{
			name:     "no recipient",
			notifier: &fakeNotifier{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Generator = newFakeGenerator().on(kindRoute, "meeting")
			cfg.Notifier = tt.notifier

			res, err := newPipeline(t, cfg).Run(context.Background(), "set up a meeting")
			require.NoError(t, err)
			assert.Equal(t, state.MeetingFailedAnswer, res.Answer)
			assert.False(t, res.Passed)
		})
	}
}

func TestMeetingRecipientFallsBackToProfileEmail(t *testing.T) {
	notifier := &fakeNotifier{}
	p := newPipeline(t, Config{
		Generator: newFakeGenerator(),
		Profiles:  &memoryProfiles{raw: `{"name": "Jane", "email": "jane@example.com"}`},
		Notifier:  notifier,
	})

	assert.Equal(t, state.MeetingScheduledAnswer, p.ScheduleMeeting(context.Background(), "call"))
	require.Len(t, notifier.sent, 1)
	assert.True(t, strings.HasPrefix(notifier.sent[0], "jane@example.com|"))
}

func TestRetrieveAndAnswerWithoutIndexes(t *testing.T) {
	gen := newFakeGenerator()
	missing := &fakeSearcher{err: fmt.Errorf("loading: %w", retrieval.ErrIndexNotFound)}

	p := newPipeline(t, Config{
		Generator: gen,
		Sources:   map[string]Searcher{retrieval.ResumeIndex: missing},
	})

	assert.Equal(t, state.NoEmbeddingsAnswer, p.RetrieveAndAnswer(context.Background(), "q", state.RouteBoth))
	assert.Empty(t, gen.calls[kindAnswer])
}

func TestRunSkipsGradingForFixedAnswers(t *testing.T) {
	gen := newFakeGenerator().on(kindRoute, "resume")
	p := newPipeline(t, Config{
		Generator: gen,
		Sources:   map[string]Searcher{retrieval.ResumeIndex: &fakeSearcher{}},
	})

	res, err := p.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, state.NoContextAnswer, res.Answer)
	assert.Empty(t, gen.calls[kindGrade])
}

func TestRetrieveAndAnswerGenerationFailure(t *testing.T) {
	gen := newFakeGenerator()
	gen.errs[kindAnswer] = errors.New("boom")

	p := newPipeline(t, Config{
		Generator: gen,
		Sources:   map[string]Searcher{retrieval.ProjectIndex: &fakeSearcher{docs: []string{"doc"}}},
	})

	assert.Equal(t, state.GenerationFailedAnswer, p.RetrieveAndAnswer(context.Background(), "q", state.RouteProject))
}

func TestRetrieveAndAnswerProfileContext(t *testing.T) {
	raw := `{"name": "Jane"}`

	tests := []struct {
		name     string
		merge    bool
		source   state.Route
		contains []string
		excludes []string
	}{
		{
			name:     "both replaces retrieved context",
			source:   state.RouteBoth,
			contains: []string{"[Raw Resume Data]\n" + raw},
			excludes: []string{"resume passage", "project passage"},
		},
		{
			name:     "merge keeps retrieved context",
			merge:    true,
			source:   state.RouteBoth,
			contains: []string{"resume passage\n\nproject passage", "[Raw Resume Data]\n" + raw},
		},
		{
			name:     "project only ignores profile",
			source:   state.RouteProject,
			contains: []string{"project passage"},
			excludes: []string{"[Raw Resume Data]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newFakeGenerator().on(kindAnswer, "ok")
			p := newPipeline(t, Config{
				Generator: gen,
				Sources: map[string]Searcher{
					retrieval.ResumeIndex:  &fakeSearcher{docs: []string{"resume passage"}},
					retrieval.ProjectIndex: &fakeSearcher{docs: []string{"project passage"}},
				},
				Profiles:            &memoryProfiles{raw: raw},
				MergeProfileContext: tt.merge,
			})

			assert.Equal(t, "ok", p.RetrieveAndAnswer(context.Background(), "q", tt.source))
			require.Len(t, gen.calls[kindAnswer], 1)

			prompt := gen.calls[kindAnswer][0]
			for _, s := range tt.contains {
				assert.Contains(t, prompt, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, prompt, s)
			}
		})
	}
}

func TestRouteFallsBackToResume(t *testing.T) {
	gen := newFakeGenerator()
	gen.errs[kindRoute] = errors.New("unavailable")

	p := newPipeline(t, Config{Generator: gen})
	assert.Equal(t, state.RouteResume, p.Route(context.Background(), "q"))
}

func TestGradeAnswerReportsGraderError(t *testing.T) {
	gen := newFakeGenerator()
	gen.errs[kindGrade] = errors.New("timeout")

	passed, feedback := newPipeline(t, Config{Generator: gen}).GradeAnswer(context.Background(), "q", "a")
	assert.False(t, passed)
	assert.Equal(t, "grader unavailable: timeout", feedback)
}
