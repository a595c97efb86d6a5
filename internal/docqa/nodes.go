// Package docqa implements the stages of the document question answering
// graph and wires them into a runnable graph.
package docqa

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/ai"
	"github.com/spigell/resume-agent/internal/notify"
	"github.com/spigell/resume-agent/internal/prompts"
	"github.com/spigell/resume-agent/internal/state"
	"github.com/spigell/resume-agent/internal/utils"
	"github.com/spigell/resume-agent/internal/verdict"
)

const (
	DefaultTopK          = 4
	DefaultCutoff        = 9.0
	DefaultMaxRetrievals = 2
	DefaultAlertSubject  = "Automated Agentic Update"

	logPreviewLength = 120
)

// Retriever returns up to k passages relevant to the query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// SourceAnalyzer lists the projects found on a public profile.
type SourceAnalyzer interface {
	Analyze(ctx context.Context, profileURL string) ([]state.Project, error)
}

// ThresholdPolicy decides whether a metric value warrants an alert.
type ThresholdPolicy struct {
	Cutoff float64
	// Inclusive alerts on values equal to the cutoff too.
	Inclusive bool
}

func (p ThresholdPolicy) Exceeded(v float64) bool {
	if p.Inclusive {
		return v >= p.Cutoff
	}
	return v > p.Cutoff
}

// Deps are the collaborators of the graph stages. Analyzer and Notifier are
// optional. A nil Policy means an exclusive DefaultCutoff.
type Deps struct {
	Retriever Retriever
	Generator ai.Generator
	Analyzer  SourceAnalyzer
	Notifier  notify.Notifier

	Policy        *ThresholdPolicy
	TopK          int
	MaxRetrievals int

	// AlertRecipient overrides the extracted email as the alert recipient.
	AlertRecipient string
	AlertSubject   string

	Logger *zap.Logger
}

// Nodes holds the stage implementations.
type Nodes struct {
	deps   Deps
	logger *zap.Logger
}

func NewNodes(deps Deps) *Nodes {
	if deps.TopK <= 0 {
		deps.TopK = DefaultTopK
	}
	if deps.MaxRetrievals <= 0 {
		deps.MaxRetrievals = DefaultMaxRetrievals
	}
	if strings.TrimSpace(deps.AlertSubject) == "" {
		deps.AlertSubject = DefaultAlertSubject
	}
	if deps.Policy == nil {
		deps.Policy = &ThresholdPolicy{Cutoff: DefaultCutoff}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Nodes{deps: deps, logger: deps.Logger}
}

func (n *Nodes) nodeLogger(name string) *zap.Logger {
	return n.logger.With(zap.String("node", name))
}

// Retrieve replaces the documents with the passages found for the question.
// Retrieval failures yield no documents.
func (n *Nodes) Retrieve(ctx context.Context, s *state.State) (*state.State, error) {
	log := n.nodeLogger(NodeRetrieve)
	s.Attempts++

	if s.Question == "" {
		log.Warn("empty question, nothing to retrieve")
		s.Documents = []string{}
		return s, nil
	}

	docs, err := n.deps.Retriever.Search(ctx, s.Question, n.deps.TopK)
	if err != nil {
		log.Warn("retrieval failed", zap.Int("attempt", s.Attempts), zap.Error(err))
		docs = []string{}
	}

	s.Documents = docs
	log.Info("documents retrieved", zap.Int("attempt", s.Attempts), zap.Int("count", len(docs)))
	return s, nil
}

// Grade keeps the passages the classifier marks as relevant. A classifier
// failure counts the passage as not relevant.
func (n *Nodes) Grade(ctx context.Context, s *state.State) (*state.State, error) {
	log := n.nodeLogger(NodeGrade)

	relevant := make([]string, 0, len(s.Documents))
	for i, doc := range s.Documents {
		reply, err := n.deps.Generator.GenerateContent(ctx, prompts.Relevance(s.Question, doc))
		if err != nil {
			log.Warn("relevance check failed", zap.Int("document", i), zap.Error(err))
			continue
		}

		ok := verdict.Relevant(reply)
		log.Debug("relevance checked",
			zap.Int("document", i),
			zap.Bool("relevant", ok),
			zap.String("reply", utils.TruncateForLog(reply, logPreviewLength)),
		)
		if ok {
			relevant = append(relevant, doc)
		}
	}

	if len(relevant) == 0 {
		log.Info("no relevant documents, retrying retrieval", zap.Int("graded", len(s.Documents)))
		s.Documents = nil
		s.Route = state.RouteRetrieve
		return s, nil
	}

	log.Info("relevant documents found", zap.Int("relevant", len(relevant)), zap.Int("graded", len(s.Documents)))
	s.Documents = relevant
	s.Route = state.RouteGenerate
	return s, nil
}

// ExtractContact fills the contact fields from the documents.
func (n *Nodes) ExtractContact(ctx context.Context, s *state.State) (*state.State, error) {
	log := n.nodeLogger(NodeExtractContact)

	reply, err := n.deps.Generator.GenerateContent(ctx, prompts.Contact(s.Context()))
	if err != nil {
		log.Warn("contact extraction failed", zap.Error(err))
		s.ContactsMissing()
		return s, nil
	}

	contacts, err := verdict.ParseContacts(reply)
	if err != nil {
		log.Warn("contact extraction reply is not usable",
			zap.Error(err),
			zap.String("reply", utils.TruncateForLog(reply, logPreviewLength)),
		)
		s.ContactsMissing()
		return s, nil
	}

	s.PhoneNumber = contacts.PhoneNumber
	s.EmailID = contacts.EmailID
	s.LinkedIn = contacts.LinkedIn
	s.GitHub = contacts.GitHub
	s.OtherLinks = contacts.OtherLinks

	log.Info("contacts extracted",
		zap.Bool("email", state.Known(s.EmailID)),
		zap.Bool("phone", state.Known(s.PhoneNumber)),
		zap.Bool("github", state.Known(s.GitHub)),
		zap.Bool("linkedin", state.Known(s.LinkedIn)),
		zap.Int("other_links", len(s.OtherLinks)),
	)
	return s, nil
}

// AnalyzeSource lists public projects of the candidate. The GitHub profile
// is preferred over LinkedIn.
func (n *Nodes) AnalyzeSource(ctx context.Context, s *state.State) (*state.State, error) {
	log := n.nodeLogger(NodeAnalyzeSource)
	s.SourceProjects = []state.Project{}

	profile := s.GitHub
	if !state.Known(profile) {
		profile = s.LinkedIn
	}
	if !state.Known(profile) {
		log.Info("no source profile found")
		return s, nil
	}

	if n.deps.Analyzer == nil {
		log.Debug("source analysis is disabled", zap.String("profile", profile))
		return s, nil
	}

	projects, err := n.deps.Analyzer.Analyze(ctx, profile)
	if err != nil {
		log.Warn("source analysis failed", zap.String("profile", profile), zap.Error(err))
		return s, nil
	}

	s.SourceProjects = projects
	log.Info("source profile analyzed", zap.String("profile", profile), zap.Int("projects", len(projects)))
	return s, nil
}

// ExtractMetric reads the undergraduate CGPA. Anything unusable yields 0.
func (n *Nodes) ExtractMetric(ctx context.Context, s *state.State) (*state.State, error) {
	log := n.nodeLogger(NodeExtractMetric)

	reply, err := n.deps.Generator.GenerateContent(ctx, prompts.Metric(s.Context()))
	if err != nil {
		log.Warn("metric extraction failed", zap.Error(err))
		s.MetricValue = 0
		return s, nil
	}

	s.MetricValue = verdict.Metric(reply)
	log.Info("metric extracted", zap.Float64("metric", s.MetricValue))
	return s, nil
}

// CheckThreshold routes to the notification stage when the metric passes
// the policy.
func (n *Nodes) CheckThreshold(_ context.Context, s *state.State) (*state.State, error) {
	exceeded := n.deps.Policy.Exceeded(s.MetricValue)

	n.nodeLogger(NodeCheckThreshold).Info("threshold checked",
		zap.Float64("metric", s.MetricValue),
		zap.Float64("cutoff", n.deps.Policy.Cutoff),
		zap.Bool("inclusive", n.deps.Policy.Inclusive),
		zap.Bool("exceeded", exceeded),
	)

	if exceeded {
		s.Route = state.RouteNotify
	} else {
		s.Route = state.RouteGenerate
	}
	return s, nil
}

// Notify alerts a human about the candidate. Failures never stop the run.
func (n *Nodes) Notify(ctx context.Context, s *state.State) (*state.State, error) {
	log := n.nodeLogger(NodeNotify)

	recipient := strings.TrimSpace(n.deps.AlertRecipient)
	if recipient == "" {
		recipient = strings.TrimSpace(s.EmailID)
	}

	if !state.Known(recipient) || !notify.ValidRecipient(recipient) {
		log.Info("no recipient to notify", zap.String("recipient", recipient))
		return s, nil
	}

	if n.deps.Notifier == nil {
		log.Warn("notifier is not configured", zap.String("recipient", recipient))
		return s, nil
	}

	if err := n.deps.Notifier.Notify(ctx, recipient, n.deps.AlertSubject, prompts.Alert(s)); err != nil {
		log.Warn("notification failed", zap.String("recipient", recipient), zap.Error(err))
		return s, nil
	}

	log.Info("notification sent", zap.String("recipient", recipient))
	return s, nil
}

// Generate writes the final answer.
func (n *Nodes) Generate(ctx context.Context, s *state.State) (*state.State, error) {
	log := n.nodeLogger(NodeGenerate)

	if len(s.Documents) == 0 {
		log.Info("no documents to answer from")
		s.Solution = state.NoInformationAnswer
		return s, nil
	}

	answer, err := n.deps.Generator.GenerateContent(ctx, prompts.Answer(s.Question, s.Context(), s.SourceProjects))
	if err != nil {
		log.Warn("answer generation failed", zap.Error(err))
		s.Solution = state.GenerationFailedAnswer
		return s, nil
	}

	s.Solution = strings.TrimSpace(answer)
	log.Info("answer generated", zap.Int("length", utf8.RuneCountInString(s.Solution)))
	return s, nil
}
