// Package state holds the record threaded through every stage of the
// document question-answering graph and the closed set of routing labels.
package state

import "strings"

// NotMentioned marks a contact field the extractor could not find.
const NotMentioned = "Not mentioned"

// Fixed answers rendered into the answer slot instead of surfacing errors.
const (
	NoInformationAnswer    = "No relevant information was found in the resume for this question."
	GenerationFailedAnswer = "Could not generate answer."
	NoEmbeddingsAnswer     = "No embeddings found. Please re-upload the resume or fetch projects first."
	NoContextAnswer        = "I found the embeddings, but they didn't contain relevant information for your query."
	MeetingScheduledAnswer = "Meeting scheduled! Email notification sent."
	MeetingFailedAnswer    = "Meeting could not be scheduled: the email notification was not sent."
	EmptyQuestionAnswer    = "Please ask a question about the resume or the projects."
)

// Route is a routing decision produced by a conditional stage.
type Route string

const (
	RouteNone Route = ""

	// Document graph labels.
	RouteRetrieve Route = "retrieve"
	RouteGenerate Route = "generate"
	RouteNotify   Route = "notify"

	// Query router labels.
	RouteResume  Route = "resume"
	RouteProject Route = "project"
	RouteBoth    Route = "both"
	RouteMeeting Route = "meeting"
)

func (r Route) String() string { return string(r) }

// IncludesResume reports whether the knowledge source selection covers the resume index.
func (r Route) IncludesResume() bool { return r == RouteResume || r == RouteBoth }

// IncludesProject reports whether the knowledge source selection covers the project index.
func (r Route) IncludesProject() bool { return r == RouteProject || r == RouteBoth }

// Project is one entry of the candidate's public source profile.
type Project struct {
	Name        string   `json:"name" mapstructure:"name"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
	Language    string   `json:"language,omitempty" mapstructure:"language"`
	Topics      []string `json:"topics,omitempty" mapstructure:"topics"`
	URL         string   `json:"url,omitempty" mapstructure:"html_url"`
	Stars       int      `json:"stars,omitempty" mapstructure:"stargazers_count"`
	UpdatedAt   string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
	Fork        bool     `json:"fork,omitempty" mapstructure:"fork"`
}

// State is the shared record of one document graph run.
type State struct {
	Question  string
	Documents []string
	Solution  string

	PhoneNumber string
	EmailID     string
	LinkedIn    string
	GitHub      string
	OtherLinks  []string

	MetricValue    float64
	SourceProjects []Project

	// Route is consumed by the dispatch right after the node that wrote it.
	Route Route

	// Attempts counts retrieval attempts in this run.
	Attempts int
}

// New returns a fresh state for the question.
func New(question string) *State {
	return &State{Question: strings.TrimSpace(question)}
}

// Context joins the current documents into a single prompt context.
func (s *State) Context() string {
	return strings.Join(s.Documents, "\n")
}

// ContactsMissing fills every contact field with the sentinel.
func (s *State) ContactsMissing() {
	s.PhoneNumber = NotMentioned
	s.EmailID = NotMentioned
	s.LinkedIn = NotMentioned
	s.GitHub = NotMentioned
	s.OtherLinks = []string{}
}

// ClearRoute drops the routing label once it has been dispatched.
func (s *State) ClearRoute() {
	s.Route = RouteNone
}

// Known reports whether an extracted field carries a real value.
func Known(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, NotMentioned)
}
