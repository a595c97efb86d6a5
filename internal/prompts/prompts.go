// Package prompts renders the model prompts used by the agent.
//
// Templates live next to this file as markdown and use {{NAME}} placeholders
// that are substituted verbatim.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/spigell/resume-agent/internal/state"
)

var (
	//go:embed templates/relevance.md
	relevanceTemplate string
	//go:embed templates/contact.md
	contactTemplate string
	//go:embed templates/metric.md
	metricTemplate string
	//go:embed templates/answer.md
	answerTemplate string
	//go:embed templates/route.md
	routeTemplate string
	//go:embed templates/rag_answer.md
	ragAnswerTemplate string
	//go:embed templates/grade.md
	gradeTemplate string
	//go:embed templates/correction.md
	correctionTemplate string
	//go:embed templates/alert.md
	alertTemplate string
	//go:embed templates/meeting.md
	meetingTemplate string
)

func render(template string, pairs ...string) string {
	return strings.NewReplacer(placeholders(pairs)...).Replace(template)
}

func placeholders(pairs []string) []string {
	out := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, "{{"+pairs[i]+"}}", pairs[i+1])
	}
	return out
}

func Relevance(question, document string) string {
	return render(relevanceTemplate, "QUESTION", question, "DOCUMENT", document)
}

func Contact(resume string) string {
	return render(contactTemplate, "RESUME", resume)
}

func Metric(resume string) string {
	return render(metricTemplate, "RESUME", resume)
}

// Answer builds the final document graph prompt. Projects found on the
// candidate's public profile are appended to the context when present.
func Answer(question, context string, projects []state.Project) string {
	return render(answerTemplate,
		"QUESTION", question,
		"CONTEXT", context,
		"PROJECTS", projectAppendix(projects),
	)
}

func Route(query string) string {
	return render(routeTemplate, "QUERY", query)
}

func RAGAnswer(query, context string) string {
	return render(ragAnswerTemplate, "QUERY", query, "CONTEXT", context)
}

func Grade(query, answer string) string {
	return render(gradeTemplate, "QUERY", query, "ANSWER", answer)
}

func Correction(query, feedback string) string {
	return render(correctionTemplate, "QUERY", query, "FEEDBACK", feedback)
}

// Alert renders the body of the threshold notification.
func Alert(s *state.State) string {
	return render(alertTemplate,
		"METRIC", fmt.Sprintf("%.2f", s.MetricValue),
		"PHONE", s.PhoneNumber,
		"EMAIL", s.EmailID,
		"LINKEDIN", s.LinkedIn,
		"GITHUB", s.GitHub,
		"QUESTION", s.Question,
	)
}

func Meeting(query string) string {
	return render(meetingTemplate, "QUERY", query)
}

// ProjectSummary is the text a single project contributes to prompts and to
// the project index.
func ProjectSummary(p state.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project Title: %s.", p.Name)
	if p.Language != "" {
		fmt.Fprintf(&b, " Language: %s.", p.Language)
	}
	if len(p.Topics) > 0 {
		fmt.Fprintf(&b, " Topics: %s.", strings.Join(p.Topics, ", "))
	}
	if p.Description != "" {
		fmt.Fprintf(&b, " Description: %s", strings.TrimSuffix(p.Description, "."))
		b.WriteString(".")
	}
	if p.URL != "" {
		fmt.Fprintf(&b, " URL: %s", p.URL)
	}
	return b.String()
}

func projectAppendix(projects []state.Project) string {
	if len(projects) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nPublic Projects:\n")
	for _, p := range projects {
		b.WriteString("- ")
		b.WriteString(ProjectSummary(p))
		b.WriteString("\n")
	}
	return b.String()
}
