package verdict

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/spigell/resume-agent/internal/state"
)

const (
	affirmativeToken = "yes"

	// Feedback reported when the grader reply cannot be used.
	FeedbackUnparsable = "Could not parse grader response."
	FeedbackInvalid    = "Invalid grader JSON"
)

// Relevant reports whether a relevance classifier reply contains the
// affirmative token as a standalone word, ignoring case.
func Relevant(reply string) bool {
	words := strings.FieldsFunc(strings.ToLower(reply), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if w == affirmativeToken {
			return true
		}
	}
	return false
}

// QueryRoute maps a router reply onto a knowledge source.
//
// Precedence: a reply naming both project and resume is "both", then
// "project", then "meeting"; anything else is "resume". A reply that is just
// the word "both" also selects both.
func QueryRoute(reply string) state.Route {
	answer := strings.ToLower(strings.TrimSpace(reply))

	hasProject := strings.Contains(answer, "project")
	hasResume := strings.Contains(answer, "resume")

	switch {
	case hasProject && hasResume, strings.Trim(answer, " \t\n.!\"'`") == "both":
		return state.RouteBoth
	case hasProject:
		return state.RouteProject
	case strings.Contains(answer, "meeting"):
		return state.RouteMeeting
	default:
		return state.RouteResume
	}
}

// Metric parses a numeric extraction reply. Only a reply that is a number
// as a whole counts; surrounding quotes and code fences are ignored. Prose,
// empty or negative replies yield 0.
func Metric(reply string) float64 {
	cleaned := strings.TrimSpace(reply)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.Trim(cleaned, "`")
		cleaned = strings.TrimPrefix(strings.TrimSpace(cleaned), "text")
	}
	cleaned = strings.TrimSpace(strings.Trim(strings.TrimSpace(cleaned), `"'`))
	if cleaned == "" {
		return 0
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return finiteOrZero(f)
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Contacts are the structured facts pulled from resume text.
type Contacts struct {
	PhoneNumber string
	EmailID     string
	LinkedIn    string
	GitHub      string
	OtherLinks  []string
}

// ParseContacts decodes an extraction reply. Fields missing from an
// otherwise valid object are set to the sentinel. An error means the reply
// had no usable object.
func ParseContacts(reply string) (*Contacts, error) {
	var data map[string]any
	if err := DecodeObject(reply, &data); err != nil {
		return nil, err
	}

	return &Contacts{
		PhoneNumber: orSentinel(coerceString(data["phone_number"])),
		EmailID:     orSentinel(coerceString(data["email_id"])),
		LinkedIn:    orSentinel(coerceString(data["linkedin"])),
		GitHub:      orSentinel(coerceString(data["github"])),
		OtherLinks:  coerceStrings(data["other_links"]),
	}, nil
}

func orSentinel(v string) string {
	if !state.Known(v) {
		return state.NotMentioned
	}
	return v
}

// Grade decodes an answer grader reply. It fails closed: anything but an
// explicit pass is a failure with a diagnostic feedback string.
func Grade(reply string) (bool, string) {
	var data map[string]any
	if err := DecodeObject(reply, &data); err != nil {
		if errors.Is(err, ErrNoObject) {
			return false, FeedbackUnparsable
		}
		return false, FeedbackInvalid
	}

	feedback := coerceString(data["feedback"])

	if grade, ok := data["grade"]; ok {
		return strings.EqualFold(coerceString(grade), "pass"), feedback
	}

	if pass, ok := data["pass"]; ok {
		return coerceBool(pass), feedback
	}

	if feedback == "" {
		feedback = FeedbackInvalid
	}
	return false, feedback
}
