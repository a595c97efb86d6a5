// Package profile keeps the structured resume record of a user.
package profile

import (
	"fmt"
	"strings"
)

// Text decodes from either a JSON string or a JSON number, since grades are
// written both ways.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*t = ""
	case strings.HasPrefix(raw, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*t = Text(v)
	default:
		*t = Text(raw)
	}
	return nil
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Period      string `json:"period,omitempty"`
	CGPA        Text   `json:"cgpa,omitempty"`
	Location    string `json:"location,omitempty"`
}

type Experience struct {
	Role    string   `json:"role"`
	Company string   `json:"company"`
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
	Items   []string `json:"items,omitempty"`
}

type Achievement struct {
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Items    []string `json:"items,omitempty"`
}

// Profile is the structured resume record.
type Profile struct {
	Name         string        `json:"name"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	LinkedIn     string        `json:"linkedin,omitempty"`
	GitHub       string        `json:"github,omitempty"`
	Education    []Education   `json:"education,omitempty"`
	Experience   []Experience  `json:"experience,omitempty"`
	Achievements []Achievement `json:"achievements,omitempty"`
	Skills       []string      `json:"skills,omitempty"`
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return "N/A"
	}
	return v
}

// Render converts the profile into descriptive text suitable for embedding
// and for prompt context.
func Render(p *Profile) string {
	if p == nil {
		return ""
	}

	var b strings.Builder

	name := p.Name
	if strings.TrimSpace(name) == "" {
		name = "the candidate"
	}
	fmt.Fprintf(&b, "This is the resume of %s.\n\n", name)

	b.WriteString("Contact Information:\n")
	fmt.Fprintf(&b, "Email: %s\n", orNA(p.Email))
	fmt.Fprintf(&b, "Phone: %s\n", orNA(p.Phone))
	fmt.Fprintf(&b, "LinkedIn: %s\n", orNA(p.LinkedIn))
	fmt.Fprintf(&b, "GitHub: %s\n", orNA(p.GitHub))

	if len(p.Education) > 0 {
		b.WriteString("\nEducation Background:\n")
		for _, e := range p.Education {
			fmt.Fprintf(&b, "- %s at %s", e.Degree, e.Institution)
			if e.Period != "" {
				fmt.Fprintf(&b, " (%s)", e.Period)
			}
			if e.CGPA != "" {
				fmt.Fprintf(&b, " with CGPA %s", e.CGPA)
			}
			if e.Location != "" {
				fmt.Fprintf(&b, " in %s", e.Location)
			}
			b.WriteString(".\n")
		}
	}

	if len(p.Experience) > 0 {
		b.WriteString("\nWork Experience:\n")
		for _, e := range p.Experience {
			fmt.Fprintf(&b, "- Served as %s at %s", e.Role, e.Company)
			if e.Start != "" || e.End != "" {
				fmt.Fprintf(&b, " from %s to %s", orNA(e.Start), orNA(e.End))
			}
			b.WriteString(".\n")
			for _, item := range e.Items {
				fmt.Fprintf(&b, "  * %s\n", item)
			}
		}
	}

	if len(p.Achievements) > 0 {
		b.WriteString("\nAchievements and Leadership:\n")
		for _, a := range p.Achievements {
			b.WriteString("- " + a.Title)
			if a.Category != "" {
				fmt.Fprintf(&b, " (%s)", a.Category)
			}
			if len(a.Items) > 0 {
				b.WriteString(": " + strings.Join(a.Items, " "))
			}
			b.WriteString("\n")
		}
	}

	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "\nSkills: %s\n", strings.Join(p.Skills, ", "))
	}

	return strings.TrimSpace(b.String())
}
