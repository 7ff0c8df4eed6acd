// Package intent resolves common FAQ utterances to canned replies so the
// frequent questions stay deterministic and never incur LLM cost or latency.
package intent

import (
	"fmt"
	"strings"
)

// ConsultancyInfo holds the static facts the canned replies are templated
// from. The same facts feed the LLM system prompt.
type ConsultancyInfo struct {
	Name         string
	About        string
	Services     []string
	Destinations []string
	PhonesNepal  []string
	PhonesKorea  []string
	Email        string
	Address      string
}

// DefaultConsultancyInfo mirrors the published site content.
func DefaultConsultancyInfo() ConsultancyInfo {
	return ConsultancyInfo{
		Name:         "Joeun Education Consultancy",
		About:        "We help students achieve their dreams of studying abroad with a special focus on South Korea.",
		Services:     []string{"Study Abroad Consulting", "Visa Assistance", "Test Preparation"},
		Destinations: []string{"South Korea", "Australia", "United Kingdom"},
		PhonesNepal:  []string{"+977 9808085693", "+977-9862358543"},
		PhonesKorea:  []string{"+82 106 787 4320"},
		Email:        "joeuneducationconsultancy@gmail.com",
		Address:      "Kathmandu, Nepal",
	}
}

// Resolver matches utterances against an ordered keyword rule table.
// Evaluation order is fixed and the first textual match wins, so replies
// for recognized intents never vary between calls.
type Resolver struct {
	rules []rule
}

type rule struct {
	name     string
	keywords []string
	reply    string
}

// NewResolver precomputes every canned reply from the consultancy facts.
func NewResolver(info ConsultancyInfo) *Resolver {
	services := strings.Join(info.Services, ", ")
	destinations := strings.Join(info.Destinations, ", ")
	contactLines := []string{
		"You can reach " + info.Name + " at:",
		"Nepal: " + strings.Join(info.PhonesNepal, ", "),
		"Korea: " + strings.Join(info.PhonesKorea, ", "),
		"Email: " + info.Email,
		"Address: " + info.Address,
	}

	// Order matters: more specific visa topics come before the generic
	// Korea rule, and contact before about, matching the published FAQ
	// precedence.
	rules := []rule{
		{
			name:     "services",
			keywords: []string{"service", "offer", "offering", "what do you do", "help with"},
			reply: fmt.Sprintf("We offer %s. Our study destinations include %s. Would you like details about any of these services?",
				services, destinations),
		},
		{
			name:     "korea-d4",
			keywords: []string{"d4", "d-4", "language visa", "korean language", "language class"},
			reply: "The D4 visa is South Korea's language-training visa. It lets you study Korean " +
				"at a university language institute for up to 2 years, with intakes in March, June, " +
				"September and December. We handle admission, documentation and visa filing for D4 applicants.",
		},
		{
			name:     "korea-d2",
			keywords: []string{"d2", "d-2", "degree", "bachelor", "master", "study visa", "university admission"},
			reply: "The D2 visa is South Korea's degree-study visa for bachelor's, master's and doctoral " +
				"programs. You need an admission letter from a Korean university, proof of funds and academic " +
				"documents. We guide you through university selection, application and the visa interview.",
		},
		{
			name:     "korea",
			keywords: []string{"korea", "korean", "seoul"},
			reply: "South Korea is our specialty. We support both the D4 language-training route and the " +
				"D2 degree route, including university selection, scholarships and visa processing. " +
				"Ask about D4 or D2 visas for specifics.",
		},
		{
			name:     "contact",
			keywords: []string{"contact", "address", "email", "phone", "call", "reach you", "location"},
			reply:    strings.Join(contactLines, "\n"),
		},
		{
			name:     "about",
			keywords: []string{"about", "who are you", "what is joeun", "tell me about joeun"},
			reply:    info.Name + ": " + info.About + " Our services: " + services + ".",
		},
	}
	return &Resolver{rules: rules}
}

// Resolve returns the canned reply for the first matching rule. matched is
// false when no rule applies and the caller should fall through to the LLM.
func (r *Resolver) Resolve(message string) (reply string, matched bool) {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return "", false
	}
	for _, rule := range r.rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.reply, true
			}
		}
	}
	return "", false
}

// SystemPrompt renders the fixed system prompt for the LLM fallthrough.
func SystemPrompt(info ConsultancyInfo) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant for ")
	sb.WriteString(info.Name)
	sb.WriteString(", an international-education consultancy. ")
	sb.WriteString(info.About)
	sb.WriteString("\nServices: ")
	sb.WriteString(strings.Join(info.Services, ", "))
	sb.WriteString("\nStudy destinations: ")
	sb.WriteString(strings.Join(info.Destinations, ", "))
	sb.WriteString("\nContact (Nepal): ")
	sb.WriteString(strings.Join(info.PhonesNepal, ", "))
	sb.WriteString("\nContact (Korea): ")
	sb.WriteString(strings.Join(info.PhonesKorea, ", "))
	sb.WriteString("\nEmail: ")
	sb.WriteString(info.Email)
	sb.WriteString("\nAnswer questions about study abroad, admissions and guidance. Keep replies concise and factual.")
	return sb.String()
}
