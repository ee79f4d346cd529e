package chatbot

import (
	"context"
	"regexp"
	"strings"
)

type cannedAnswer struct {
	keywords []string
	reply    string
	match    []*regexp.Regexp
}

// FallbackResponder answers common clinic questions by keyword when the
// upstream chatbot is unavailable. Replies are HTML, like upstream ones.
type FallbackResponder struct{}

var cannedAnswers = []cannedAnswer{
	{
		keywords: []string{"emergency", "chest pain", "can't breathe", "cannot breathe", "bleeding", "urgence"},
		reply:    "<p><strong>If this is an emergency, call your local emergency number now.</strong> This chat cannot help with urgent care.</p>",
	},
	{
		keywords: []string{"appointment", "book", "schedule", "reschedule", "cancel", "cancelled", "rendez-vous"},
		reply:    `<p>You can book, move or cancel an appointment from the <a href="/appointments">Appointments</a> page.</p>`,
	},
	{
		keywords: []string{"prescription", "refill", "medication", "medicine", "ordonnance"},
		reply:    "<p>Prescription refills are requested from your patient portal under <em>Prescriptions</em>. Allow two working days.</p>",
	},
	{
		keywords: []string{"result", "lab", "test", "blood work", "résultat"},
		reply:    "<p>Test results appear in your patient portal once your doctor has reviewed them.</p>",
	},
	{
		keywords: []string{"hour", "open", "close", "opening", "closing", "horaire"},
		reply:    "<p>The clinic is open Monday to Friday, 8:00 to 18:00, and Saturday 9:00 to 13:00.</p>",
	},
	{
		keywords: []string{"where", "address", "location", "directions", "adresse"},
		reply:    "<p>Directions and parking information are on the <a href=\"/contact\">Contact</a> page.</p>",
	},
}

func init() {
	for i := range cannedAnswers {
		for _, kw := range cannedAnswers[i].keywords {
			cannedAnswers[i].match = append(cannedAnswers[i].match, keywordPattern(kw))
		}
	}
}

// keywordPattern matches kw as a whole word, allowing plural and verb endings
// ("results", "booked") but not other words containing it ("available")
func keywordPattern(kw string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `(?:s|es|d|ed|ing)?\b`)
}

const defaultCannedReply = "<p>Our assistant is unavailable right now. Please try again shortly, or call the clinic during opening hours.</p>"

// Reply implements Responder
func (FallbackResponder) Reply(ctx context.Context, p Prompt) (string, error) {
	text := strings.ToLower(p.Message)
	for _, a := range cannedAnswers {
		for _, re := range a.match {
			if re.MatchString(text) {
				return a.reply, nil
			}
		}
	}
	return defaultCannedReply, nil
}
