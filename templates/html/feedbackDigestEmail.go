package templates

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// DigestItem is one disliked assistant reply
type DigestItem struct {
	SessionID string
	MessageID string
	Excerpt   string
	At        time.Time
}

// FeedbackDigestSubject is the subject line for a digest of n items
func FeedbackDigestSubject(n int) string {
	if n == 1 {
		return "Clinic chat: 1 disliked reply"
	}
	return fmt.Sprintf("Clinic chat: %d disliked replies", n)
}

// RenderFeedbackDigestEmail generates the HTML for the daily negative feedback digest.
// Excerpts are stored assistant HTML, so they are escaped and shown as text.
func RenderFeedbackDigestEmail(items []DigestItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Patients disliked %d assistant %s since the last digest.</p>\n", len(items), plural(len(items), "reply", "replies"))
	for _, it := range items {
		fmt.Fprintf(&b, `<div class="item">%s<div class="meta">%s &middot; session %s &middot; message %s</div></div>`+"\n",
			strings.ReplaceAll(html.EscapeString(it.Excerpt), "\n", "<br>"),
			it.At.UTC().Format("2006-01-02 15:04 UTC"),
			html.EscapeString(it.SessionID),
			html.EscapeString(it.MessageID),
		)
	}
	return renderLayout(FeedbackDigestSubject(len(items)), b.String())
}

// RenderFeedbackDigestText is the plain text alternative of the digest
func RenderFeedbackDigestText(items []DigestItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patients disliked %d assistant %s since the last digest.\n\n", len(items), plural(len(items), "reply", "replies"))
	for _, it := range items {
		fmt.Fprintf(&b, "- [%s] session %s: %s\n", it.At.UTC().Format("2006-01-02 15:04"), it.SessionID, it.Excerpt)
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
