package service

import (
	"context"
	"log"
	"strings"

	"github.com/dialoguelab/studychat/internal/domain"
)

// Summary detection and synthesis. Everything here is deterministic
// given the same message list (aside from the appended message's
// timestamp) so it is testable without network access.

const (
	// summaryScanWindow is how many trailing assistant messages the
	// adequacy scan inspects.
	summaryScanWindow = 5

	// minSummaryBullets / maxSummaryBullets bound the synthesized
	// bullet list; fewer than the minimum is padded with filler.
	minSummaryBullets = 2
	maxSummaryBullets = 5

	summaryPreamble = "Before we finish, here are the key points from our conversation:"
	summaryClosing  = "Thank you for sharing your thoughts with me today."
)

// summaryKeywords mark an assistant message as already being a summary.
var summaryKeywords = []string{
	"summary",
	"summarize",
	"key themes",
	"based on our conversation",
}

// bulletMarkers are the line prefixes counted as bullet points.
var bulletMarkers = []string{"- ", "* ", "• "}

// fillerBullets pad a synthesized summary up to the minimum.
var fillerBullets = []string{
	"You engaged thoughtfully with questions about your beliefs.",
	"You explored the reasons behind your current views.",
}

// Fixed bullet text per detected theme.
const (
	bulletEvidence = "You discussed scientific evidence and research around the topic."
	bulletPersonal = "You reflected on personal experiences that shaped your views."
	bulletSocial   = "You talked about the influence of people around you, such as family and friends."
	bulletMedia    = "You mentioned media and news coverage as a source of information."
	bulletChange   = "You described how your thinking about the topic has shifted over time."
)

// EnsureSummary guarantees the session carries a closing summary,
// synthesizing and persisting one if the conversation never produced
// one. Idempotent; side effects only when a summary is missing.
func (s *Service) EnsureSummary(ctx context.Context, session *domain.Session) bool {
	if !s.appendSummaryIfMissing(ctx, session) {
		return false
	}
	s.persist(ctx, session)
	return true
}

// appendSummaryIfMissing appends a synthesized summary message when the
// conversation lacks one. Returns true when a message was appended. The
// caller persists.
func (s *Service) appendSummaryIfMissing(ctx context.Context, session *domain.Session) bool {
	if hasAdequateSummary(session.Messages) {
		return false
	}

	participant, err := s.gateway.GetParticipant(ctx, session.ParticipantID)
	if err != nil {
		// Synthesize without the profile bullet rather than fail the
		// closing sequence.
		log.Printf("WARN: participant lookup failed while summarizing session %s: %v", session.SessionID, err)
		participant = nil
	}

	bullets := buildSummaryBullets(userTexts(session.Messages), participant)
	msg := s.newMessage(domain.RoleAssistant, formatSummary(bullets))
	msg.Summary = true
	session.Append(msg)
	return true
}

// hasAdequateSummary scans the most recent assistant turns (up to the
// scan window) for a message that already reads as a summary: either
// two or more bullet points, or a summary-indicating keyword.
func hasAdequateSummary(messages []domain.Message) bool {
	seen := 0
	for i := len(messages) - 1; i >= 0 && seen < summaryScanWindow; i-- {
		msg := messages[i]
		if msg.Role != domain.RoleAssistant {
			continue
		}
		seen++
		if msg.Summary {
			return true
		}
		if countBullets(msg.Content) >= 2 {
			return true
		}
		if containsSummaryKeyword(msg.Content) {
			return true
		}
	}
	return false
}

// countBullets counts lines starting with a bullet marker.
func countBullets(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range bulletMarkers {
			if strings.HasPrefix(line, marker) {
				count++
				break
			}
		}
	}
	return count
}

func containsSummaryKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// userTexts collects the user-side content of the conversation.
func userTexts(messages []domain.Message) []string {
	var texts []string
	for _, msg := range messages {
		if msg.Role == domain.RoleUser {
			texts = append(texts, msg.Content)
		}
	}
	return texts
}

// Theme detectors. Each is an independent keyword-containment predicate
// over the joined, lowercased user text.

var evidenceKeywords = []string{"research", "study", "studies", "evidence", "data", "scientist", "scientific"}
var personalKeywords = []string{"my experience", "personally", "in my life", "happened to me", "my own", "i experienced"}
var socialKeywords = []string{"family", "friend", "friends", "my parents", "people around me", "community", "coworker"}
var mediaKeywords = []string{"news", "article", "documentary", "social media", "video", "read about", "on tv"}
var changeKeywords = []string{"changed my mind", "used to think", "used to believe", "realized", "convinced", "came to believe"}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func mentionsEvidence(text string) bool { return containsAny(text, evidenceKeywords) }
func mentionsPersonal(text string) bool { return containsAny(text, personalKeywords) }
func mentionsSocial(text string) bool   { return containsAny(text, socialKeywords) }
func mentionsMedia(text string) bool    { return containsAny(text, mediaKeywords) }
func mentionsChange(text string) bool   { return containsAny(text, changeKeywords) }

// beliefChangeStatement derives the profile bullet from the
// participant's reported change direction. Empty when no direction is
// recognized.
func beliefChangeStatement(p *domain.Participant) string {
	if p == nil {
		return ""
	}
	if statement, ok := domain.ChangeStatements[p.ChangeDirection]; ok {
		return statement
	}
	if p.ChangeDirection == domain.ChangeOther && strings.TrimSpace(p.ChangeOther) != "" {
		return "You described your belief change as: " + strings.TrimSpace(p.ChangeOther)
	}
	return ""
}

// buildSummaryBullets produces the bullet list in fixed order:
// profile statement, evidence, personal experience, social influence,
// media, change process. Truncated to the maximum, padded with filler
// to the minimum.
func buildSummaryBullets(texts []string, p *domain.Participant) []string {
	joined := strings.ToLower(strings.Join(texts, "\n"))

	var bullets []string
	if statement := beliefChangeStatement(p); statement != "" {
		bullets = append(bullets, statement)
	}
	if mentionsEvidence(joined) {
		bullets = append(bullets, bulletEvidence)
	}
	if mentionsPersonal(joined) {
		bullets = append(bullets, bulletPersonal)
	}
	if mentionsSocial(joined) {
		bullets = append(bullets, bulletSocial)
	}
	if mentionsMedia(joined) {
		bullets = append(bullets, bulletMedia)
	}
	if mentionsChange(joined) {
		bullets = append(bullets, bulletChange)
	}

	if len(bullets) > maxSummaryBullets {
		bullets = bullets[:maxSummaryBullets]
	}
	for i := 0; len(bullets) < minSummaryBullets && i < len(fillerBullets); i++ {
		bullets = append(bullets, fillerBullets[i])
	}
	return bullets
}

// formatSummary renders the bullets into one assistant message framed
// by the fixed preamble and closing sentence.
func formatSummary(bullets []string) string {
	var b strings.Builder
	b.WriteString(summaryPreamble)
	b.WriteString("\n\n")
	for _, bullet := range bullets {
		b.WriteString("- ")
		b.WriteString(bullet)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(summaryClosing)
	return b.String()
}
