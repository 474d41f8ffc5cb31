package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dialoguelab/studychat/internal/domain"
)

func userMsg(content string) domain.Message {
	return domain.Message{MessageID: "m", Role: domain.RoleUser, Content: content, CreatedAt: time.Now()}
}

func assistantMsg(content string) domain.Message {
	return domain.Message{MessageID: "m", Role: domain.RoleAssistant, Content: content, CreatedAt: time.Now()}
}

func summaryBody(t *testing.T, session *domain.Session) string {
	t.Helper()
	for _, msg := range session.Messages {
		if msg.Summary {
			return msg.Content
		}
	}
	t.Fatal("no summary message found")
	return ""
}

func TestEnsureSummaryIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.startConversation(t)
	session := f.loadSession(t, id)
	session.Append(userMsg("I read some research about this"))

	if appended := f.svc.EnsureSummary(context.Background(), session); !appended {
		t.Fatal("expected first call to append a summary")
	}
	if appended := f.svc.EnsureSummary(context.Background(), session); appended {
		t.Fatal("expected second call to be a no-op")
	}

	count := 0
	for _, msg := range session.Messages {
		if msg.Summary {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one summary message, got %d", count)
	}

	// The first call persisted the summary.
	stored := f.loadSession(t, id)
	if b := summaryBody(t, stored); b == "" {
		t.Fatal("summary not persisted")
	}
}

func TestEnsureSummaryNoOpOnBulletedReply(t *testing.T) {
	f := newFixture(t)
	id := f.startConversation(t)
	session := f.loadSession(t, id)

	session.Append(userMsg("can you recap?"))
	session.Append(assistantMsg("Here is what we covered:\n- point one\n- point two"))

	if appended := f.svc.EnsureSummary(context.Background(), session); appended {
		t.Fatal("two bullet markers should count as an existing summary")
	}
}

func TestEnsureSummaryNoOpOnKeyword(t *testing.T) {
	f := newFixture(t)
	id := f.startConversation(t)
	session := f.loadSession(t, id)

	session.Append(assistantMsg("Based on our conversation, you care most about fairness."))

	if appended := f.svc.EnsureSummary(context.Background(), session); appended {
		t.Fatal("summary keyword should count as an existing summary")
	}
}

func TestEnsureSummaryScanWindowBoundary(t *testing.T) {
	f := newFixture(t)
	id := f.startConversation(t)
	session := f.loadSession(t, id)

	// A bulleted recap followed by five newer assistant turns falls
	// outside the scan window, so a fresh summary is synthesized.
	session.Append(assistantMsg("Recap:\n- one\n- two"))
	for i := 0; i < summaryScanWindow; i++ {
		session.Append(assistantMsg("plain reply"))
	}

	if appended := f.svc.EnsureSummary(context.Background(), session); !appended {
		t.Fatal("recap beyond the scan window must not count")
	}
}

func TestSummaryThemeOrdering(t *testing.T) {
	f := newFixture(t)
	id := f.startConversation(t)
	session := f.loadSession(t, id)

	session.Append(userMsg("I looked into the research on this"))
	session.Append(assistantMsg("interesting"))
	session.Append(userMsg("and my family talks about it constantly"))

	if appended := f.svc.EnsureSummary(context.Background(), session); !appended {
		t.Fatal("expected a synthesized summary")
	}

	body := summaryBody(t, session)
	evidenceIdx := strings.Index(body, bulletEvidence)
	socialIdx := strings.Index(body, bulletSocial)
	if evidenceIdx < 0 || socialIdx < 0 {
		t.Fatalf("expected evidence and social bullets, got:\n%s", body)
	}
	if evidenceIdx > socialIdx {
		t.Fatalf("evidence bullet must precede social bullet:\n%s", body)
	}
}

func TestSummaryProfileStatementFirst(t *testing.T) {
	f := newFixture(t)
	id := f.startConversation(t) // fixture participant is natural_to_human
	session := f.loadSession(t, id)
	session.Append(userMsg("just chatting"))

	if appended := f.svc.EnsureSummary(context.Background(), session); !appended {
		t.Fatal("expected a synthesized summary")
	}

	body := summaryBody(t, session)
	lines := strings.Split(body, "\n")
	var firstBullet string
	for _, line := range lines {
		if strings.HasPrefix(line, "- ") {
			firstBullet = strings.TrimPrefix(line, "- ")
			break
		}
	}
	if firstBullet != domain.ChangeStatements[domain.ChangeNaturalToHuman] {
		t.Fatalf("expected belief-change statement first, got %q", firstBullet)
	}
}

func TestSummaryPadding(t *testing.T) {
	// No recognizable themes and no profile statement: the summary is
	// padded with filler up to the minimum.
	bullets := buildSummaryBullets([]string{"just words"}, nil)
	if len(bullets) != minSummaryBullets {
		t.Fatalf("expected %d filler bullets, got %v", minSummaryBullets, bullets)
	}
	for i, bullet := range bullets {
		if bullet != fillerBullets[i] {
			t.Fatalf("unexpected filler at %d: %q", i, bullet)
		}
	}
}

func TestSummaryBulletCap(t *testing.T) {
	texts := []string{
		"the research and evidence convinced me",
		"it happened to me personally, my own experience",
		"my family and friends weigh in",
		"I watched a documentary and read the news",
		"I used to think differently but changed my mind",
	}
	p := &domain.Participant{ParticipantID: "p1", ChangeDirection: domain.ChangeNoChange}

	bullets := buildSummaryBullets(texts, p)
	if len(bullets) != maxSummaryBullets {
		t.Fatalf("expected cap at %d bullets, got %d: %v", maxSummaryBullets, len(bullets), bullets)
	}
	if bullets[0] != domain.ChangeStatements[domain.ChangeNoChange] {
		t.Fatalf("profile statement must come first, got %q", bullets[0])
	}
	// Six candidates fired; the change-process bullet is the one cut.
	for _, bullet := range bullets {
		if bullet == bulletChange {
			t.Fatalf("expected change-process bullet truncated: %v", bullets)
		}
	}
}

func TestSummaryOtherDirectionUsesFreeText(t *testing.T) {
	p := &domain.Participant{
		ParticipantID:   "p1",
		ChangeDirection: domain.ChangeOther,
		ChangeOther:     "went back and forth over the years",
	}
	statement := beliefChangeStatement(p)
	if !strings.Contains(statement, "went back and forth over the years") {
		t.Fatalf("expected free-text statement, got %q", statement)
	}

	if beliefChangeStatement(nil) != "" {
		t.Fatal("nil participant must yield no statement")
	}
	unknown := &domain.Participant{ParticipantID: "p1", ChangeDirection: "mystery"}
	if beliefChangeStatement(unknown) != "" {
		t.Fatal("unrecognized direction must yield no statement")
	}
}

func TestSummaryDeterministic(t *testing.T) {
	texts := []string{"the research says", "my friends disagree"}
	p := &domain.Participant{ParticipantID: "p1", ChangeDirection: domain.ChangeBecameUncertain}

	a := formatSummary(buildSummaryBullets(texts, p))
	b := formatSummary(buildSummaryBullets(texts, p))
	if a != b {
		t.Fatal("summary synthesis must be deterministic")
	}
	if !strings.HasPrefix(a, summaryPreamble) || !strings.HasSuffix(a, summaryClosing) {
		t.Fatalf("summary must be framed by preamble and closing:\n%s", a)
	}
}
