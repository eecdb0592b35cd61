package usecase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/observability"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// Decision actions embedded in the one-click links mailed to the assessor.
const (
	decisionAccept = "accept"
	decisionReject = "reject"
	decisionReview = "review"
)

// DecisionToken signs a submission/decision pair so the emailed links cannot
// be forged or replayed against another submission.
func DecisionToken(secret, submissionID, decision string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(submissionID + ":" + decision))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyDecisionToken checks a token produced by DecisionToken in constant
// time.
func VerifyDecisionToken(secret, submissionID, decision, token string) bool {
	want := DecisionToken(secret, submissionID, decision)
	return hmac.Equal([]byte(want), []byte(token))
}

// notify emails the scored report to the configured assessor. Failures are
// logged and counted; the pipeline outcome is already persisted by the time
// this runs.
func (p Pipeline) notify(ctx domain.Context, sub domain.Submission, cfg domain.GradeConfig, rec domain.RecommendationResult) {
	if p.Email == nil || cfg.AssessorEmail == "" {
		slog.Info("no assessor email configured, skipping dispatch",
			slog.String("submission_id", sub.ID),
			slog.String("school_id", sub.SchoolID))
		observability.EmailDispatchTotal.WithLabelValues("skipped").Inc()
		return
	}

	subject := fmt.Sprintf("Assessment result: %s (grade %d): %s", sub.StudentName, sub.Grade, rec.Band)
	body := p.renderReportEmail(sub, cfg, rec)

	if err := p.Email.Send(ctx, cfg.AssessorEmail, subject, body); err != nil {
		slog.Error("assessor email dispatch failed",
			slog.String("submission_id", sub.ID),
			slog.String("to", cfg.AssessorEmail),
			slog.Any("error", err))
		observability.EmailDispatchTotal.WithLabelValues("error").Inc()
		return
	}
	observability.EmailDispatchTotal.WithLabelValues("sent").Inc()
	slog.Info("assessor email dispatched",
		slog.String("submission_id", sub.ID),
		slog.String("to", cfg.AssessorEmail))
}

// renderReportEmail builds the HTML report body: per-domain score table,
// writing commentary, narratives, and the signed decision links.
func (p Pipeline) renderReportEmail(sub domain.Submission, cfg domain.GradeConfig, rec domain.RecommendationResult) string {
	var b strings.Builder

	greeting := "Dear assessor"
	if cfg.AssessorName != "" {
		greeting = "Dear " + html.EscapeString(cfg.AssessorName)
	}
	fmt.Fprintf(&b, "<p>%s,</p>", greeting)
	fmt.Fprintf(&b, "<p>The assessment for <strong>%s</strong> (grade %d, %s) is complete.</p>",
		html.EscapeString(sub.StudentName), sub.Grade, html.EscapeString(sub.Programme))
	fmt.Fprintf(&b, "<h2>Recommendation: %s</h2>", html.EscapeString(string(rec.Band)))
	fmt.Fprintf(&b, "<p>Overall academic score: <strong>%.1f%%</strong> · Mindset: %.1f / 4</p>",
		rec.OverallAcademicPct, rec.MindsetScore)

	b.WriteString(`<table border="1" cellpadding="6" cellspacing="0"><tr><th>Domain</th><th>MCQ %</th><th>Writing</th><th>Combined %</th><th>Threshold</th><th>Met</th></tr>`)
	for _, dr := range []domain.DomainResult{rec.English, rec.Mathematics, rec.Reasoning} {
		writing := "n/a"
		if dr.WritingScore != nil {
			writing = fmt.Sprintf("%.1f / 4", *dr.WritingScore)
		}
		met := "No"
		if dr.MeetsThreshold {
			met = "Yes"
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%.1f</td><td>%s</td><td>%.1f</td><td>%.1f</td><td>%s</td></tr>",
			titleCase(string(dr.Domain)), dr.MCQPct, writing, dr.CombinedPct, dr.Threshold, met)
	}
	b.WriteString("</table>")

	for _, d := range []domain.Domain{domain.DomainEnglish, domain.DomainMathematics} {
		ev, ok := sub.WritingEvaluations[d]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "<h3>%s writing: %s</h3>", titleCase(string(d)), html.EscapeString(string(ev.Band)))
		fmt.Fprintf(&b, "<p>%s</p><p>%s</p><p><em>%s</em></p>",
			html.EscapeString(ev.ContentNarrative),
			html.EscapeString(ev.WritingNarrative),
			html.EscapeString(ev.ThresholdComment))
	}

	fmt.Fprintf(&b, "<h3>Reasoning</h3><p>%s</p>", html.EscapeString(sub.ReasoningNarrative))
	fmt.Fprintf(&b, "<h3>Learning mindset</h3><p>%s</p>", html.EscapeString(sub.MindsetNarrative))

	b.WriteString("<p>")
	for i, d := range []struct{ action, label string }{
		{decisionAccept, "Accept"},
		{decisionReject, "Decline"},
		{decisionReview, "Request review"},
	} {
		if i > 0 {
			b.WriteString(" &nbsp;|&nbsp; ")
		}
		token := DecisionToken(p.DecisionSecret, sub.ID, d.action)
		fmt.Fprintf(&b, `<a href="%s/v1/decisions/%s?action=%s&token=%s">%s</a>`,
			strings.TrimRight(p.ReportBaseURL, "/"), sub.ID, d.action, token, d.label)
	}
	b.WriteString("</p>")

	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
