package reason

import (
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

const verdictSystem = `You are a financial news fact-checking assistant. You judge claims strictly against the evidence you are given and never rely on outside knowledge.`

const answerSystem = `You are a financial Q&A assistant constrained to answer using provided evidence only.`

const strictSuffix = `
IMPORTANT: your previous reply could not be used. Reply with exactly one JSON object matching the fields above. No markdown, no code fences, no text before or after the object.`

// maxEvidenceChars bounds each chunk in the prompt
const maxEvidenceChars = 1200

func formatEvidence(evidence []model.EvidenceChunk) string {
	if len(evidence) == 0 {
		return ""
	}
	parts := make([]string, 0, len(evidence))
	for _, c := range evidence {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Source: %s (score=%.2f)", c.Source, c.Score)
		if c.URL != "" {
			fmt.Fprintf(&sb, "\nURL: %s", c.URL)
		}
		if c.Title != "" {
			fmt.Fprintf(&sb, "\nTitle: %s", c.Title)
		}
		if c.Published != nil {
			fmt.Fprintf(&sb, "\nPublished: %s", c.Published.Format("2006-01-02"))
		}
		sb.WriteString("\n")
		sb.WriteString(truncate(strings.TrimSpace(c.Text), maxEvidenceChars))
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

func buildVerdictPrompt(claim string, evidence []model.EvidenceChunk, strict bool) string {
	var sb strings.Builder
	sb.WriteString("CLAIM:\n")
	sb.WriteString(strings.TrimSpace(claim))
	sb.WriteString("\n\nEVIDENCE (retrieved from verified sources):\n")
	if len(evidence) == 0 {
		sb.WriteString("No relevant evidence retrieved. You MUST answer \"Unverifiable\" with confidence at most 0.3 and an empty citations list.\n")
	} else {
		sb.WriteString(formatEvidence(evidence))
		sb.WriteString("\n")
	}
	sb.WriteString(`
Task:
1. Compare the claim with the evidence only.
2. Give a JSON answer with:
   - verdict: "True", "False", "Misleading", or "Unverifiable"
   - confidence: number between 0.0 and 1.0
   - reasoning: short explanation grounded in the evidence
   - citations: list of the Source names (or URLs) of the evidence you used

Rules:
- Cite only sources listed in the EVIDENCE section.
- If numbers, dates or periods in the claim differ from the evidence, the claim is not True.
- If the evidence does not address the claim, answer "Unverifiable".
- Output only a single valid JSON object.
- Do not include markdown, code fences, or any text before/after the JSON.`)
	if strict {
		sb.WriteString(strictSuffix)
	}
	return sb.String()
}

func buildAnswerPrompt(in AnswerInput, historyWindow int, strict bool) string {
	var sb strings.Builder

	sb.WriteString("Conversation (recent turns):\n")
	recent := in.History
	if historyWindow > 0 {
		recent = (&model.Session{Turns: in.History}).Recent(historyWindow)
	}
	if len(recent) == 0 {
		sb.WriteString("(no prior context)\n")
	}
	for _, t := range recent {
		fmt.Fprintf(&sb, "%s: %s\n", roleTitle(t.Role), truncate(t.Text, 600))
	}

	sb.WriteString("\nContext:\n")
	if c := strings.TrimSpace(in.Context); c != "" {
		sb.WriteString(c)
	} else {
		sb.WriteString("(no additional context)")
	}

	sb.WriteString("\n\nUser question:\n")
	sb.WriteString(strings.TrimSpace(in.Question))

	sb.WriteString("\n\nEVIDENCE:\n")
	if len(in.Evidence) == 0 {
		sb.WriteString("No relevant evidence retrieved.")
	} else {
		sb.WriteString(formatEvidence(in.Evidence))
	}

	sb.WriteString(`

Task:
1. Answer succinctly in 2-4 sentences using the evidence only.
2. If the evidence is insufficient, say so and suggest what specific data would verify it.
3. Provide a JSON object with fields:
   - answer: short natural language answer
   - citations: list of the Source names or URLs you used

Rules:
- Cite only sources listed in the EVIDENCE section.
- If the question is vague, use the Context to infer the intended topic and stay on-topic.
- Prefer directly relevant evidence; ignore tangential market commentary.
- Output only a single valid JSON object. No extra text.`)
	if strict {
		sb.WriteString(strictSuffix)
	}
	return sb.String()
}

func roleTitle(r model.Role) string {
	if r == model.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
