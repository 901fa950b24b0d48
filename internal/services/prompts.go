package services

import (
	"fmt"
	"strings"

	"github.com/structa/knowledge-backend/internal/domain"
)

const answerSystemPrompt = `당신은 건설 기준과 법령 근거를 바탕으로 답하는 전문가입니다.
제공된 근거 안에서만 답하고, 근거가 부족하면 부족하다고 밝히십시오.
각 주장 뒤에 근거 번호를 [1] 형식으로 표기하십시오.`

const cardSystemPrompt = `당신은 건설 현장 실행 체크리스트를 작성하는 전문가입니다.
제공된 근거만 사용하여 요청된 JSON 구조로 답하십시오.`

func answerPrompt(query string, standards, laws []domain.EvidenceItem) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "질문: %s\n\n근거:\n", query)
	writeEvidenceBlock(&b, standards, laws)
	b.WriteString("\n위 근거를 바탕으로 질문에 답하십시오.")
	return answerSystemPrompt, b.String()
}

func cardPrompt(query string, standards, laws []domain.EvidenceItem) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "작업: %s\n\n근거:\n", query)
	writeEvidenceBlock(&b, standards, laws)
	b.WriteString("\n위 근거를 바탕으로 실행 카드를 작성하십시오.")
	return cardSystemPrompt, b.String()
}

func writeEvidenceBlock(b *strings.Builder, standards, laws []domain.EvidenceItem) {
	n := 1
	for _, ev := range standards {
		fmt.Fprintf(b, "[%d] (기준) %s: %s\n", n, evidenceLabel(ev), ev.Excerpt)
		n++
	}
	for _, ev := range laws {
		fmt.Fprintf(b, "[%d] (법령) %s: %s\n", n, evidenceLabel(ev), ev.Excerpt)
		n++
	}
	if n == 1 {
		b.WriteString("(근거 없음)\n")
	}
}

func cardSchema() map[string]any {
	stringArray := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"one_liner":          map[string]any{"type": "string"},
			"checklist":          stringArray,
			"risks":              stringArray,
			"required_documents": stringArray,
		},
		"required":             []string{"one_liner", "checklist", "risks", "required_documents"},
		"additionalProperties": false,
	}
}

// shapeCard validates the generator's structured output into a Card.
func shapeCard(raw map[string]any) (domain.Card, error) {
	oneLiner, _ := raw["one_liner"].(string)
	if strings.TrimSpace(oneLiner) == "" {
		return domain.Card{}, fmt.Errorf("structured output missing one_liner")
	}
	return domain.Card{
		OneLiner:          strings.TrimSpace(oneLiner),
		Checklist:         stringSlice(raw["checklist"]),
		Risks:             stringSlice(raw["risks"]),
		RequiredDocuments: stringSlice(raw["required_documents"]),
	}, nil
}

func stringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
