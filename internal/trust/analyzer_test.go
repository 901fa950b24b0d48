package trust

import (
	"testing"

	"github.com/structa/knowledge-backend/internal/domain"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return NewAnalyzer(DefaultLexicon(), nil)
}

func TestBuildTrustLayerEmptyEvidence(t *testing.T) {
	rec := newTestAnalyzer(t).BuildTrustLayer("동바리 설치 기준", nil, nil)
	if rec.EvidenceScore != 0 || rec.SourceConsistencyScore != 0 || rec.SourceCoverage != 0 || rec.OverallConfidence != 0 {
		t.Fatalf("empty evidence: want all-zero scores got %+v", rec)
	}
	if len(rec.Conflicts) != 0 {
		t.Fatalf("empty evidence: want no conflicts got %d", len(rec.Conflicts))
	}
}

func TestDirectiveConflictDetected(t *testing.T) {
	standards := []domain.EvidenceItem{
		{Key: "std:a", Kind: domain.KindStandard, Excerpt: "콘크리트 타설 전 거푸집 검사를 반드시 실시한다", EvidenceScore: 0.9},
	}
	laws := []domain.EvidenceItem{
		{Key: "law:b", Kind: domain.KindLaw, Excerpt: "해당 구간의 단독 작업은 금지 한다", LawName: "산업안전보건법", EvidenceScore: 0.8},
	}
	rec := newTestAnalyzer(t).BuildTrustLayer("거푸집 검사", standards, laws)
	if len(rec.Conflicts) != 1 {
		t.Fatalf("conflicts: want=1 got=%d", len(rec.Conflicts))
	}
	c := rec.Conflicts[0]
	if c.Type != domain.ConflictDirective {
		t.Fatalf("conflict type: want=directive_conflict got=%s", c.Type)
	}
	if len(c.EvidenceRefs) != 2 || !hasRef(c, "std:a") || !hasRef(c, "law:b") {
		t.Fatalf("conflict refs: want both items got %v", c.EvidenceRefs)
	}
}

func TestThresholdConflictDetected(t *testing.T) {
	a := []domain.EvidenceItem{
		{Key: "std:floor", Kind: domain.KindStandard, Excerpt: "철근 피복 두께는 5mm 이상 확보한다", EvidenceScore: 1.0},
	}
	b := []domain.EvidenceItem{
		{Key: "std:ceiling", Kind: domain.KindStandard, Excerpt: "허용 오차는 3mm 이하 로 관리한다", EvidenceScore: 0.7},
	}
	rec := newTestAnalyzer(t).BuildTrustLayer("피복 두께", append(a, b...), nil)
	var found *domain.Conflict
	for i := range rec.Conflicts {
		if rec.Conflicts[i].Type == domain.ConflictThreshold {
			found = &rec.Conflicts[i]
		}
	}
	if found == nil {
		t.Fatalf("threshold conflict not raised: %+v", rec.Conflicts)
	}
	if !hasRef(*found, "std:floor") || !hasRef(*found, "std:ceiling") {
		t.Fatalf("threshold conflict refs: want both items got %v", found.EvidenceRefs)
	}
}

func TestThresholdNoConflictWhenRangesOverlap(t *testing.T) {
	items := []domain.EvidenceItem{
		{Key: "std:floor", Kind: domain.KindStandard, Excerpt: "간격은 5mm 이상 으로 한다", EvidenceScore: 1.0},
		{Key: "std:ceiling", Kind: domain.KindStandard, Excerpt: "간격은 10mm 이하 로 한다", EvidenceScore: 0.9},
	}
	rec := newTestAnalyzer(t).BuildTrustLayer("간격 기준", items, nil)
	for _, c := range rec.Conflicts {
		if c.Type == domain.ConflictThreshold {
			t.Fatalf("unexpected threshold conflict: %+v", c)
		}
	}
}

func TestThresholdUnitsNotConverted(t *testing.T) {
	// 10mm floor vs 5cm ceiling would conflict under conversion; the
	// analyzer compares same-unit pairs only.
	items := []domain.EvidenceItem{
		{Key: "std:mm", Kind: domain.KindStandard, Excerpt: "두께 10mm 이상", EvidenceScore: 1.0},
		{Key: "std:cm", Kind: domain.KindStandard, Excerpt: "두께 0.5cm 이하", EvidenceScore: 0.8},
	}
	rec := newTestAnalyzer(t).BuildTrustLayer("두께", items, nil)
	for _, c := range rec.Conflicts {
		if c.Type == domain.ConflictThreshold {
			t.Fatalf("cross-unit conflict raised: %+v", c)
		}
	}
}

func TestTrustScoresWithinRange(t *testing.T) {
	standards := []domain.EvidenceItem{
		{Key: "std:a", Kind: domain.KindStandard, Path: "KCS 21 50 05", Excerpt: "동바리 존치기간은 콘크리트 압축강도 기준을 따른다", EvidenceScore: 1.0},
		{Key: "std:b", Kind: domain.KindStandard, Path: "KCS 14 20 12", Excerpt: "거푸집 존치기간 동안 진동을 가하지 않는다", EvidenceScore: 0.62},
	}
	laws := []domain.EvidenceItem{
		{Key: "law:c", Kind: domain.KindLaw, LawName: "건설기술진흥법", Excerpt: "건설공사의 품질관리 기준 준수", EvidenceScore: 0.48},
	}
	rec := newTestAnalyzer(t).BuildTrustLayer("거푸집 존치기간", standards, laws)
	for name, v := range map[string]float64{
		"evidence_score":           rec.EvidenceScore,
		"source_consistency_score": rec.SourceConsistencyScore,
		"source_coverage":          rec.SourceCoverage,
		"overall_confidence":       rec.OverallConfidence,
	} {
		if v < 0 || v > 1 {
			t.Fatalf("%s out of range: %v", name, v)
		}
	}
	if rec.SourceCoverage != 1.0 {
		t.Fatalf("source_coverage: want=1.0 got=%v", rec.SourceCoverage)
	}
}

func TestPolarityMustNotIsProhibitive(t *testing.T) {
	a := newTestAnalyzer(t)
	if p := a.polarity("workers must not enter the exclusion zone"); p != -1 {
		t.Fatalf("polarity(must not): want=-1 got=%d", p)
	}
	if p := a.polarity("anchors must be torque tested"); p != 1 {
		t.Fatalf("polarity(must): want=+1 got=%d", p)
	}
	if p := a.polarity("general note without directives"); p != 0 {
		t.Fatalf("polarity(neutral): want=0 got=%d", p)
	}
}

func hasRef(c domain.Conflict, key string) bool {
	for _, r := range c.EvidenceRefs {
		if r == key {
			return true
		}
	}
	return false
}
