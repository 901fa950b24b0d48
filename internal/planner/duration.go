package planner

import (
	"fmt"
	"math"

	"github.com/structa/knowledge-backend/internal/domain"
)

const maxScenarioEvidence = 4

// Plan produces the three fixed improvement scenarios for a schedule
// that currently runs currentDays against a target of targetDays. Gains
// are capped per lever to keep the proposals plausible; expected days
// never fall below 1.
func Plan(currentDays, targetDays float64, tasks []domain.PlanTask, evidenceRefs []string) []domain.Scenario {
	gap := math.Max(0, currentDays-targetDays)
	gapRatio := 0.0
	if currentDays > 0 {
		gapRatio = gap / currentDays
	}

	critical := criticalTasks(tasks)
	criticalDays := 0.0
	parallelDays := 0.0
	for _, t := range critical {
		criticalDays += t.DurationDays
		if t.Parallelizable {
			parallelDays += t.DurationDays
		}
	}
	parallelRatio := 0.0
	if criticalDays > 0 {
		parallelRatio = parallelDays / criticalDays
	}

	refs := evidenceRefs
	if len(refs) > maxScenarioEvidence {
		refs = refs[:maxScenarioEvidence]
	}

	manpowerGain := math.Min(0.22, 0.06+0.40*gapRatio)
	productivityGain := math.Min(0.28, 0.08+0.50*gapRatio)
	parallelGain := math.Min(0.30, 0.05+0.35*parallelRatio+0.20*gapRatio)

	return []domain.Scenario{
		buildScenario(domain.ScenarioManpower, currentDays, targetDays, manpowerGain, refs, map[string]string{
			"gain_cap":  "0.22",
			"gap_ratio": formatRatio(gapRatio),
		}, []string{
			"증원 투입 구간을 주공정 작업 중심으로 선정한다",
			"신규 인력의 숙련도 확보를 위한 선행 교육을 편성한다",
			"작업조 증설에 따른 안전관리자 배치 기준을 재검토한다",
		}),
		buildScenario(domain.ScenarioProductivity, currentDays, targetDays, productivityGain, refs, map[string]string{
			"gain_cap":  "0.28",
			"gap_ratio": formatRatio(gapRatio),
		}, []string{
			"반복 작업 구간에 기계화 시공을 우선 적용한다",
			"작업 동선과 자재 양중 계획을 재배치하여 대기 시간을 줄인다",
			"생산성 저하 공종의 표준품셈 대비 실적을 주간 단위로 점검한다",
		}),
		buildScenario(domain.ScenarioParallelization, currentDays, targetDays, parallelGain, refs, map[string]string{
			"gain_cap":       "0.30",
			"parallel_ratio": formatRatio(parallelRatio),
			"gap_ratio":      formatRatio(gapRatio),
		}, []string{
			"병행 가능한 주공정 작업을 구역 분할로 동시 착수한다",
			"선후행 작업의 간섭을 공정표에서 재검증한다",
			"동시 작업 구간의 양중 장비와 가설재 공유 계획을 수립한다",
		}),
	}
}

// PrimaryScenarioID selects the scenario whose expected duration lands
// closest to the target, ties broken by encounter order.
func PrimaryScenarioID(scenarios []domain.Scenario) string {
	if len(scenarios) == 0 {
		return ""
	}
	best := scenarios[0]
	for _, s := range scenarios[1:] {
		if abs(s.TargetGapDays) < abs(best.TargetGapDays) {
			best = s
		}
	}
	return best.ID
}

func buildScenario(kind domain.ScenarioType, currentDays, targetDays, gain float64, refs []string, assumptions map[string]string, actions []string) domain.Scenario {
	expected := int(math.Max(1, math.Round(currentDays*(1-gain))))
	return domain.Scenario{
		ID:            fmt.Sprintf("scn-%s", kind),
		Type:          kind,
		ExpectedDays:  expected,
		DeltaDays:     expected - int(math.Round(currentDays)),
		TargetGapDays: expected - int(math.Round(targetDays)),
		MeetsTarget:   float64(expected) <= targetDays,
		Assumptions:   assumptions,
		Actions:       actions,
		EvidenceRefs:  append([]string(nil), refs...),
	}
}

// criticalTasks returns the tasks flagged critical, or every task when
// nothing is flagged.
func criticalTasks(tasks []domain.PlanTask) []domain.PlanTask {
	var out []domain.PlanTask
	for _, t := range tasks {
		if t.Critical {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return tasks
	}
	return out
}

func formatRatio(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
