package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/structa/knowledge-backend/internal/domain"
	"github.com/structa/knowledge-backend/internal/platform/apierr"
)

func newTestDuration(ft FulltextSearcher) *DurationService {
	knowledge := newTestService(ft, &stubVector{}, nil, nil)
	return NewDurationService(nil, knowledge)
}

func planTasks() []domain.PlanTask {
	return []domain.PlanTask{
		{Name: "토공사", DurationDays: 30, Critical: true},
		{Name: "골조공사", DurationDays: 60, Critical: true, Parallelizable: true},
		{Name: "마감공사", DurationDays: 40},
	}
}

func TestDurationPlanProducesThreeScenarios(t *testing.T) {
	ft := &stubFulltext{byKind: map[domain.Kind][]domain.EvidenceItem{
		domain.KindStandard: {ftItem("std-1", domain.KindStandard, 2.0)},
		domain.KindLaw:      {ftItem("law-1", domain.KindLaw, 1.0)},
	}}
	svc := newTestDuration(ft)

	res, err := svc.Plan(context.Background(), 150, 120, planTasks(), ModeFulltext, 5)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(res.Scenarios) != 3 {
		t.Fatalf("scenarios = %d, want 3", len(res.Scenarios))
	}
	if res.PrimaryScenarioID == "" {
		t.Fatal("primary scenario missing")
	}
	if res.Baseline.GapDays != 30 {
		t.Fatalf("gap = %f, want 30", res.Baseline.GapDays)
	}
	if res.Baseline.GapRatio != 0.2 {
		t.Fatalf("gap ratio = %f, want 0.2", res.Baseline.GapRatio)
	}
	if len(res.Evidence.Links) != 2 {
		t.Fatalf("evidence links = %d, want 2", len(res.Evidence.Links))
	}
	for _, sc := range res.Scenarios {
		if sc.ExpectedDays < 1 || sc.ExpectedDays > 150 {
			t.Fatalf("scenario %s expected days = %d", sc.ID, sc.ExpectedDays)
		}
	}
}

func TestDurationPlanBottlenecksAreCriticalLongestFirst(t *testing.T) {
	ft := &stubFulltext{}
	svc := newTestDuration(ft)

	res, err := svc.Plan(context.Background(), 100, 90, planTasks(), ModeFulltext, 5)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(res.Bottlenecks) != 2 {
		t.Fatalf("bottlenecks = %d, want only critical tasks", len(res.Bottlenecks))
	}
	if res.Bottlenecks[0].Name != "골조공사" {
		t.Fatalf("top bottleneck = %q, want longest critical task", res.Bottlenecks[0].Name)
	}
}

func TestDurationPlanFallsBackToAllTasks(t *testing.T) {
	svc := newTestDuration(&stubFulltext{})

	tasks := []domain.PlanTask{
		{Name: "a", DurationDays: 5},
		{Name: "b", DurationDays: 9},
	}
	res, err := svc.Plan(context.Background(), 20, 15, tasks, ModeFulltext, 5)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(res.Bottlenecks) != 2 || res.Bottlenecks[0].Name != "b" {
		t.Fatalf("bottlenecks = %+v", res.Bottlenecks)
	}
}

func TestDurationPlanRejectsNonPositiveInputs(t *testing.T) {
	svc := newTestDuration(&stubFulltext{})

	_, err := svc.Plan(context.Background(), 0, 10, nil, ModeFulltext, 5)
	if err == nil {
		t.Fatal("expected error for zero current_days")
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusBadRequest || ae.Code != "invalid_plan_input" {
		t.Fatalf("error = %v, want invalid_plan_input (400)", err)
	}
	if _, err := svc.Plan(context.Background(), 10, -1, nil, ModeFulltext, 5); err == nil {
		t.Fatal("expected error for negative target_days")
	}
}

func TestDurationPlanCaches(t *testing.T) {
	ft := &stubFulltext{}
	svc := newTestDuration(ft)

	first, err := svc.Plan(context.Background(), 150, 120, planTasks(), ModeFulltext, 5)
	if err != nil {
		t.Fatalf("first plan: %v", err)
	}
	if first.CacheMeta.Hit {
		t.Fatal("first plan should not hit cache")
	}

	second, err := svc.Plan(context.Background(), 150, 120, planTasks(), ModeFulltext, 5)
	if err != nil {
		t.Fatalf("second plan: %v", err)
	}
	if !second.CacheMeta.Hit {
		t.Fatal("second plan should hit cache")
	}
}

func TestDurationPlanCacheSeparatesTaskFlags(t *testing.T) {
	svc := newTestDuration(&stubFulltext{})
	tasks := []domain.PlanTask{{Name: "골조공사", DurationDays: 60, Critical: true}}

	serial, err := svc.Plan(context.Background(), 150, 120, tasks, ModeFulltext, 5)
	if err != nil {
		t.Fatalf("serial plan: %v", err)
	}

	tasks[0].Parallelizable = true
	parallel, err := svc.Plan(context.Background(), 150, 120, tasks, ModeFulltext, 5)
	if err != nil {
		t.Fatalf("parallel plan: %v", err)
	}
	if parallel.CacheMeta.Hit {
		t.Fatal("changed task flags must not reuse the cached plan")
	}

	serialDays := scenarioDays(t, serial.Scenarios, domain.ScenarioParallelization)
	parallelDays := scenarioDays(t, parallel.Scenarios, domain.ScenarioParallelization)
	if parallelDays >= serialDays {
		t.Fatalf("parallelization days = %d, want below %d", parallelDays, serialDays)
	}
}

func scenarioDays(t *testing.T, scenarios []domain.Scenario, kind domain.ScenarioType) int {
	t.Helper()
	for _, sc := range scenarios {
		if sc.Type == kind {
			return sc.ExpectedDays
		}
	}
	t.Fatalf("scenario %s missing", kind)
	return 0
}

func TestDurationPlanTargetAboveCurrent(t *testing.T) {
	svc := newTestDuration(&stubFulltext{})

	res, err := svc.Plan(context.Background(), 100, 110, planTasks(), ModeFulltext, 5)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Baseline.GapDays != 0 || res.Baseline.GapRatio != 0 {
		t.Fatalf("baseline = %+v, want zero gap", res.Baseline)
	}
	for _, sc := range res.Scenarios {
		if !sc.MeetsTarget {
			t.Fatalf("scenario %s should meet an already-met target", sc.ID)
		}
	}
}
