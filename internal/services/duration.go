package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/structa/knowledge-backend/internal/domain"
	"github.com/structa/knowledge-backend/internal/planner"
	"github.com/structa/knowledge-backend/internal/platform/apierr"
	"github.com/structa/knowledge-backend/internal/platform/logger"
)

const (
	MaxPlanTasks         = 300
	MinDurationLimit     = 2
	MaxDurationLimit     = 12
	maxReportBottlenecks = 5
)

// DurationService produces schedule-adequacy recommendations grounded
// in retrieved evidence.
type DurationService struct {
	log       *logger.Logger
	knowledge *KnowledgeService
}

func NewDurationService(log *logger.Logger, knowledge *KnowledgeService) *DurationService {
	if log != nil {
		log = log.With("service", "DurationService")
	}
	return &DurationService{log: log, knowledge: knowledge}
}

// Plan retrieves evidence for the schedule-compression question, runs
// the scenario planner, and returns the recommendation with its trust
// assessment.
func (s *DurationService) Plan(ctx context.Context, currentDays, targetDays float64, tasks []domain.PlanTask, mode SearchMode, limit int) (DurationResult, error) {
	if currentDays <= 0 {
		return DurationResult{}, apierr.New(http.StatusBadRequest, "invalid_plan_input",
			fmt.Errorf("current_days must be positive"))
	}
	if targetDays <= 0 {
		return DurationResult{}, apierr.New(http.StatusBadRequest, "invalid_plan_input",
			fmt.Errorf("target_days must be positive"))
	}
	if len(tasks) > MaxPlanTasks {
		tasks = tasks[:MaxPlanTasks]
	}
	if limit < MinDurationLimit {
		limit = MinDurationLimit
	}
	if limit > MaxDurationLimit {
		limit = MaxDurationLimit
	}

	bottlenecks := topBottlenecks(tasks)
	query := durationQuery(bottlenecks)

	// The task list feeds the planner beyond the derived query (flags
	// drive the parallelization lever), so it is part of the key.
	key := cacheKey(string(mode), limit,
		fmt.Sprintf("%v|%v|%s|%s", currentDays, targetDays, planDigest(tasks), query))
	if s.knowledge.caches.Duration != nil {
		if hit, ok := s.knowledge.caches.Duration.Get(key); ok {
			hit.CacheMeta = CacheMeta{Hit: true}
			if age, ok := s.knowledge.caches.Duration.Age(key); ok {
				hit.CacheMeta.AgeSeconds = age.Seconds()
			}
			return hit, nil
		}
	}

	sr, err := s.knowledge.Search(ctx, query, limit, mode)
	if err != nil {
		return DurationResult{}, err
	}
	links := append(domain.CloneEvidenceItems(sr.Standards), sr.Laws...)
	refs := make([]string, 0, len(links))
	for _, ev := range links {
		refs = append(refs, ev.Key)
	}

	scenarios := planner.Plan(currentDays, targetDays, tasks, refs)
	gap := currentDays - targetDays
	if gap < 0 {
		gap = 0
	}
	result := DurationResult{
		Baseline: DurationBaseline{
			CurrentDays: currentDays,
			TargetDays:  targetDays,
			GapDays:     gap,
			GapRatio:    gap / currentDays,
		},
		Bottlenecks:       bottlenecks,
		Scenarios:         scenarios,
		PrimaryScenarioID: planner.PrimaryScenarioID(scenarios),
		Evidence: DurationEvidence{
			Trust: sr.Trust,
			Links: links,
		},
		Warning: sr.Warning,
	}
	if s.knowledge.caches.Duration != nil {
		s.knowledge.caches.Duration.Set(key, result)
	}
	return result, nil
}

// topBottlenecks returns the longest critical tasks, the whole list
// counting as critical when nothing is flagged.
func topBottlenecks(tasks []domain.PlanTask) []domain.PlanTask {
	var critical []domain.PlanTask
	for _, t := range tasks {
		if t.Critical {
			critical = append(critical, t)
		}
	}
	if len(critical) == 0 {
		critical = append(critical, tasks...)
	}
	sort.SliceStable(critical, func(i, j int) bool {
		return critical[i].DurationDays > critical[j].DurationDays
	})
	if len(critical) > maxReportBottlenecks {
		critical = critical[:maxReportBottlenecks]
	}
	return critical
}

func planDigest(tasks []domain.PlanTask) string {
	h := sha256.New()
	for _, t := range tasks {
		fmt.Fprintf(h, "%s|%v|%t|%t\n", t.Name, t.DurationDays, t.Critical, t.Parallelizable)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func durationQuery(bottlenecks []domain.PlanTask) string {
	parts := []string{"공기 단축", "표준품셈 생산성", "돌관작업 기준"}
	for _, t := range bottlenecks {
		if strings.TrimSpace(t.Name) != "" {
			parts = append(parts, t.Name)
		}
	}
	return strings.Join(parts, " ")
}
