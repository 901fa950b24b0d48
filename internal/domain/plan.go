package domain

// ScenarioType names the three schedule-improvement levers.
type ScenarioType string

const (
	ScenarioManpower        ScenarioType = "manpower"
	ScenarioProductivity    ScenarioType = "productivity"
	ScenarioParallelization ScenarioType = "parallelization"
)

// PlanTask is one schedule line item supplied to the duration planner.
type PlanTask struct {
	Name           string  `json:"name"`
	DurationDays   float64 `json:"duration_days"`
	Critical       bool    `json:"critical"`
	Parallelizable bool    `json:"parallelizable"`
}

// Scenario is one schedule-improvement proposal. Exactly three are
// produced per planning call, one per ScenarioType.
type Scenario struct {
	ID            string            `json:"id"`
	Type          ScenarioType      `json:"type"`
	ExpectedDays  int               `json:"expected_days"`
	DeltaDays     int               `json:"delta_days"`
	TargetGapDays int               `json:"target_gap_days"`
	MeetsTarget   bool              `json:"meets_target"`
	Assumptions   map[string]string `json:"assumptions"`
	Actions       []string          `json:"actions"`
	EvidenceRefs  []string          `json:"evidence_refs"`
}

func CloneScenarios(in []Scenario) []Scenario {
	if in == nil {
		return nil
	}
	out := make([]Scenario, len(in))
	for i, s := range in {
		cs := s
		if s.Assumptions != nil {
			cs.Assumptions = make(map[string]string, len(s.Assumptions))
			for k, v := range s.Assumptions {
				cs.Assumptions[k] = v
			}
		}
		cs.Actions = append([]string(nil), s.Actions...)
		cs.EvidenceRefs = append([]string(nil), s.EvidenceRefs...)
		out[i] = cs
	}
	return out
}
