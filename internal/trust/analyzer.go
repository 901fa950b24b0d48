package trust

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/structa/knowledge-backend/internal/domain"
	"github.com/structa/knowledge-backend/internal/platform/logger"
)

const (
	maxConflicts      = 6
	maxQueryTokens    = 12
	thresholdWindow   = 20
	directiveRefsSide = 2
)

// Analyzer derives a trust record from a scored evidence set using
// cue-token heuristics over the raw evidence text.
type Analyzer struct {
	lex         Lexicon
	thresholdRe *regexp.Regexp
	log         *logger.Logger
}

func NewAnalyzer(lex Lexicon, log *logger.Logger) *Analyzer {
	units := append([]string(nil), lex.Units...)
	// Longest alternative first so "mm" wins over "m".
	sort.SliceStable(units, func(i, j int) bool {
		return len(units[i]) > len(units[j])
	})
	escaped := make([]string, 0, len(units))
	for _, u := range units {
		escaped = append(escaped, regexp.QuoteMeta(u))
	}
	re := regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(` + strings.Join(escaped, "|") + `)`)
	if log != nil {
		log = log.With("component", "TrustAnalyzer")
	}
	return &Analyzer{lex: lex, thresholdRe: re, log: log}
}

type thresholdKind int

const (
	thresholdExact thresholdKind = iota
	thresholdMin
	thresholdMax
)

type threshold struct {
	value   float64
	unit    string
	kind    thresholdKind
	itemKey string
}

// BuildTrustLayer computes the consistency/confidence assessment for one
// query's evidence set. An empty evidence set yields an all-zero record
// with no conflicts.
func (a *Analyzer) BuildTrustLayer(query string, standards, laws []domain.EvidenceItem) domain.TrustRecord {
	items := make([]domain.EvidenceItem, 0, len(standards)+len(laws))
	items = append(items, standards...)
	items = append(items, laws...)
	if len(items) == 0 {
		return domain.TrustRecord{Conflicts: []domain.Conflict{}}
	}

	texts := make([]string, len(items))
	polarities := make([]int, len(items))
	var thresholds []threshold
	for i, it := range items {
		texts[i] = itemText(it)
		polarities[i] = a.polarity(texts[i])
		thresholds = append(thresholds, a.extractThresholds(texts[i], it.Key)...)
	}

	conflicts := a.detectDirectiveConflicts(items, polarities)
	conflicts = append(conflicts, a.detectThresholdConflicts(thresholds)...)
	if len(conflicts) > maxConflicts {
		conflicts = conflicts[:maxConflicts]
	}

	meanEvidence := 0.0
	sources := make(map[string]bool, len(items))
	for _, it := range items {
		meanEvidence += it.EvidenceScore
		sources[it.SourceLabel()] = true
	}
	meanEvidence /= float64(len(items))
	coverage := float64(len(sources)) / float64(len(items))

	tokenAgreement := a.tokenAgreement(query, texts)
	conflictCount := float64(len(conflicts))

	consistency := clamp01(0.45*tokenAgreement + 0.25*coverage + 0.30*meanEvidence - math.Min(0.45, 0.15*conflictCount))
	overall := clamp01(0.45*meanEvidence + 0.40*consistency + 0.15*coverage - math.Min(0.30, 0.10*conflictCount))

	return domain.TrustRecord{
		EvidenceScore:          round4(meanEvidence),
		SourceConsistencyScore: round4(consistency),
		SourceCoverage:         round4(coverage),
		OverallConfidence:      round4(overall),
		Conflicts:              conflicts,
	}
}

// itemText concatenates the fields the heuristics scan: excerpt, title
// and source identifiers, lowercased into one blob.
func itemText(it domain.EvidenceItem) string {
	parts := []string{it.Excerpt, it.Title, it.Path, it.LawName, it.Article, it.Paragraph, it.Item}
	return strings.ToLower(strings.Join(parts, " "))
}

// polarity is +1 when only mandatory cues fire, -1 when only prohibitive
// cues fire, 0 when both or neither. Prohibitive matches are blanked out
// first so "must not" never also counts as "must".
func (a *Analyzer) polarity(text string) int {
	prohibitive := false
	for _, cue := range a.lex.ProhibitiveCues {
		if strings.Contains(text, cue) {
			prohibitive = true
			text = strings.ReplaceAll(text, cue, " ")
		}
	}
	mandatory := false
	for _, cue := range a.lex.MandatoryCues {
		if strings.Contains(text, cue) {
			mandatory = true
			break
		}
	}
	switch {
	case mandatory && !prohibitive:
		return 1
	case prohibitive && !mandatory:
		return -1
	default:
		return 0
	}
}

// extractThresholds finds number+unit occurrences and classifies each as
// min, max or exact from the cue tokens inside a ±20-character window
// around the match.
func (a *Analyzer) extractThresholds(text, itemKey string) []threshold {
	runes := []rune(text)
	var out []threshold
	for _, loc := range a.thresholdRe.FindAllStringSubmatchIndex(text, -1) {
		value, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		if err != nil {
			continue
		}
		unit := canonicalUnit(text[loc[4]:loc[5]])

		start := len([]rune(text[:loc[0]])) - thresholdWindow
		if start < 0 {
			start = 0
		}
		end := len([]rune(text[:loc[1]])) + thresholdWindow
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])

		kind := thresholdExact
		isMin := containsAny(window, a.lex.MinCues)
		isMax := containsAny(window, a.lex.MaxCues)
		switch {
		case isMin && !isMax:
			kind = thresholdMin
		case isMax && !isMin:
			kind = thresholdMax
		}
		out = append(out, threshold{value: value, unit: unit, kind: kind, itemKey: itemKey})
	}
	return out
}

func canonicalUnit(u string) string {
	switch u {
	case "m²":
		return "m2"
	case "m³":
		return "m3"
	case "days":
		return "day"
	default:
		return u
	}
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

func (a *Analyzer) detectDirectiveConflicts(items []domain.EvidenceItem, polarities []int) []domain.Conflict {
	var positive, negative []string
	for i, p := range polarities {
		switch p {
		case 1:
			if len(positive) < directiveRefsSide {
				positive = append(positive, items[i].Key)
			}
		case -1:
			if len(negative) < directiveRefsSide {
				negative = append(negative, items[i].Key)
			}
		}
	}
	if len(positive) == 0 || len(negative) == 0 {
		return nil
	}
	return []domain.Conflict{{
		Type:         domain.ConflictDirective,
		Reason:       "evidence set mixes mandatory and prohibitive directives",
		EvidenceRefs: append(positive, negative...),
	}}
}

// detectThresholdConflicts raises one conflict per unit whose highest
// mandated floor exceeds its lowest mandated ceiling. Units are never
// converted (cm vs mm are distinct groups).
func (a *Analyzer) detectThresholdConflicts(thresholds []threshold) []domain.Conflict {
	type bound struct {
		value   float64
		itemKey string
		set     bool
	}
	maxMin := make(map[string]bound)
	minMax := make(map[string]bound)
	var units []string
	for _, th := range thresholds {
		switch th.kind {
		case thresholdMin:
			b := maxMin[th.unit]
			if !b.set || th.value > b.value {
				maxMin[th.unit] = bound{value: th.value, itemKey: th.itemKey, set: true}
			}
		case thresholdMax:
			b := minMax[th.unit]
			if !b.set || th.value < b.value {
				minMax[th.unit] = bound{value: th.value, itemKey: th.itemKey, set: true}
			}
		default:
			continue
		}
		if !containsString(units, th.unit) {
			units = append(units, th.unit)
		}
	}

	var out []domain.Conflict
	for _, unit := range units {
		floor, hasFloor := maxMin[unit]
		ceiling, hasCeiling := minMax[unit]
		if !hasFloor || !hasCeiling || floor.value <= ceiling.value {
			continue
		}
		refs := []string{floor.itemKey}
		if ceiling.itemKey != floor.itemKey {
			refs = append(refs, ceiling.itemKey)
		}
		out = append(out, domain.Conflict{
			Type: domain.ConflictThreshold,
			Reason: fmt.Sprintf("mandated minimum %s%s exceeds mandated maximum %s%s",
				formatNumber(floor.value), unit, formatNumber(ceiling.value), unit),
			EvidenceRefs: refs,
		})
	}
	return out
}

// tokenAgreement is the fraction of significant query tokens that occur
// in at least two distinct evidence texts. A query with no significant
// tokens scores the 0.5 neutral default.
func (a *Analyzer) tokenAgreement(query string, texts []string) float64 {
	tokens := a.queryTokens(query)
	if len(tokens) == 0 {
		return 0.5
	}
	agreed := 0
	for _, tok := range tokens {
		hits := 0
		for _, text := range texts {
			if strings.Contains(text, tok) {
				hits++
				if hits >= 2 {
					break
				}
			}
		}
		if hits >= 2 {
			agreed++
		}
	}
	return float64(agreed) / float64(len(tokens))
}

func (a *Analyzer) queryTokens(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, f := range fields {
		if len([]rune(f)) < 2 || containsString(a.lex.Stopwords, f) {
			continue
		}
		out = append(out, f)
		if len(out) == maxQueryTokens {
			break
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
