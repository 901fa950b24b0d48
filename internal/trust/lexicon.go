package trust

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the heuristic cue tokens and measurement units the
// analyzer scans for. The detection is deliberately language-mixed:
// the knowledge base carries Korean provision text alongside English
// standard excerpts.
type Lexicon struct {
	MandatoryCues   []string `yaml:"mandatory_cues"`
	ProhibitiveCues []string `yaml:"prohibitive_cues"`
	MinCues         []string `yaml:"min_cues"`
	MaxCues         []string `yaml:"max_cues"`
	Units           []string `yaml:"units"`
	Stopwords       []string `yaml:"stopwords"`
}

// DefaultLexicon returns the compiled-in cue lists. Downstream behavior
// (polarity, threshold classification) depends on these exact tokens;
// overrides extend rather than replace them.
func DefaultLexicon() Lexicon {
	return Lexicon{
		MandatoryCues: []string{
			"must", "shall", "required", "이상", "반드시", "하여야", "준수",
		},
		ProhibitiveCues: []string{
			"must not", "shall not", "prohibited", "금지", "불가", "하여서는 안",
		},
		MinCues: []string{"이상", "at least", "minimum", "최소"},
		MaxCues: []string{"이하", "at most", "maximum", "최대", "이내"},
		// Longer units first so the scanner never matches "m" inside "mm".
		Units: []string{
			"m²", "m³", "m2", "m3", "mm", "cm", "kg", "days", "day",
			"m", "t", "%", "일",
		},
		Stopwords: []string{
			"the", "and", "for", "with", "what", "when", "how", "are",
			"의", "및", "등", "에", "를", "을", "은", "는", "이", "가",
			"대한", "관련", "무엇", "어떻게",
		},
	}
}

// LoadLexicon reads cue overrides from a YAML file and appends them to
// the defaults. A missing path returns the defaults unchanged.
func LoadLexicon(path string) (Lexicon, error) {
	base := DefaultLexicon()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("trust: read lexicon %s: %w", path, err)
	}
	var extra Lexicon
	if err := yaml.Unmarshal(raw, &extra); err != nil {
		return base, fmt.Errorf("trust: parse lexicon %s: %w", path, err)
	}
	base.MandatoryCues = appendUnique(base.MandatoryCues, extra.MandatoryCues)
	base.ProhibitiveCues = appendUnique(base.ProhibitiveCues, extra.ProhibitiveCues)
	base.MinCues = appendUnique(base.MinCues, extra.MinCues)
	base.MaxCues = appendUnique(base.MaxCues, extra.MaxCues)
	base.Units = appendUnique(base.Units, extra.Units)
	base.Stopwords = appendUnique(base.Stopwords, extra.Stopwords)
	return base, nil
}

func appendUnique(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range extra {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		base = append(base, s)
	}
	return base
}
