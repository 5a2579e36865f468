package assessment

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BaSui01/roundtable/types"
)

// Rating keys as they appear in the runtime's answer.
const (
	KeySelfImportance      = "SELF_IMPORTANCE"
	KeyPerceivedGap        = "PERCEIVED_GAP"
	KeyUniquePerspective   = "UNIQUE_PERSPECTIVE"
	KeyEmotionalInvestment = "EMOTIONAL_INVESTMENT"
	KeyExpertiseRelevance  = "EXPERTISE_RELEVANCE"
	KeyUrgency             = "URGENCY"
	KeyGroupImportance     = "GROUP_IMPORTANCE"
)

// Keys lists the rating keys in prompt order.
var Keys = []string{
	KeySelfImportance,
	KeyPerceivedGap,
	KeyUniquePerspective,
	KeyEmotionalInvestment,
	KeyExpertiseRelevance,
	KeyUrgency,
	KeyGroupImportance,
}

var (
	linePattern   = regexp.MustCompile(`^\s*[-*#>]*\s*([A-Za-z_][A-Za-z0-9 _*-]*?)\s*\**\s*[:=]\s*(.*)$`)
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// Parse extracts the seven ratings from raw runtime text. Unparsable or
// missing values become NeutralScore; all values are clamped. It fails only
// when no rating key is recognized at all.
func Parse(raw string) (Scores, error) {
	values := make(map[string]float64, len(Keys))
	found := 0

	for _, line := range strings.Split(raw, "\n") {
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := normalizeKey(m[1])
		if !isKey(key) {
			continue
		}
		if _, seen := values[key]; seen {
			continue
		}
		values[key] = parseValue(m[2])
		found++
	}

	if found == 0 {
		return Scores{}, types.NewError(types.ErrAssessmentFailure, "no ratings found in assessment output")
	}

	get := func(k string) float64 {
		if v, ok := values[k]; ok {
			return v
		}
		return NeutralScore
	}
	return Scores{
		SelfImportance:      get(KeySelfImportance),
		PerceivedGap:        get(KeyPerceivedGap),
		UniquePerspective:   get(KeyUniquePerspective),
		EmotionalInvestment: get(KeyEmotionalInvestment),
		ExpertiseRelevance:  get(KeyExpertiseRelevance),
		Urgency:             get(KeyUrgency),
		GroupImportance:     get(KeyGroupImportance),
	}.Clamped(), nil
}

func normalizeKey(k string) string {
	k = strings.Trim(k, "* ")
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	return strings.ToUpper(k)
}

func isKey(k string) bool {
	for _, known := range Keys {
		if k == known {
			return true
		}
	}
	return false
}

func parseValue(s string) float64 {
	tok := numberPattern.FindString(s)
	if tok == "" {
		return NeutralScore
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return NeutralScore
	}
	return clamp(v)
}
