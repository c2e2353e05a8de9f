package evaluate

import "strings"

// CriteriaSet names the rubric categories a judge scores per image. Each
// category is rated 0-10.
type CriteriaSet struct {
	Name       string
	Categories []string
}

// MaxTotal is the highest achievable criteria sum for this set.
func (c CriteriaSet) MaxTotal() float64 {
	return float64(len(c.Categories)) * 10
}

var comprehensiveCriteria = CriteriaSet{
	Name: "comprehensive",
	Categories: []string{
		"pet_likeness", "pose_expression", "art_style_consistency",
		"color_harmony", "background_quality", "technical_execution",
		"visual_appeal", "composition_proportion", "detail_balance", "gift_marketability",
	},
}

var simplifiedCriteria = CriteriaSet{
	Name: "simplified",
	Categories: []string{
		"pet_likeness", "visual_appeal", "technical_execution",
		"composition_proportion", "gift_marketability",
	},
}

var artisticCriteria = CriteriaSet{
	Name: "artistic",
	Categories: []string{
		"art_style_consistency", "color_harmony", "visual_appeal",
		"technical_execution", "composition_proportion", "creative_interpretation",
	},
}

// CriteriaForName resolves a configured criteria set name. Unknown names fall
// back to the comprehensive set.
func CriteriaForName(name string) CriteriaSet {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case simplifiedCriteria.Name:
		return simplifiedCriteria
	case artisticCriteria.Name:
		return artisticCriteria
	default:
		return comprehensiveCriteria
	}
}
