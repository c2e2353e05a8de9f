package evaluate

import (
	"errors"
	"strings"
	"testing"
)

func TestClampScoreBounds(t *testing.T) {
	cases := []struct {
		in    float64
		want  float64
		delta float64
	}{
		{-3, 0, 3},
		{15, 10, 5},
		{7.4, 7.4, 0},
		{0, 0, 0},
		{10, 10, 0},
	}
	for _, tc := range cases {
		got, delta := clampScore(tc.in)
		if got != tc.want || delta != tc.delta {
			t.Fatalf("clampScore(%v) = (%v, %v), want (%v, %v)", tc.in, got, delta, tc.want, tc.delta)
		}
	}
}

func TestAnnotateClamp(t *testing.T) {
	if got := annotateClamp("raw output", 0); got != "raw output" {
		t.Fatalf("no clamp must leave the output untouched, got %q", got)
	}
	got := annotateClamp("raw output", 7)
	if !strings.Contains(got, "raw output") || !strings.Contains(got, "7.00") {
		t.Fatalf("annotation must keep the output and record the amount, got %q", got)
	}
}

func TestParseCriteriaScoresStrictJSON(t *testing.T) {
	raw := `{"analysis": {"overall_assessment": "good"}, "scores": {"pet_likeness": 8, "visual_appeal": 9.5, "technical_execution": 7, "composition_proportion": 6, "gift_marketability": 8}}`
	scores, clamp, err := parseCriteriaScores(raw, simplifiedCriteria)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if clamp != 0 {
		t.Fatalf("unexpected clamp amount %v", clamp)
	}
	if scores["visual_appeal"] != 9.5 {
		t.Fatalf("visual_appeal = %v, want 9.5", scores["visual_appeal"])
	}
	if len(scores) != 5 {
		t.Fatalf("scores len = %d, want 5", len(scores))
	}
}

func TestParseCriteriaScoresCodeFence(t *testing.T) {
	raw := "```json\n{\"scores\": {\"pet_likeness\": 12, \"visual_appeal\": -1}}\n```"
	scores, clamp, err := parseCriteriaScores(raw, simplifiedCriteria)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// 12 loses 2 and -1 gains 1.
	if clamp != 3 {
		t.Fatalf("clamp amount = %v, want 3", clamp)
	}
	if scores["pet_likeness"] != 10 || scores["visual_appeal"] != 0 {
		t.Fatalf("scores not clamped: %v", scores)
	}
}

func TestParseCriteriaScoresNumericFallback(t *testing.T) {
	raw := "pet likeness 8, visual appeal 7, technical execution 9"
	scores, _, err := parseCriteriaScores(raw, simplifiedCriteria)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if scores["pet_likeness"] != 8 || scores["visual_appeal"] != 7 || scores["technical_execution"] != 9 {
		t.Fatalf("fallback scores wrong: %v", scores)
	}
}

func TestParseCriteriaScoresRefusal(t *testing.T) {
	raw := "I'm sorry, I cannot evaluate this image."
	_, _, err := parseCriteriaScores(raw, simplifiedCriteria)
	if !errors.Is(err, ErrEvaluationDeclined) {
		t.Fatalf("err = %v, want ErrEvaluationDeclined", err)
	}
}

func TestParseCriteriaScoresUnparseable(t *testing.T) {
	_, _, err := parseCriteriaScores("no numbers at all", simplifiedCriteria)
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("err = %v, want ErrUnparseable", err)
	}
}

func TestParsePairedScores(t *testing.T) {
	raw := `Here are the scores:
{"scores": {"image1": {"pet_likeness": 9, "visual_appeal": 8, "technical_execution": 8, "composition_proportion": 7, "gift_marketability": 9}, "image2": {"pet_likeness": 8, "visual_appeal": 8, "technical_execution": 9, "composition_proportion": 8, "gift_marketability": 8}}}`
	gen, ref, clamp, err := parsePairedScores(raw, simplifiedCriteria)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if clamp != 0 {
		t.Fatalf("unexpected clamp amount %v", clamp)
	}
	if len(gen) != 5 || len(ref) != 5 {
		t.Fatalf("score maps incomplete: gen=%d ref=%d", len(gen), len(ref))
	}
	if gen["pet_likeness"] != 9 || ref["pet_likeness"] != 8 {
		t.Fatalf("unexpected values: %v %v", gen, ref)
	}
}

func TestParsePairedScoresMissingImage(t *testing.T) {
	raw := `{"scores": {"image1": {"pet_likeness": 9}}}`
	_, _, _, err := parsePairedScores(raw, simplifiedCriteria)
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("err = %v, want ErrUnparseable", err)
	}
}

func TestNormalizeScoreDifference(t *testing.T) {
	if got := normalizeScoreDifference(0); got != 5 {
		t.Fatalf("equal totals should map to 5, got %v", got)
	}
	if got := normalizeScoreDifference(40); got <= 5 {
		t.Fatalf("positive difference should exceed 5, got %v", got)
	}
	if got := normalizeScoreDifference(-40); got >= 5 {
		t.Fatalf("negative difference should undercut 5, got %v", got)
	}
}

func TestCriteriaForNameFallback(t *testing.T) {
	if got := CriteriaForName("bogus"); got.Name != "comprehensive" {
		t.Fatalf("unknown name should fall back to comprehensive, got %s", got.Name)
	}
	if got := CriteriaForName("artistic"); len(got.Categories) != 6 {
		t.Fatalf("artistic set should have 6 categories, got %d", len(got.Categories))
	}
}
