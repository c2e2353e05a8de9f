package evaluate

import (
	"fmt"
	"strings"
)

func categoryList(criteria CriteriaSet) string {
	var b strings.Builder
	for _, category := range criteria.Categories {
		fmt.Fprintf(&b, "- %s (0-10)\n", strings.ReplaceAll(category, "_", " "))
	}
	return b.String()
}

func scoresSchema(criteria CriteriaSet, key string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q: {", key)
	for i, category := range criteria.Categories {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: number", category)
	}
	b.WriteString("}")
	return b.String()
}

// comparisonInstruction asks the judge to score the generated and reference
// images side by side on the same rubric.
func comparisonInstruction(criteria CriteriaSet) string {
	var b strings.Builder
	b.WriteString("You are evaluating AI-generated stylized pet portraits for print-on-demand products. ")
	b.WriteString("You will receive two images: the generated portrait to evaluate, then a reference image representing the target quality.\n\n")
	b.WriteString("Rate BOTH images on each category from 0 (terrible) to 10 (perfect):\n")
	b.WriteString(categoryList(criteria))
	b.WriteString("\nReturn your response as exactly this JSON shape:\n")
	fmt.Fprintf(&b, "{\"analysis\": {\"overall_assessment\": string}, \"scores\": {%s, %s}}\n",
		scoresSchema(criteria, "image1"), scoresSchema(criteria, "image2"))
	b.WriteString("image1 is the generated portrait, image2 is the reference.")
	return b.String()
}

// standaloneInstruction asks the judge to score the generated image on its
// own merits, optionally against a free-text ideal target description.
func standaloneInstruction(criteria CriteriaSet, promptUsed, qualitySpec string) string {
	var b strings.Builder
	b.WriteString("You are evaluating an AI-generated stylized pet portrait for print-on-demand products. ")
	b.WriteString("You will receive the original pet photo for context and the generated portrait to evaluate.\n\n")
	if promptUsed != "" {
		fmt.Fprintf(&b, "Prompt used: %q\n\n", promptUsed)
	}
	if qualitySpec != "" {
		b.WriteString("Ideal target description:\n")
		b.WriteString(qualitySpec)
		b.WriteString("\n\nRate how well the generated image matches this ideal target.\n\n")
	}
	b.WriteString("Rate the generated image on each category from 0 (terrible) to 10 (perfect):\n")
	b.WriteString(categoryList(criteria))
	b.WriteString("\nReturn your response as exactly this JSON shape:\n")
	fmt.Fprintf(&b, "{\"analysis\": {\"overall_assessment\": string}, \"scores\": {%s}}", innerScores(criteria))
	return b.String()
}

func innerScores(criteria CriteriaSet) string {
	parts := make([]string, 0, len(criteria.Categories))
	for _, category := range criteria.Categories {
		parts = append(parts, fmt.Sprintf("%q: number", category))
	}
	return strings.Join(parts, ", ")
}

// similarityInstruction asks the judge for one overall resemblance score plus
// a fixed per-aspect breakdown against the reference set.
func similarityInstruction() string {
	return strings.Join([]string{
		"You are judging how closely an AI-generated pet portrait resembles a set of reference images.",
		"You will receive the generated portrait first, then the reference images.",
		"Rate the resemblance from 0 (nothing alike) to 10 (indistinguishable) overall and per aspect:",
		"- composition (0-10): framing, pose, and layout",
		"- style (0-10): rendering technique, palette, and finish",
		"- content (0-10): subject identity, markings, and details",
		"Return your response as exactly this JSON shape:",
		`{"analysis": {"overall_assessment": string}, "scores": {"overall": number, "composition": number, "style": number, "content": number}}`,
	}, "\n")
}
