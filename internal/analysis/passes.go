// Package analysis orchestrates the three-pass paper analysis against a
// remote language model: prompt selection, the chat-completion call, reply
// sanitation, and validation of the parsed result.
package analysis

import "fmt"

// Pass is one of the three fixed analytical depths applied to a paper.
type Pass int

const (
	// PassOverview is the first skim: structure, conclusions, the five C's.
	PassOverview Pass = 1
	// PassContent is the second read: figures, statistics, main thrust.
	PassContent Pass = 2
	// PassDepth is the third read: virtual re-implementation and critique.
	PassDepth Pass = 3
)

// Valid reports whether p is one of the three defined passes.
func (p Pass) Valid() bool {
	return p >= PassOverview && p <= PassDepth
}

// Each template describes the analytical task and dictates the exact JSON
// shape the model must return. The shapes are the wire contract with the
// front end; changing them breaks rendering.
var passTemplates = map[Pass]string{
	PassOverview: `Analyze this research paper for a first pass reading. Focus on:
1. Title, abstract, and introduction analysis
2. Section and sub-section headings
3. Conclusions
4. References overview

Then answer the five C's:
1. Category: What type of paper is this?
2. Context: Which other papers is it related to?
3. Correctness: Do the assumptions appear valid?
4. Contributions: What are the paper's main contributions?
5. Clarity: Is the paper well written?

Format your response as a structured JSON object with the following format:
{
    "overview": {
        "title_analysis": "...",
        "abstract_analysis": "...",
        "introduction_analysis": "..."
    },
    "structure": {
        "sections": [...],
        "subsections": [...]
    },
    "conclusions": "...",
    "references": "...",
    "five_cs": {
        "category": "...",
        "context": "...",
        "correctness": "...",
        "contributions": "...",
        "clarity": "..."
    }
}`,

	PassContent: `Perform a second pass analysis of this research paper. Focus on:
1. Detailed analysis of figures, diagrams, and illustrations
2. Evaluation of graphs and statistical significance
3. Main thrust of the paper with supporting evidence
4. Key technical concepts and terminology
5. Relevant references for further reading

Format your response as a structured JSON object with the following format:
{
    "visual_analysis": {
        "figures": [...],
        "diagrams": [...],
        "graphs": [...]
    },
    "statistical_analysis": "...",
    "main_thrust": {
        "key_arguments": [...],
        "supporting_evidence": [...]
    },
    "technical_concepts": [...],
    "key_references": [...]
}`,

	PassDepth: `Perform a deep third pass analysis of this research paper. Focus on:
1. Virtual re-implementation of the paper
2. Identification and analysis of assumptions
3. Critical evaluation of methodologies
4. Comparison with potential alternative approaches
5. Strong and weak points
6. Potential future work directions

Format your response as a structured JSON object with the following format:
{
    "implementation": {
        "key_steps": [...],
        "challenges": [...]
    },
    "assumptions": {
        "explicit": [...],
        "implicit": [...]
    },
    "methodology_evaluation": "...",
    "alternative_approaches": [...],
    "evaluation": {
        "strengths": [...],
        "weaknesses": [...]
    },
    "future_work": [...]
}`,
}

// passRequiredKeys lists the top-level keys a parsed reply must carry to
// count as matching the pass schema.
var passRequiredKeys = map[Pass][]string{
	PassOverview: {"overview", "structure", "conclusions", "references", "five_cs"},
	PassContent:  {"visual_analysis", "statistical_analysis", "main_thrust", "technical_concepts", "key_references"},
	PassDepth:    {"implementation", "assumptions", "methodology_evaluation", "alternative_approaches", "evaluation", "future_work"},
}

// passTemplate returns the instruction template for p. An unknown pass is a
// caller bug and surfaces as an error before any network traffic.
func passTemplate(p Pass) (string, error) {
	tmpl, ok := passTemplates[p]
	if !ok {
		return "", fmt.Errorf("no template for pass %d", p)
	}
	return tmpl, nil
}

// missingKeys returns the required top-level keys absent from data, in the
// schema's declared order.
func missingKeys(p Pass, data map[string]interface{}) []string {
	var missing []string
	for _, key := range passRequiredKeys[p] {
		if _, ok := data[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
