package chapter

import (
	"encoding/json"
	"fmt"
	"strings"
)

const generateSystemPrompt = `You are a skilled teacher creating lessons for children aged 6-12. You turn photos of schoolwork, textbook pages or notes into a structured lesson. You always respond with a single JSON object and nothing else.`

func buildGenerateUserMessage(req GenerationRequest) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Subject: %s\n", req.Subject))
	b.WriteString(fmt.Sprintf("Grade: %d\n", req.GradeLevel))
	b.WriteString(fmt.Sprintf("Attached: %d image(s) of the source material.\n", len(req.Images)))

	b.WriteString(fmt.Sprintf(`
Instructions:
Study the attached images and create a lesson as one JSON object with this exact shape:
{"topic": string, "explanation": [string], "practice": [question], "test": [question]}
where a question is {"text": string, "options": [string, string, string, string], "answer": 0-3, "difficulty": "easy"|"medium"|"hard"}.

Rules:
1. "explanation" is 3-5 short paragraphs a grade-%d child can follow.
2. "practice" has exactly %d questions, "test" has exactly %d questions.
3. Every question has exactly 4 distinct options and exactly one correct answer, given as the index into "options".
4. Spread difficulty across the test set: include easy, medium and hard questions.
5. Respond with the JSON object only. No markdown, no commentary.`,
		req.GradeLevel, req.PracticeCount, req.TestCount))

	return b.String()
}

const verifySystemPrompt = `You are a meticulous educational content reviewer. You check children's lessons for correctness and clarity. You always respond with a single JSON object and nothing else.`

func buildVerifyUserMessage(content LessonContent) string {
	var b strings.Builder

	raw, _ := json.Marshal(content)
	b.WriteString("Lesson to review:\n")
	b.Write(raw)

	b.WriteString(fmt.Sprintf(`

Instructions:
Check that:
1. Every question has exactly one correct answer, and it is the one at the "answer" index.
2. Language is age-appropriate for children aged 6-12.
3. Questions and options are unambiguous.
4. There are exactly %d practice and %d test questions.
5. Difficulty is distributed across the test set.

Respond with {"pass": boolean, "issues": [string]} where "issues" describes every problem found. An empty issues list with "pass": true means the lesson is acceptable.`,
		PracticeCount, TestCount))

	return b.String()
}

const repairSystemPrompt = `You are a skilled teacher correcting a lesson for children aged 6-12 based on reviewer feedback. You always respond with a single JSON object and nothing else.`

func buildRepairUserMessage(content LessonContent, issues []string) string {
	var b strings.Builder

	raw, _ := json.Marshal(content)
	b.WriteString("Lesson to correct:\n")
	b.Write(raw)

	b.WriteString("\n\nReviewer issues:\n")
	for _, issue := range issues {
		b.WriteString(fmt.Sprintf("- %s\n", issue))
	}

	b.WriteString(fmt.Sprintf(`
Instructions:
Return the corrected lesson as one JSON object in exactly the same shape as the input: {"topic", "explanation", "practice", "test"}. Fix every issue listed above, keep everything that was not flagged, and keep exactly %d practice and %d test questions with 4 distinct options and one correct answer each. Respond with the JSON object only.`,
		PracticeCount, TestCount))

	return b.String()
}
