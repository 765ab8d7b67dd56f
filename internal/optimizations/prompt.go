package optimizations

import (
	"fmt"
	"strings"
)

// Section labels the model is instructed to emit and the parser locates.
const (
	labelResume      = "OPTIMIZED RESUME"
	labelSuggestions = "SUGGESTIONS"
	labelScore       = "MATCH SCORE"
)

const (
	// Head-of-text bound per input; postings and resumes front-load the
	// relevant content.
	maxPromptInputRunes = 12000
	// Bound for the cleanse pass over raw scraped postings.
	maxCleanseInputRunes = 8000
)

// Prompt carries the instruction payload and whether either input was cut to
// fit the provider's input limit.
type Prompt struct {
	Text            string
	JobTruncated    bool
	ResumeTruncated bool
}

// BuildPrompt combines job posting and resume text into a single instruction
// payload. Pure function of its inputs.
func BuildPrompt(jobText, resumeText string) Prompt {
	job, jobTruncated := truncateRunes(jobText, maxPromptInputRunes)
	resume, resumeTruncated := truncateRunes(resumeText, maxPromptInputRunes)

	var b strings.Builder
	b.WriteString(`You are an expert resume writer. Given a job posting and a current resume, rewrite the resume so that it:
1. Highlights skills and experiences most relevant to the job
2. Uses keywords from the job posting appropriately
3. Stays truthful - only reorganize and emphasize existing content, never invent experience
4. Follows best resume practices

Job Posting:
`)
	b.WriteString(job)
	b.WriteString("\n\nCurrent Resume:\n")
	b.WriteString(resume)
	b.WriteString(fmt.Sprintf(`

Respond with exactly these three labeled sections, in this order:

%s:
<the full rewritten resume text>

%s:
<a numbered list of the specific improvements made, most important first>

%s:
<a single number between 0 and 1 indicating how well the resume matches the job>

Do not add any other sections.`, labelResume, labelSuggestions, labelScore))

	return Prompt{
		Text:            b.String(),
		JobTruncated:    jobTruncated,
		ResumeTruncated: resumeTruncated,
	}
}

// BuildCleansePrompt asks the model to strip boilerplate from a scraped job
// posting, keeping only the content worth matching a resume against.
func BuildCleansePrompt(rawPosting string) string {
	raw, _ := truncateRunes(rawPosting, maxCleanseInputRunes)

	var b strings.Builder
	b.WriteString(`Extract only the relevant job posting information from the following webpage content.
Remove boilerplate such as equal-opportunity statements, cookie policies, navigation menus, footers, legal disclaimers, and generic company marketing text.
Keep the job title, description, responsibilities, required and nice-to-have qualifications, salary or benefits information, location, and job type.

Raw webpage content:
`)
	b.WriteString(raw)
	b.WriteString("\n\nReturn only the cleaned job posting content, nothing else.")
	return b.String()
}

// truncateRunes keeps the head of s up to limit runes and reports whether
// anything was cut.
func truncateRunes(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}
