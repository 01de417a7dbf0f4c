package models

import (
	"strings"
)

// Job is one entry of the job catalog the candidate picks from.
type Job struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	Level       string   `json:"level"`
}

// FormatDescription renders the job as the structured text the interview
// service expects in job_description.
func (j Job) FormatDescription() string {
	var b strings.Builder
	b.WriteString("Job Title: ")
	b.WriteString(j.Title)
	b.WriteString("\n\nLevel: ")
	b.WriteString(j.Level)
	b.WriteString("\n\nDescription:\n")
	b.WriteString(j.Description)
	b.WriteString("\n\nRequired Skills:\n")
	for i, s := range j.Skills {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(s)
	}
	return strings.TrimSpace(b.String())
}
