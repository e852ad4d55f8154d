package workflow

import (
	"fmt"
	"strings"
	"time"
)

// RenderPlainText produces a deterministic human-readable rendering of a
// result. Platforms appear in fixed order; identical results render
// identically.
func RenderPlainText(r *WorkflowResult) string {
	var b strings.Builder

	b.WriteString("CONTENT PLAN\n")
	b.WriteString("============\n\n")

	if len(r.KeyPoints) > 0 {
		b.WriteString("Key Points:\n")
		for _, kp := range r.KeyPoints {
			fmt.Fprintf(&b, "  - %s (%.1f)\n", kp.Text, kp.Importance)
		}
		b.WriteString("\n")
	}

	for _, platform := range AllPlatforms {
		post, ok := r.Posts[platform]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "--- %s ---\n", strings.ToUpper(string(platform)))
		b.WriteString(post.PrimaryText)
		b.WriteString("\n")
		for i, t := range post.Thread {
			fmt.Fprintf(&b, "  %d/ %s\n", i+2, t)
		}
		if len(post.Hashtags) > 0 {
			fmt.Fprintf(&b, "Hashtags: %s\n", strings.Join(post.Hashtags, " "))
		}
		if len(post.Mentions) > 0 {
			fmt.Fprintf(&b, "Mentions: %s\n", strings.Join(post.Mentions, " "))
		}
		if post.Notes != "" {
			fmt.Fprintf(&b, "Notes: %s\n", post.Notes)
		}

		if review, ok := r.Reviews[platform]; ok {
			fmt.Fprintf(&b, "Review: %s\n", review.Status)
			for _, issue := range review.Issues {
				fmt.Fprintf(&b, "  [%s] %s\n", issue.Severity, issue.Message)
			}
		}
		if claims, ok := r.Claims[platform]; ok && len(claims) > 0 {
			b.WriteString("Claims:\n")
			for _, c := range claims {
				fmt.Fprintf(&b, "  - %s (severity %s, confidence %.2f)\n", c.Text, c.Severity, c.Confidence)
				for _, src := range c.Sources {
					fmt.Fprintf(&b, "      %s (%.2f) %s\n", src.Title, src.Credibility, src.URL)
				}
			}
		}
		b.WriteString("\n")
	}

	if len(r.Timings) > 0 {
		b.WriteString("Schedule:\n")
		for _, t := range r.Timings {
			fmt.Fprintf(&b, "  %-10s %s  %s\n", t.Platform, t.LocalTime.Format(time.RFC3339), t.Rationale)
		}
		b.WriteString("\n")
	}

	if len(r.Errors) > 0 {
		b.WriteString("Degraded stages:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  ! %s\n", e)
		}
	}

	return b.String()
}
