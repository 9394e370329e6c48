// Package inject renders session context into textual blocks for
// classification and generation requests. Sections are labeled, ordered,
// and omitted entirely when their data is absent; a fully empty context
// renders to an empty string so prompts never carry placeholder noise.
package inject

import (
	"fmt"
	"strings"

	"github.com/fairwaylabs/caddie/internal/session"
)

// BuildPrompt renders the full context block: round info, current
// position, last shot, last recommendation, and up to the last
// [session.MaxHistoryTurns] conversation turns as "Role: content" lines.
func BuildPrompt(c *session.Context) string {
	if c.Empty() {
		return ""
	}

	var sb strings.Builder

	if c.Round != nil {
		sb.WriteString("## Round\n")
		fmt.Fprintf(&sb, "Course: %s (started %s)\n", c.Round.Course, c.Round.StartedAt.Format("15:04"))
	}

	if c.Hole != nil {
		sb.WriteString("## Position\n")
		fmt.Fprintf(&sb, "Hole %d\n", *c.Hole)
	}

	if c.LastShot != nil {
		sb.WriteString("## Last shot\n")
		writeShot(&sb, c.LastShot)
	}

	if c.LastRecommendation != "" {
		sb.WriteString("## Last recommendation\n")
		sb.WriteString(c.LastRecommendation)
		sb.WriteString("\n")
	}

	if len(c.History) > 0 {
		sb.WriteString("## Conversation\n")
		for _, t := range c.History {
			fmt.Fprintf(&sb, "%s: %s\n", roleLabel(t.Role), t.Content)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func writeShot(sb *strings.Builder, shot *session.Shot) {
	if shot.Club != "" {
		fmt.Fprintf(sb, "Club: %s\n", shot.Club)
	}
	if shot.Lie != "" {
		fmt.Fprintf(sb, "Lie: %s\n", shot.Lie)
	}
	if shot.MissDirection != "" {
		fmt.Fprintf(sb, "Miss: %s\n", shot.MissDirection)
	}
	if shot.Pressure {
		sb.WriteString("Pressure: yes\n")
	}
	if shot.Notes != "" {
		fmt.Fprintf(sb, "Notes: %s\n", shot.Notes)
	}
}

func roleLabel(r session.Role) string {
	if r == session.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// BuildSummary renders a compact single-line summary of the session, or
// "no active session" when there is nothing to summarize.
func BuildSummary(c *session.Context) string {
	if c.Empty() {
		return "no active session"
	}

	var parts []string
	if c.Round != nil {
		parts = append(parts, c.Round.Course)
	}
	if c.Hole != nil {
		parts = append(parts, fmt.Sprintf("hole %d", *c.Hole))
	}
	if c.LastShot != nil && c.LastShot.Club != "" {
		parts = append(parts, "last shot "+c.LastShot.Club)
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d turns of conversation", len(c.History)))
	}
	return strings.Join(parts, ", ")
}

// BuildFollowUpContext renders only the most recent user/assistant
// exchange, for cheap follow-up classification. Returns "" when either
// side of that pair is missing.
func BuildFollowUpContext(c *session.Context) string {
	if c == nil || len(c.History) == 0 {
		return ""
	}

	var lastAssistant, lastUser *session.Turn
	for i := len(c.History) - 1; i >= 0; i-- {
		t := c.History[i]
		if t.Role == session.RoleAssistant && lastAssistant == nil {
			lastAssistant = &c.History[i]
			continue
		}
		if t.Role == session.RoleUser && lastAssistant != nil {
			lastUser = &c.History[i]
			break
		}
	}
	if lastUser == nil || lastAssistant == nil {
		return ""
	}

	return fmt.Sprintf("User: %s\nAssistant: %s", lastUser.Content, lastAssistant.Content)
}
