package memory

import "github.com/avvvet/coffeebuddy/internal/models"

// FillerText is the assistant turn inserted between two user turns.
const FillerText = "Please go on."

// Normalize returns a copy of turns in which no two user turns are adjacent:
// a filler assistant turn is placed before every user turn that follows
// another user turn. Adjacent assistant turns are left as they are; the API
// only needs the user side fixed, since a failed model call is the only way
// a user turn goes unanswered.
func Normalize(turns []models.Turn) []models.Turn {
	out := make([]models.Turn, 0, len(turns))

	var last models.Role
	for _, t := range turns {
		if t.Role == models.RoleUser && last == models.RoleUser {
			out = append(out, models.Turn{Role: models.RoleAssistant, Content: FillerText})
		}
		out = append(out, t)
		last = t.Role
	}

	return out
}
