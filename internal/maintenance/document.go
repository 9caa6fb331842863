package maintenance

import (
	"encoding/json"
	"time"
)

// actionRecord is the JSON shape of one action in a structured document
// snapshot: flat, JSON-tagged, timestamps in RFC3339. state and result are
// the numeric wire codes (see Action.State and Result.Code), not their
// string names, so an external consumer of this format doesn't have to
// parse strings for a machine check.
type actionRecord struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	State     int    `json:"state"`
	Progress  uint64 `json:"progress"`
	Result    int    `json:"result"`
	ResultMsg string `json:"result_message,omitempty"`

	Description string `json:"description"`

	CreatedAt  string `json:"created_at"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// toStructuredDocument renders actions (already in admission order) as a
// JSON array, the "structured document" the spec's diagnostics surface
// calls for.
func toStructuredDocument(actions []*Action) ([]byte, error) {
	records := make([]actionRecord, 0, len(actions))
	for _, a := range actions {
		res := a.Result()
		records = append(records, actionRecord{
			ID:          a.ID(),
			Name:        a.name(),
			State:       int(a.State()),
			Progress:    a.Progress(),
			Result:      res.Code,
			ResultMsg:   res.Message,
			Description: a.Description().String(),
			CreatedAt:   formatTime(a.CreatedAt()),
			StartedAt:   formatTime(a.StartedAt()),
			FinishedAt:  formatTime(a.FinishedAt()),
		})
	}
	return json.Marshal(records)
}
