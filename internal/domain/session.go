package domain

import "time"

// Rating holds the two axis values a wizard collects for one item.
// Meaning Audit uses importance/fulfillment on [1,10]; Domain Exploration
// maps aliveness/neglect onto the same two axes on [1,5].
type Rating struct {
	Importance  int `json:"importance"`
	Fulfillment int `json:"fulfillment"`
}

// ChatMessage is one entry of a laddering transcript. Transcripts are
// append-only while a session is live and immutable once persisted.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Experiences holds the three free-text peak experience prompts.
type Experiences struct {
	Alive    string `json:"alive"`
	Useful   string `json:"useful"`
	Yourself string `json:"yourself"`
}

// Experiment holds the 90-day experiment design fields.
type Experiment struct {
	Action               string `json:"action"`
	StartDate            string `json:"start_date"`
	CheckInDate          string `json:"check_in_date"`
	AccountabilityPerson string `json:"accountability_person"`
}

// Session is one persisted attempt of a module. Identity is (UserID, ID);
// ids are caller-generated and never reused. Once CompletedAt is set the
// record is terminal: no module re-opens a completed session.
type Session struct {
	ID          SessionID
	Type        ModuleType
	Status      SessionStatus
	LastUpdated time.Time
	CompletedAt time.Time // zero value means "not completed"

	// Wizard progress, zero when the module has no step structure.
	ProgressStep int
	TotalSteps   int

	// Type-specific payload. Only the fields a module writes are set.
	Ratings     map[string]Rating
	Messages    []ChatMessage
	Draft       string
	Experiences *Experiences
	Reflection  string
	Experiment  *Experiment
}

// Completed reports whether the session is terminal.
func (s *Session) Completed() bool {
	return s.Status == StatusCompleted || !s.CompletedAt.IsZero()
}

// Fields flattens the record into the document-field representation used
// for merge writes and the telemetry mirror. Only set fields appear, so a
// merge write overwrites nothing the caller did not supply.
func (s *Session) Fields() map[string]any {
	f := map[string]any{
		"type":        string(s.Type),
		"lastUpdated": s.LastUpdated,
	}
	if s.Status != "" {
		f["status"] = string(s.Status)
	}
	if !s.CompletedAt.IsZero() {
		f["completedAt"] = s.CompletedAt
	}
	if s.TotalSteps > 0 {
		f["progressStep"] = s.ProgressStep
		f["totalSteps"] = s.TotalSteps
	}
	if s.Ratings != nil {
		ratings := make(map[string]any, len(s.Ratings))
		for k, v := range s.Ratings {
			ratings[k] = map[string]any{
				"importance":  v.Importance,
				"fulfillment": v.Fulfillment,
			}
		}
		f["ratings"] = ratings
	}
	if s.Messages != nil {
		msgs := make([]any, 0, len(s.Messages))
		for _, m := range s.Messages {
			msgs = append(msgs, map[string]any{
				"role":    string(m.Role),
				"content": m.Content,
			})
		}
		f["messages"] = msgs
	}
	if s.Draft != "" {
		f["draft"] = s.Draft
	}
	if s.Experiences != nil {
		f["experiences"] = map[string]any{
			"alive":    s.Experiences.Alive,
			"useful":   s.Experiences.Useful,
			"yourself": s.Experiences.Yourself,
		}
	}
	if s.Reflection != "" {
		f["reflection"] = s.Reflection
	}
	if s.Experiment != nil {
		f["experiment"] = map[string]any{
			"action":               s.Experiment.Action,
			"startDate":            s.Experiment.StartDate,
			"checkInDate":          s.Experiment.CheckInDate,
			"accountabilityPerson": s.Experiment.AccountabilityPerson,
		}
	}
	return f
}

// TelemetryRecord is the redacted, anonymized copy of a session payload.
// Write-only: the application never reads these back.
type TelemetryRecord struct {
	ClientID   string
	CapturedAt time.Time
	Fields     map[string]any
}
