package domain

type UserID string
type SessionID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ModuleType identifies one self-contained reflection exercise.
type ModuleType string

const (
	ModuleMeaningAudit      ModuleType = "meaning_audit"
	ModuleLadderingAI       ModuleType = "laddering_ai"
	ModulePeakExperience    ModuleType = "peak_experience"
	ModuleDomainExploration ModuleType = "domain_exploration"
	ModuleContribution      ModuleType = "contribution"
	ModuleMTPDraft          ModuleType = "mtp_draft"
	ModuleExperiment90Days  ModuleType = "experiment_90_days"
)

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)
