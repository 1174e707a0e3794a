package model

import "time"

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ImageStatus tracks the independent image-curation sub-task of a job.
// It never influences the primary job status.
type ImageStatus string

const (
	ImageStatusNone      ImageStatus = "none"
	ImageStatusPending   ImageStatus = "pending"
	ImageStatusRunning   ImageStatus = "running"
	ImageStatusCompleted ImageStatus = "completed"
	ImageStatusFailed    ImageStatus = "failed"
)

// MediaRef points at a generated or curated media resource.
type MediaRef struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Source  string `json:"source,omitempty"`
}

// CrewJob is the durable record of one asynchronous generation run.
// All status mutation goes through the job use case; repositories only
// apply conditional updates on its behalf.
type CrewJob struct {
	ID                string
	UserID            string
	ConversationID    string // empty when the job is not conversation-linked
	Topic             string
	Platform          string
	AdditionalContext string
	Status            JobStatus
	ImageStatus       ImageStatus
	Result            string
	Images            []MediaRef
	ErrorMessage      string
	StartedAt         time.Time
	CompletedAt       *time.Time
	UpdatedAt         time.Time
}

func NewCrewJob(id, userID, conversationID, topic, platform, extra string) *CrewJob {
	now := time.Now()
	return &CrewJob{
		ID:                id,
		UserID:            userID,
		ConversationID:    conversationID,
		Topic:             topic,
		Platform:          platform,
		AdditionalContext: extra,
		Status:            JobStatusPending,
		ImageStatus:       ImageStatusNone,
		StartedAt:         now,
		UpdatedAt:         now,
	}
}

// CanTransition reports whether moving from the current status to `to`
// follows pending -> running -> {completed|failed}, with the pending -> failed
// fast-fail as the only skip.
func (j *CrewJob) CanTransition(to JobStatus) bool {
	switch j.Status {
	case JobStatusPending:
		return to == JobStatusRunning || to == JobStatusFailed
	case JobStatusRunning:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}
