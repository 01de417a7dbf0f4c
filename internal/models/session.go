package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session identifies one interview attempt. The id is issued by the
// remote service on init.
type Session struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID     string             `bson:"session_id" json:"session_id"`
	CandidateName string             `bson:"candidate_name" json:"candidate_name"`
	JobRole       string             `bson:"job_role" json:"job_role"`
	AvatarURL     string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`

	StartedAt *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"` // first successful start
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}

// Duration is zero until the session has both started and ended.
func (s Session) Duration() time.Duration {
	if s.StartedAt == nil || s.EndedAt == nil {
		return 0
	}
	d := s.EndedAt.Sub(*s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Report is what gets archived once a session ends.
type Report struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Session    Session            `bson:"session" json:"session"`
	Status     string             `bson:"status" json:"status"` // active|ended
	Transcript []TranscriptEntry  `bson:"transcript" json:"transcript"`
	Proctoring ProctoringCounters `bson:"proctoring" json:"proctoring"`
	EndReason  string             `bson:"end_reason,omitempty" json:"end_reason,omitempty"`

	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	DurationSeconds int64     `bson:"duration_seconds" json:"duration_seconds"`
}
