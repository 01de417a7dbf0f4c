package models

import "time"

// Progress is the candidate's walk through the setup pages. It is kept
// between CLI invocations so each step can check the previous ones.
type Progress struct {
	CameraCheckCompleted bool       `json:"cameraCheckCompleted"`
	ResumeFileName       string     `json:"resumeFileName,omitempty"`
	SelectedJobType      string     `json:"selectedJobType,omitempty"`
	JobTitle             string     `json:"jobTitle,omitempty"`
	CandidateName        string     `json:"candidateName,omitempty"`
	SessionID            string     `json:"sessionId,omitempty"`
	AvatarURL            string     `json:"avatarUrl,omitempty"`
	InterviewCompleted   bool       `json:"interviewCompleted"`
	SessionExpiry        *time.Time `json:"sessionExpiry,omitempty"`

	AudioInput string `json:"audioInput,omitempty"`
	FrameInput string `json:"frameInput,omitempty"`
}

// Page is a step of the candidate flow guarded by Progress.
type Page string

const (
	PageDeviceCheck Page = "device-check"
	PageSetup       Page = "setup"
	PageInterview   Page = "interview"
	PageResults     Page = "results"
)
