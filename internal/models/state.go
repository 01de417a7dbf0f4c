package models

// InterviewState is the coordinator's lifecycle state.
type InterviewState string

const (
	StateIdle           InterviewState = "idle"
	StateStarting       InterviewState = "starting"
	StateSpeaking       InterviewState = "speaking"
	StateListening      InterviewState = "listening"
	StateAwaitingAnswer InterviewState = "awaiting_answer"
	StateCodingPending  InterviewState = "coding_pending"
	StateEnded          InterviewState = "ended"
)

// Active reports whether the session has been started and not yet ended.
func (s InterviewState) Active() bool {
	return s != StateIdle && s != StateEnded
}

// ProctoringCounters are advisory violation counts for one session.
type ProctoringCounters struct {
	FullscreenExits int `bson:"fullscreen_exits" json:"fullscreen_exit_count"`
	TabSwitches     int `bson:"tab_switches" json:"tab_switch_count"`
}

// ProctoringStatus is the display view of the monitor.
type ProctoringStatus struct {
	ProctoringCounters
	FullscreenActive bool  `json:"fullscreen_active"`
	FacePresent      *bool `json:"face_present,omitempty"` // nil until the video channel reports
	OutOfFrameMS     int64 `json:"out_of_frame_ms"`
}
