package interview

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/channel"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/proctor"
)

// Remote is the interview service as the coordinator sees it.
type Remote interface {
	Start(ctx context.Context, sessionID string) (*models.StartResponse, error)
	SubmitCode(ctx context.Context, sessionID, code string) (*models.SubmitCodeResponse, error)
	End(ctx context.Context, sessionID string) (*models.EndResponse, error)
	DialChat(ctx context.Context, sessionID string, h channel.ChatHandlers) (channel.Chat, error)
}

// Speech is the speech I/O adapter; see speech.Adapter.
type Speech interface {
	Speak(text string, onEnd func(err error))
	CancelSpeech()
	StartListening() error
	StopListening() string
	OnWindowEnd(fn func(text string))
	Heard() string
	Close() error
}

// VideoOpener starts the optional video channel, reporting face presence.
type VideoOpener func(ctx context.Context, onFace func(present bool)) (io.Closer, error)

// ProgressMarker records that the interview finished so the results page
// becomes reachable.
type ProgressMarker interface {
	MarkCompleted(ctx context.Context, sessionID string) error
}

// ReportRecorder archives the ended session.
type ReportRecorder interface {
	Record(ctx context.Context, r *models.Report) error
}

type Deps struct {
	Remote  Remote
	Speech  Speech
	Monitor *proctor.Monitor

	// Optional
	Video    VideoOpener
	Progress ProgressMarker
	Reports  ReportRecorder
	Log      *logrus.Logger
	Now      func() time.Time

	// OnEvent receives state, transcript and channel notifications. It is
	// called with the coordinator lock held: it must not block or call back
	// into the coordinator.
	OnEvent func(Event)
}

type EventType string

const (
	EventState      EventType = "state"
	EventTranscript EventType = "transcript"
	EventChannel    EventType = "channel"
)

type Event struct {
	Type    EventType               `json:"type"`
	State   models.InterviewState   `json:"state,omitempty"`
	Entry   *models.TranscriptEntry `json:"entry,omitempty"`
	Message string                  `json:"message,omitempty"`
	At      time.Time               `json:"at"`
}

// Summary is shown on the exit dialog and the results page.
type Summary struct {
	SessionID  string                    `json:"session_id"`
	Reason     string                    `json:"reason"`
	Duration   time.Duration             `json:"duration"`
	Questions  int                       `json:"questions"`
	Answers    int                       `json:"answers"`
	Closing    string                    `json:"closing,omitempty"`
	Proctoring models.ProctoringCounters `json:"proctoring"`
	Activity   []string                  `json:"activity,omitempty"`
}

// Snapshot is a consistent copy of the coordinator's observable state.
type Snapshot struct {
	State           models.InterviewState    `json:"state"`
	Session         models.Session           `json:"session"`
	Transcript      []models.TranscriptEntry `json:"transcript"`
	Proctoring      models.ProctoringStatus  `json:"proctoring"`
	PendingQuestion bool                     `json:"pending_question"`
	Draft           string                   `json:"draft,omitempty"`
	Heard           string                   `json:"heard,omitempty"`
	SubmittingCode  bool                     `json:"submitting_code"`
	SendingAnswer   bool                     `json:"sending_answer"`
	ChannelLost     bool                     `json:"channel_lost"`
}
