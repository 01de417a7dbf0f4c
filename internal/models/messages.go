package models

// Chat channel frame types.
const (
	MessageTypeMessage  = "message"
	MessageTypeResponse = "response"
	MessageTypeClosing  = "closing"
)

// OutboundMessage carries one answer to the remote service.
type OutboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// InboundMessage is a push from the remote service. Error is set by the
// service on failures ({"error": "..."}) instead of Type.
type InboundMessage struct {
	Type             string `json:"type"`
	Content          string `json:"content"`
	IsCodingQuestion bool   `json:"is_coding_question"`
	QuestionNumber   int    `json:"question_number,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Video channel sentinels.
const (
	FaceInFrame    = "face_in_frame"
	FaceOutOfFrame = "face_out_of_frame"
)

type SessionInitRequest struct {
	ResumeBase64   string `json:"resume_base64"`
	JobDescription string `json:"job_description"`
	CandidateName  string `json:"candidate_name"`
	JobRole        string `json:"job_role"`
}

type SessionInitResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type StartResponse struct {
	SessionID      string `json:"session_id,omitempty"`
	Opening        string `json:"opening"`
	QuestionNumber int    `json:"question_number,omitempty"`
}

type SubmitCodeRequest struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
}

type SubmitCodeResponse struct {
	Status   string  `json:"status,omitempty"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

type EndRequest struct {
	SessionID string `json:"session_id"`
}

type EndResponse struct {
	Status          string `json:"status,omitempty"`
	Closing         string `json:"closing"`
	ReportGenerated bool   `json:"report_generated,omitempty"`
	EmailSent       bool   `json:"email_sent,omitempty"`
}

// APIError is the remote service's error body.
type APIError struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code,omitempty"`
}
