// Package channel talks to the remote interview service: one-shot HTTP
// calls, the chat websocket and the video websocket.
package channel

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

// MaxResumeBytes caps the resume upload; the service rejects larger bodies.
const MaxResumeBytes = 10 << 20

type Client struct {
	apiBase string
	wsBase  string
	http    *http.Client
	dialer  *websocket.Dialer
	log     *logrus.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithDialer(d *websocket.Dialer) Option  { return func(c *Client) { c.dialer = d } }
func WithLogger(l *logrus.Logger) Option     { return func(c *Client) { c.log = l } }

// NewClient builds a client for apiBase (http/https) and wsBase (ws/wss).
// timeout bounds each one-shot call.
func NewClient(apiBase, wsBase string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		apiBase: strings.TrimRight(apiBase, "/"),
		wsBase:  strings.TrimRight(wsBase, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    logger.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Init(ctx context.Context, req models.SessionInitRequest) (*models.SessionInitResponse, error) {
	const op = "Client.Init"
	if strings.TrimSpace(req.ResumeBase64) == "" || strings.TrimSpace(req.CandidateName) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "resume and candidate name are required", nil)
	}
	var out models.SessionInitResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/session/init", req, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, utils.E(utils.CodeUnavailable, op, "service returned no session id", nil)
	}
	return &out, nil
}

func (c *Client) Start(ctx context.Context, sessionID string) (*models.StartResponse, error) {
	const op = "Client.Start"
	path := "/api/interview/start?session_id=" + url.QueryEscape(sessionID)
	var out models.StartResponse
	if err := c.doJSON(ctx, op, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitCode(ctx context.Context, sessionID, code string) (*models.SubmitCodeResponse, error) {
	const op = "Client.SubmitCode"
	var out models.SubmitCodeResponse
	err := c.doJSON(ctx, op, http.MethodPost, "/api/interview/code/submit",
		models.SubmitCodeRequest{SessionID: sessionID, Code: code}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) End(ctx context.Context, sessionID string) (*models.EndResponse, error) {
	const op = "Client.End"
	var out models.EndResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/interview/end", models.EndRequest{SessionID: sessionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "encode request", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, rd)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return utils.E(utils.CodeTimeout, op, "interview service timed out", err)
		}
		return utils.E(utils.CodeUnavailable, op, "interview service unreachable", err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"op":         op,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("rpc")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return utils.E(utils.CodeUnavailable, op, "malformed response", err)
	}
	return nil
}

// statusError turns a non-2xx reply into an AppError, using the service's
// {"detail": "..."} body when it has one.
func statusError(op string, status int, raw []byte) error {
	msg := http.StatusText(status)
	var apiErr models.APIError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Detail != "" {
		msg = apiErr.Detail
	}
	cause := fmt.Errorf("http %d", status)

	switch {
	case status == http.StatusNotFound:
		return utils.E(utils.CodeNotFound, op, msg, cause)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return utils.E(utils.CodeTimeout, op, msg, cause)
	case status == http.StatusConflict:
		return utils.E(utils.CodeConflict, op, msg, cause)
	case status >= 400 && status < 500:
		return utils.E(utils.CodeInvalidArgument, op, msg, cause)
	default:
		return utils.E(utils.CodeUnavailable, op, msg, cause)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// EncodeResume reads a PDF resume and returns it base64 encoded for the
// init call.
func EncodeResume(r io.Reader) (string, error) {
	const op = "EncodeResume"
	b, err := io.ReadAll(io.LimitReader(r, MaxResumeBytes+1))
	if err != nil {
		return "", utils.E(utils.CodeInvalidArgument, op, "read resume", err)
	}
	switch {
	case len(b) == 0:
		return "", utils.E(utils.CodeInvalidArgument, op, "resume is empty", nil)
	case len(b) > MaxResumeBytes:
		return "", utils.E(utils.CodeInvalidArgument, op, "resume exceeds 10MB", nil)
	case !bytes.HasPrefix(b, []byte("%PDF-")):
		return "", utils.E(utils.CodeInvalidArgument, op, "resume must be a PDF", nil)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
