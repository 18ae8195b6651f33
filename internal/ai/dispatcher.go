package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"buscador-gpt/internal/model"
	"buscador-gpt/internal/platform/logger"
)

const (
	DefaultTimeout = 15 * time.Second

	maxResponseBytes = 4 << 20
)

// Sender turns a conversation history into a single assistant reply.
type Sender interface {
	Send(ctx context.Context, history []model.Message, modelHint string) (string, error)
}

// Prober reports whether the chat backend is alive.
type Prober interface {
	Health(ctx context.Context) (bool, error)
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatEnvelope struct {
	Reply        *string         `json:"reply"`
	Model        string          `json:"model,omitempty"`
	Usage        json.RawMessage `json:"usage,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Error        string          `json:"error,omitempty"`
	Detail       string          `json:"detail,omitempty"`
}

type DispatcherConfig struct {
	Endpoint    string
	Model       string
	Temperature float64
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration
	Retry   RetryPolicy
}

// Dispatcher posts the conversation to a single endpoint resolved at
// construction. It keeps no per-call state: concurrent sends are independent.
type Dispatcher struct {
	endpoint    string
	model       string
	temperature float64
	timeout     time.Duration
	retry       RetryPolicy
	client      Doer
	log         *logger.Logger
}

func NewDispatcher(cfg DispatcherConfig, client Doer, log *logger.Logger) (*Dispatcher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, configurationError("chat endpoint is not configured")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, configurationError(fmt.Sprintf("chat endpoint %q is not a valid URL", endpoint))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		endpoint:    endpoint,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		retry:       cfg.Retry.withDefaults(),
		client:      client,
		log:         log.With("component", "dispatcher"),
	}, nil
}

func (d *Dispatcher) Endpoint() string {
	return d.endpoint
}

// Send returns the reply of the remote model or a *DispatchError.
func (d *Dispatcher) Send(ctx context.Context, history []model.Message, modelHint string) (string, error) {
	if len(history) == 0 {
		return "", &DispatchError{Kind: ErrProtocol, Message: "conversation history is empty"}
	}
	modelName := strings.TrimSpace(modelHint)
	if modelName == "" {
		modelName = d.model
	}
	payload := chatRequest{
		Messages:    make([]ChatMessage, 0, len(history)),
		Model:       modelName,
		Temperature: d.temperature,
	}
	for _, msg := range history {
		payload.Messages = append(payload.Messages, ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &DispatchError{Kind: ErrProtocol, Message: "encode chat request failed", Err: err}
	}

	var reply string
	attempts, err := d.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		d.log.Debug("dispatch sending", "attempt", attempt, "model", modelName, "messages", len(payload.Messages))
		r, err := d.attempt(ctx, body)
		if err != nil {
			if attempt <= d.retry.MaxRetries && d.retry.Retryable(err) {
				d.log.Debug("dispatch retrying", "attempt", attempt, "error", err.Error())
			}
			return err
		}
		reply = r
		return nil
	})
	if err != nil {
		var de *DispatchError
		if !errors.As(err, &de) {
			de = &DispatchError{Kind: ErrTransport, Message: err.Error(), Err: err}
		}
		de.Attempts = attempts
		d.log.Warn("dispatch failed", "attempts", attempts, "status", de.Status, "error", de.Error())
		return "", de
	}
	d.log.Debug("dispatch succeeded", "attempts", attempts)
	return reply, nil
}

func (d *Dispatcher) attempt(ctx context.Context, body []byte) (string, error) {
	actx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &DispatchError{Kind: ErrConfiguration, Message: "build chat request failed", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", d.callError(actx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", d.callError(actx, err)
	}

	var env chatEnvelope
	jsonErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(raw))
		if jsonErr == nil && env.Error != "" {
			detail = joinDetail(env.Error, env.Detail)
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return "", &DispatchError{
			Kind:    ErrProtocol,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("chat endpoint returned HTTP %d: %s", resp.StatusCode, truncate(detail, 300)),
		}
	}
	if jsonErr != nil {
		return "", &DispatchError{
			Kind:    ErrProtocol,
			Status:  resp.StatusCode,
			Message: "chat endpoint returned a response that is not JSON",
			Err:     jsonErr,
		}
	}
	if env.Error != "" {
		return "", &DispatchError{
			Kind:    ErrProtocol,
			Status:  resp.StatusCode,
			Message: joinDetail(env.Error, env.Detail),
		}
	}
	if env.Reply == nil {
		return "", &DispatchError{
			Kind:    ErrProtocol,
			Status:  resp.StatusCode,
			Message: "chat endpoint response has no reply",
		}
	}
	if strings.TrimSpace(*env.Reply) == "" {
		return "", &DispatchError{
			Kind:    ErrProtocol,
			Status:  resp.StatusCode,
			Message: "chat endpoint returned an empty reply",
		}
	}
	return *env.Reply, nil
}

func (d *Dispatcher) callError(actx context.Context, err error) error {
	if errors.Is(actx.Err(), context.DeadlineExceeded) {
		return &DispatchError{
			Kind:    ErrTimeout,
			Message: fmt.Sprintf("chat endpoint did not answer within %s", d.timeout),
			Err:     err,
		}
	}
	return &DispatchError{
		Kind:    ErrTransport,
		Message: "could not reach the chat endpoint: " + err.Error(),
		Err:     err,
	}
}

// Health probes GET <endpoint>/health. It is never called on the send path.
func (d *Dispatcher) Health(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(d.endpoint, "/")+"/health", nil)
	if err != nil {
		return false, fmt.Errorf("build health request failed: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false, d.callError(ctx, err)
	}
	defer resp.Body.Close()

	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&parsed); err != nil {
		return false, &DispatchError{Kind: ErrProtocol, Status: resp.StatusCode, Message: "health response is not JSON", Err: err}
	}
	return parsed.OK && resp.StatusCode < 300, nil
}

func joinDetail(msg, detail string) string {
	if detail == "" {
		return msg
	}
	return msg + ": " + detail
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
