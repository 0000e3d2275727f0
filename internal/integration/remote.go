package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/valter-silva-au/priority-os/pkg/models"
)

// ErrRemoteUnavailable is wrapped by every SyncGateway failure so callers can
// fall back to local state with a single errors.Is check.
var ErrRemoteUnavailable = errors.New("remote unavailable")

// RemoteError is returned when the remote authority answers with a non-2xx
// status. It unwraps to ErrRemoteUnavailable.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned status %d", e.Status)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return ErrRemoteUnavailable
}

// SyncGateway talks to the remote authoritative task service. Each call makes
// exactly one request; retries are the caller's decision.
type SyncGateway interface {
	// Pull fetches every task. It reports false, never an error, when the
	// remote is unreachable or the payload is not a task list, meaning the
	// caller should keep using its local snapshot.
	Pull(ctx context.Context) ([]models.Task, bool)
	// Push creates a task remotely and returns the stored record.
	Push(ctx context.Context, task models.Task) (models.Task, error)
	// PushUpdate applies a partial update remotely.
	PushUpdate(ctx context.Context, id int, patch models.TaskPatch) (models.Task, error)
	// AutoSchedule asks the remote to pick a slot for the task.
	AutoSchedule(ctx context.Context, id int, minutes *int) (models.Task, error)
}

type httpSyncGateway struct {
	baseURL string
	client  *http.Client
}

// NewSyncGateway creates a SyncGateway for the service rooted at baseURL,
// e.g. "http://localhost:8000/api". A nil client uses a client with no
// timeout: deadlines come from the caller's context.
func NewSyncGateway(baseURL string, client *http.Client) SyncGateway {
	if client == nil {
		client = &http.Client{}
	}
	return &httpSyncGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (g *httpSyncGateway) Pull(ctx context.Context) ([]models.Task, bool) {
	var raw json.RawMessage
	if err := g.do(ctx, http.MethodGet, "/tasks", nil, &raw); err != nil {
		return nil, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var tasks []models.Task
	if err := json.Unmarshal(trimmed, &tasks); err != nil {
		return nil, false
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, true
}

func (g *httpSyncGateway) Push(ctx context.Context, task models.Task) (models.Task, error) {
	var out models.Task
	if err := g.do(ctx, http.MethodPost, "/tasks", task, &out); err != nil {
		return models.Task{}, fmt.Errorf("pushing task %d: %w", task.ID, err)
	}
	return out, nil
}

func (g *httpSyncGateway) PushUpdate(ctx context.Context, id int, patch models.TaskPatch) (models.Task, error) {
	var out models.Task
	if err := g.do(ctx, http.MethodPatch, "/tasks/"+strconv.Itoa(id), patch, &out); err != nil {
		return models.Task{}, fmt.Errorf("pushing update for task %d: %w", id, err)
	}
	return out, nil
}

func (g *httpSyncGateway) AutoSchedule(ctx context.Context, id int, minutes *int) (models.Task, error) {
	path := "/tasks/" + strconv.Itoa(id) + "/auto_schedule"
	if minutes != nil {
		path += "?" + url.Values{"minutes": {strconv.Itoa(*minutes)}}.Encode()
	}
	var out models.Task
	if err := g.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return models.Task{}, fmt.Errorf("auto-scheduling task %d remotely: %w", id, err)
	}
	return out, nil
}

// do sends one JSON request and decodes a 2xx response into out. Every
// failure wraps ErrRemoteUnavailable.
func (g *httpSyncGateway) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encoding request: %v", ErrRemoteUnavailable, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrRemoteUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrRemoteUnavailable, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"detail": "..."} from an error
// body, falling back to the trimmed body text.
func errorMessage(body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(body))
}
