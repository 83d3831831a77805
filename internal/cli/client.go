package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из domain, CLI не импортирует internal/*) ---

// Property — выражение в конфигурации узла.
type Property struct {
	Value string `json:"value,omitempty"`
	Type  string `json:"type,omitempty"`
}

// NodeResponse — узел из API.
type NodeResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Action       string   `json:"action,omitempty"`
	ResourceID   string   `json:"resource_id,omitempty"`
	ResourceExpr Property `json:"resource_expr,omitempty"`
	Command      string   `json:"command,omitempty"`
	Options      Property `json:"options,omitempty"`
	Image        Property `json:"image,omitempty"`
	PullImage    bool     `json:"pull_image,omitempty"`
	Wires        []string `json:"wires,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// DispatchResponse — dispatch из API.
type DispatchResponse struct {
	ID               string         `json:"id"`
	NodeID           string         `json:"node_id"`
	State            string         `json:"state"`
	Input            map[string]any `json:"input,omitempty"`
	Action           string         `json:"action,omitempty"`
	Outcome          string         `json:"outcome,omitempty"`
	Emitted          int            `json:"emitted"`
	Error            string         `json:"error,omitempty"`
	IdempotencyKey   string         `json:"idempotency_key,omitempty"`
	SourceDispatchID string         `json:"source_dispatch_id,omitempty"`
	StartedAt        string         `json:"started_at,omitempty"`
	FinishedAt       string         `json:"finished_at,omitempty"`
	CreatedAt        string         `json:"created_at"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID             string         `json:"id"`
	NodeID         string         `json:"node_id"`
	Name           string         `json:"name"`
	CronExpr       string         `json:"cron_expr,omitempty"`
	IntervalSec    int            `json:"interval_sec,omitempty"`
	Timezone       string         `json:"timezone"`
	Enabled        bool           `json:"enabled"`
	NextDueAt      string         `json:"next_due_at,omitempty"`
	LastRunAt      string         `json:"last_run_at,omitempty"`
	LastDispatchID string         `json:"last_dispatch_id,omitempty"`
	Message        map[string]any `json:"message,omitempty"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// ActionInfo — описание действия вида ресурса.
type ActionInfo struct {
	Action         string `json:"action"`
	Mode           string `json:"mode"`
	Label          string `json:"label"`
	TargetOptional bool   `json:"target_optional"`
}

// ApplyResponse — результат apply.
type ApplyResponse struct {
	Nodes []NodeResponse `json:"nodes"`
}

// --- Request types ---

// NodeRequest — создание узла.
type NodeRequest struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Action       string   `json:"action,omitempty"`
	ResourceID   string   `json:"resource_id,omitempty"`
	ResourceExpr Property `json:"resource_expr,omitempty"`
	Command      string   `json:"command,omitempty"`
	Options      Property `json:"options,omitempty"`
}

// InjectRequest — сообщение для узла.
type InjectRequest struct {
	Message        map[string]any `json:"message,omitempty"`
	Payload        any            `json:"payload,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	Message     map[string]any `json:"message,omitempty"`
}

// UpdateScheduleRequest — обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string         `json:"name,omitempty"`
	CronExpr    *string         `json:"cron_expr,omitempty"`
	IntervalSec *int            `json:"interval_sec,omitempty"`
	Timezone    *string         `json:"timezone,omitempty"`
	Message     *map[string]any `json:"message,omitempty"`
}

// ListDispatchesOpts — параметры фильтрации dispatch.
type ListDispatchesOpts struct {
	NodeID string
	State  string
	Limit  int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Dockflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Nodes ---

// ListNodes возвращает узлы. Если kind не пустой — фильтрует.
func (c *Client) ListNodes(kind string) ([]NodeResponse, error) {
	params := url.Values{}
	if kind != "" {
		params.Set("kind", kind)
	}

	var nodes []NodeResponse
	err := c.list("/api/v1/nodes", params, &nodes)
	return nodes, err
}

// CreateNode создаёт узел.
func (c *Client) CreateNode(req NodeRequest) (*NodeResponse, error) {
	var node NodeResponse
	err := c.post("/api/v1/nodes", req, &node)
	return &node, err
}

// GetNode возвращает узел по ID.
func (c *Client) GetNode(id string) (*NodeResponse, error) {
	var node NodeResponse
	err := c.get("/api/v1/nodes/"+id, &node)
	return &node, err
}

// DeleteNode удаляет узел.
func (c *Client) DeleteNode(id string) error {
	return c.delete("/api/v1/nodes/" + id)
}

// ApplyNodes отправляет набор узлов (YAML или JSON) как есть.
func (c *Client) ApplyNodes(bundle []byte) (*ApplyResponse, error) {
	var resp ApplyResponse
	err := c.doData(http.MethodPost, "/api/v1/nodes/apply", rawBody(bundle), &resp)
	return &resp, err
}

// Inject отправляет сообщение в узел.
func (c *Client) Inject(nodeID string, req InjectRequest) (*DispatchResponse, error) {
	var d DispatchResponse
	err := c.post("/api/v1/nodes/"+nodeID+"/inject", req, &d)
	return &d, err
}

// --- Dispatches ---

// ListDispatches возвращает dispatch с фильтрацией.
func (c *Client) ListDispatches(opts ListDispatchesOpts) ([]DispatchResponse, error) {
	params := url.Values{}
	if opts.NodeID != "" {
		params.Set("node_id", opts.NodeID)
	}
	if opts.State != "" {
		params.Set("state", opts.State)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var dispatches []DispatchResponse
	err := c.list("/api/v1/dispatches", params, &dispatches)
	return dispatches, err
}

// GetDispatch возвращает dispatch по ID.
func (c *Client) GetDispatch(id string) (*DispatchResponse, error) {
	var d DispatchResponse
	err := c.get("/api/v1/dispatches/"+id, &d)
	return &d, err
}

// --- Schedules ---

// ListSchedules возвращает schedules. Если nodeID не пустой — фильтрует.
func (c *Client) ListSchedules(nodeID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if nodeID != "" {
		params.Set("node_id", nodeID)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule для узла.
func (c *Client) CreateSchedule(nodeID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/nodes/"+nodeID+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// UpdateSchedule обновляет schedule.
func (c *Client) UpdateSchedule(id string, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id, req, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// SetScheduleEnabled включает или выключает schedule.
func (c *Client) SetScheduleEnabled(id string, enabled bool) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": enabled}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- Discovery ---

// ListActions возвращает таблицу действий вида ресурса.
func (c *Client) ListActions(kind string) ([]ActionInfo, error) {
	var infos []ActionInfo
	err := c.list("/api/v1/actions/"+kind, nil, &infos)
	return infos, err
}

// SearchContainers возвращает список контейнеров Docker Engine как есть.
func (c *Client) SearchContainers(options map[string]any) (json.RawMessage, error) {
	return c.search("/containerSearch", options)
}

// SearchVolumes возвращает список томов Docker Engine как есть.
func (c *Client) SearchVolumes(options map[string]any) (json.RawMessage, error) {
	return c.search("/volumeSearch", options)
}

func (c *Client) search(path string, options map[string]any) (json.RawMessage, error) {
	resp, err := c.do(http.MethodPost, path, map[string]any{"options": options})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return raw, nil
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

// rawBody отправляется без JSON-кодирования.
type rawBody []byte

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	contentType := "application/json"
	if raw, ok := body.(rawBody); ok {
		bodyReader = bytes.NewReader(raw)
		contentType = "application/yaml"
	} else if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
