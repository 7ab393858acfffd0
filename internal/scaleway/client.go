// Package scaleway provides a minimal client for the Scaleway Instance API,
// covering the operations the instance tool server exposes.
package scaleway

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
	"time"
)

// DefaultBaseURL is the public Scaleway API endpoint.
const DefaultBaseURL = "https://api.scaleway.com"

// Zones lists the availability zones the API accepts.
var Zones = []string{
	"fr-par-1", "fr-par-2", "fr-par-3",
	"nl-ams-1", "nl-ams-2", "nl-ams-3",
	"pl-waw-1", "pl-waw-2", "pl-waw-3",
}

// Actions lists the server actions the API accepts.
var Actions = []string{
	"poweron", "poweroff", "stop_in_place", "reboot",
	"backup", "terminate", "enable_routed_ip",
}

// Client is an HTTP client for the Scaleway Instance API. Credentials are
// passed in explicitly; the package never reads the process environment.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New returns a client authenticated with token. If httpClient is nil, a
// default with a 15s timeout is used.
func New(baseURL, token string, httpClient *http.Client) (*Client, error) {
	if token == "" {
		return nil, errors.New("scaleway: auth token required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, HTTP: httpClient}, nil
}

// Instance is a normalized view of one server.
type Instance struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	State          string   `json:"state"`
	CommercialType string   `json:"commercial_type"`
	PrivateIP      string   `json:"private_ip,omitempty"`
	Zone           string   `json:"zone"`
	Tags           []string `json:"tags"`
}

// Task tracks an asynchronous instance action.
type Task struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	Progress     int    `json:"progress"`
	StartedAt    string `json:"started_at,omitempty"`
	TerminatedAt string `json:"terminated_at,omitempty"`
	Status       string `json:"status"`
	HrefFrom     string `json:"href_from,omitempty"`
	HrefResult   string `json:"href_result,omitempty"`
	Zone         string `json:"zone"`
}

// ListInstancesParams filters a ListInstances call. Zone is required.
type ListInstancesParams struct {
	Zone    string
	PerPage int
	Page    int
	Project string
	State   string
}

// ListInstancesResponse is the structured result of ListInstances.
type ListInstancesResponse struct {
	Instances  []Instance `json:"instances"`
	TotalCount int        `json:"total_count"`
}

// InstanceDetailResponse is the structured result of GetInstance.
type InstanceDetailResponse struct {
	Instance Instance `json:"instance"`
}

// ActionParams describes one instance action. Name and Volumes apply only to
// backup; DisableIPv6 only to enable_routed_ip.
type ActionParams struct {
	Zone        string
	ServerID    string
	Action      string
	Name        string
	Volumes     map[string]any
	DisableIPv6 *bool
}

// ActionResponse is the structured result of PerformAction.
type ActionResponse struct {
	Task Task `json:"task"`
}

// ListInstances lists instances in one availability zone.
func (c *Client) ListInstances(ctx context.Context, p ListInstancesParams) (*ListInstancesResponse, error) {
	if p.PerPage <= 0 {
		p.PerPage = 50
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.State == "" {
		p.State = "running"
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(p.PerPage))
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("state", p.State)
	if p.Project != "" {
		q.Set("project", p.Project)
	}

	var body struct {
		Servers []json.RawMessage `json:"servers"`
	}
	path := fmt.Sprintf("/instance/v1/zones/%s/servers", p.Zone)
	if err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}

	instances := make([]Instance, 0, len(body.Servers))
	for _, raw := range body.Servers {
		inst, err := decodeInstance(raw)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return &ListInstancesResponse{Instances: instances, TotalCount: len(instances)}, nil
}

// GetInstance fetches one instance by id.
func (c *Client) GetInstance(ctx context.Context, zone, serverID string) (*InstanceDetailResponse, error) {
	var body struct {
		Server json.RawMessage `json:"server"`
	}
	path := fmt.Sprintf("/instance/v1/zones/%s/servers/%s", zone, serverID)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	inst, err := decodeInstance(body.Server)
	if err != nil {
		return nil, err
	}
	return &InstanceDetailResponse{Instance: inst}, nil
}

// PerformAction runs an action (poweron, poweroff, reboot, ...) on an
// instance and returns the resulting task.
func (c *Client) PerformAction(ctx context.Context, p ActionParams) (*ActionResponse, error) {
	payload := map[string]any{"action": p.Action}
	if p.Action == "backup" {
		if p.Name != "" {
			payload["name"] = p.Name
		}
		if p.Volumes != nil {
			payload["volumes"] = p.Volumes
		}
	}
	if p.Action == "enable_routed_ip" && p.DisableIPv6 != nil {
		payload["disable_ipv6"] = *p.DisableIPv6
	}

	var body struct {
		Task Task `json:"task"`
	}
	path := fmt.Sprintf("/instance/v1/zones/%s/servers/%s/action", p.Zone, p.ServerID)
	if err := c.do(ctx, http.MethodPost, path, payload, &body); err != nil {
		return nil, err
	}
	return &ActionResponse{Task: body.Task}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("scaleway: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("scaleway: build request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("scaleway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("scaleway: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("scaleway: decode response: %w", err)
	}
	return nil
}

func decodeInstance(raw json.RawMessage) (Instance, error) {
	var server struct {
		ID             string   `json:"id"`
		Name           string   `json:"name"`
		State          string   `json:"state"`
		CommercialType string   `json:"commercial_type"`
		PrivateIP      string   `json:"private_ip"`
		Zone           string   `json:"zone"`
		Tags           []string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &server); err != nil {
		return Instance{}, fmt.Errorf("scaleway: decode server: %w", err)
	}
	if server.Tags == nil {
		server.Tags = []string{}
	}
	return Instance{
		ID:             server.ID,
		Name:           server.Name,
		State:          server.State,
		CommercialType: server.CommercialType,
		PrivateIP:      server.PrivateIP,
		Zone:           server.Zone,
		Tags:           server.Tags,
	}, nil
}
