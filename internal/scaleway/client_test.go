package scaleway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresToken(t *testing.T) {
	_, err := New("", "", nil)
	require.Error(t, err)
}

func TestListInstances(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/instance/v1/zones/fr-par-1/servers", r.URL.Path)
		assert.Equal(t, "secret-token", r.Header.Get("X-Auth-Token"))
		assert.Equal(t, "25", r.URL.Query().Get("per_page"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "stopped", r.URL.Query().Get("state"))
		assert.Equal(t, "proj-1", r.URL.Query().Get("project"))

		json.NewEncoder(w).Encode(map[string]any{
			"servers": []map[string]any{
				{
					"id": "srv-1", "name": "web-1", "state": "stopped",
					"commercial_type": "DEV1-S", "private_ip": "10.0.0.4",
					"zone": "fr-par-1", "tags": []string{"web"},
				},
				{
					"id": "srv-2", "name": "web-2", "state": "stopped",
					"commercial_type": "DEV1-M", "private_ip": nil,
					"zone": "fr-par-1",
				},
			},
		})
	}))
	defer ts.Close()

	c, err := New(ts.URL, "secret-token", ts.Client())
	require.NoError(t, err)

	resp, err := c.ListInstances(context.Background(), ListInstancesParams{
		Zone: "fr-par-1", PerPage: 25, Page: 2, Project: "proj-1", State: "stopped",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, "srv-1", resp.Instances[0].ID)
	assert.Equal(t, "10.0.0.4", resp.Instances[0].PrivateIP)
	assert.Equal(t, []string{"web"}, resp.Instances[0].Tags)
	// Absent fields normalize rather than coming back null.
	assert.Equal(t, []string{}, resp.Instances[1].Tags)
	assert.Empty(t, resp.Instances[1].PrivateIP)
}

func TestListInstancesDefaults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "running", r.URL.Query().Get("state"))
		assert.Empty(t, r.URL.Query().Get("project"))
		json.NewEncoder(w).Encode(map[string]any{"servers": []any{}})
	}))
	defer ts.Close()

	c, err := New(ts.URL, "secret-token", ts.Client())
	require.NoError(t, err)

	resp, err := c.ListInstances(context.Background(), ListInstancesParams{Zone: "nl-ams-1"})
	require.NoError(t, err)
	assert.Zero(t, resp.TotalCount)
}

func TestGetInstance(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/instance/v1/zones/fr-par-1/servers/srv-9", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"server": map[string]any{
				"id": "srv-9", "name": "db-1", "state": "running",
				"commercial_type": "GP1-S", "zone": "fr-par-1",
			},
		})
	}))
	defer ts.Close()

	c, err := New(ts.URL, "secret-token", ts.Client())
	require.NoError(t, err)

	resp, err := c.GetInstance(context.Background(), "fr-par-1", "srv-9")
	require.NoError(t, err)
	assert.Equal(t, "db-1", resp.Instance.Name)
	assert.Equal(t, "running", resp.Instance.State)
}

func TestPerformAction(t *testing.T) {
	var payload map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/instance/v1/zones/pl-waw-1/servers/srv-3/action", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(map[string]any{
			"task": map[string]any{
				"id": "task-1", "description": "server_reboot", "progress": 0,
				"status": "pending", "zone": "pl-waw-1",
			},
		})
	}))
	defer ts.Close()

	c, err := New(ts.URL, "secret-token", ts.Client())
	require.NoError(t, err)

	resp, err := c.PerformAction(context.Background(), ActionParams{
		Zone: "pl-waw-1", ServerID: "srv-3", Action: "reboot",
		// Backup-only fields must not leak into other actions.
		Name: "ignored", Volumes: map[string]any{"v": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "task-1", resp.Task.ID)
	assert.Equal(t, "pending", resp.Task.Status)
	assert.Equal(t, map[string]any{"action": "reboot"}, payload)
}

func TestPerformActionBackupPayload(t *testing.T) {
	var payload map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(map[string]any{"task": map[string]any{"id": "task-2"}})
	}))
	defer ts.Close()

	c, err := New(ts.URL, "secret-token", ts.Client())
	require.NoError(t, err)

	_, err = c.PerformAction(context.Background(), ActionParams{
		Zone: "fr-par-1", ServerID: "srv-1", Action: "backup",
		Name:    "nightly",
		Volumes: map[string]any{"vol-1": map[string]any{"volume_type": "snapshot"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "backup", payload["action"])
	assert.Equal(t, "nightly", payload["name"])
	assert.Contains(t, payload["volumes"], "vol-1")
}

func TestAPIErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer ts.Close()

	c, err := New(ts.URL, "bad-token", ts.Client())
	require.NoError(t, err)

	_, err = c.GetInstance(context.Background(), "fr-par-1", "srv-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "invalid token")
}
