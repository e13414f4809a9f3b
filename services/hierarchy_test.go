package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pickup-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchyClient_ResolveVisibleMarketers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/admin-1/marketers", r.URL.Path)
		assert.Equal(t, "admin", r.URL.Query().Get("role"))
		json.NewEncoder(w).Encode(map[string][]string{
			"marketer_ids": {"marketer-a", "marketer-b"},
		})
	}))
	defer srv.Close()

	client := services.NewHierarchyClient(srv.URL)
	ids, err := client.ResolveVisibleMarketers(context.Background(), "admin-1", services.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"marketer-a", "marketer-b"}, ids)
}

func TestHierarchyClient_MarketerSeesOnlySelf(t *testing.T) {
	// No server: a marketer's scope never leaves the process.
	client := services.NewHierarchyClient("http://user-service.invalid")
	ids, err := client.ResolveVisibleMarketers(context.Background(), "marketer-a", services.RoleMarketer)
	require.NoError(t, err)
	assert.Equal(t, []string{"marketer-a"}, ids)
}

func TestHierarchyClient_SupervisorAndName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/marketer-a":
			json.NewEncoder(w).Encode(map[string]string{
				"id": "marketer-a", "name": "Ada", "admin_id": "admin-1",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := services.NewHierarchyClient(srv.URL)

	admin, err := client.Supervisor(context.Background(), "marketer-a")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", admin)

	name, err := client.DisplayName(context.Background(), "marketer-a")
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)

	_, err = client.Supervisor(context.Background(), "marketer-z")
	assert.Error(t, err)
}

func TestHierarchyClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := services.NewHierarchyClient(srv.URL)
	_, err := client.ResolveVisibleMarketers(context.Background(), "admin-1", services.RoleAdmin)
	assert.Error(t, err)
}
