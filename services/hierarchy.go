package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// Viewer roles, marketer at the bottom of the supervisory chain.
const (
	RoleMarketer    = "marketer"
	RoleAdmin       = "admin"
	RoleSuperAdmin  = "super-admin"
	RoleMasterAdmin = "master-admin"
)

// SeesEverything reports whether a role is scoped to the whole hierarchy
// rather than a resolved marketer set.
func SeesEverything(role string) bool {
	return role == RoleSuperAdmin || role == RoleMasterAdmin
}

// HierarchyResolver answers visibility and supervision questions against the
// external user service. The engine only reads the hierarchy, it never
// stores it.
type HierarchyResolver interface {
	// ResolveVisibleMarketers returns the marketer ids whose pickups the
	// viewer may see. A marketer sees only themselves.
	ResolveVisibleMarketers(ctx context.Context, viewerID, role string) ([]string, error)
	// Supervisor returns the admin currently supervising a marketer.
	Supervisor(ctx context.Context, marketerID string) (string, error)
	// DisplayName returns the human name for a user id, for event payloads.
	DisplayName(ctx context.Context, userID string) (string, error)
}

// HierarchyClient resolves hierarchy queries over HTTP against the user
// service.
type HierarchyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHierarchyClient creates a new HierarchyClient.
func NewHierarchyClient(baseURL string) *HierarchyClient {
	return &HierarchyClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type visibleMarketersResponse struct {
	MarketerIDs []string `json:"marketer_ids"`
}

type userResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	AdminID string `json:"admin_id"`
}

func (c *HierarchyClient) ResolveVisibleMarketers(ctx context.Context, viewerID, role string) ([]string, error) {
	if role == RoleMarketer {
		return []string{viewerID}, nil
	}

	endpoint := fmt.Sprintf("%s/users/%s/marketers?role=%s", c.baseURL, url.PathEscape(viewerID), url.QueryEscape(role))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user service returned %d", resp.StatusCode)
	}

	var out visibleMarketersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.MarketerIDs, nil
}

func (c *HierarchyClient) Supervisor(ctx context.Context, marketerID string) (string, error) {
	user, err := c.getUser(ctx, marketerID)
	if err != nil {
		return "", err
	}
	if user.AdminID == "" {
		return "", fmt.Errorf("marketer %s has no supervisor", marketerID)
	}
	return user.AdminID, nil
}

func (c *HierarchyClient) DisplayName(ctx context.Context, userID string) (string, error) {
	user, err := c.getUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Name, nil
}

func (c *HierarchyClient) getUser(ctx context.Context, userID string) (*userResponse, error) {
	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user service returned %d", resp.StatusCode)
	}

	var out userResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CachedHierarchyResolver is a read-through Redis cache in front of another
// resolver. Visibility sets change rarely relative to how often dashboards
// query them.
type CachedHierarchyResolver struct {
	inner HierarchyResolver
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedHierarchyResolver wraps inner with a Redis cache. A nil client
// disables caching.
func NewCachedHierarchyResolver(inner HierarchyResolver, rdb *redis.Client, ttl time.Duration) *CachedHierarchyResolver {
	return &CachedHierarchyResolver{inner: inner, rdb: rdb, ttl: ttl}
}

func (r *CachedHierarchyResolver) ResolveVisibleMarketers(ctx context.Context, viewerID, role string) ([]string, error) {
	if r.rdb == nil {
		return r.inner.ResolveVisibleMarketers(ctx, viewerID, role)
	}

	key := fmt.Sprintf("hierarchy:visible:%s:%s", role, viewerID)
	if data, err := r.rdb.Get(ctx, key).Result(); err == nil {
		var ids []string
		if err := json.Unmarshal([]byte(data), &ids); err == nil {
			return ids, nil
		}
	}

	ids, err := r.inner.ResolveVisibleMarketers(ctx, viewerID, role)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(ids); err == nil {
		r.rdb.Set(ctx, key, data, r.ttl)
	}
	return ids, nil
}

func (r *CachedHierarchyResolver) Supervisor(ctx context.Context, marketerID string) (string, error) {
	if r.rdb == nil {
		return r.inner.Supervisor(ctx, marketerID)
	}

	key := "hierarchy:supervisor:" + marketerID
	if admin, err := r.rdb.Get(ctx, key).Result(); err == nil && admin != "" {
		return admin, nil
	}

	admin, err := r.inner.Supervisor(ctx, marketerID)
	if err != nil {
		return "", err
	}
	r.rdb.Set(ctx, key, admin, r.ttl)
	return admin, nil
}

func (r *CachedHierarchyResolver) DisplayName(ctx context.Context, userID string) (string, error) {
	if r.rdb == nil {
		return r.inner.DisplayName(ctx, userID)
	}

	key := "hierarchy:name:" + userID
	if name, err := r.rdb.Get(ctx, key).Result(); err == nil && name != "" {
		return name, nil
	}

	name, err := r.inner.DisplayName(ctx, userID)
	if err != nil {
		return "", err
	}
	r.rdb.Set(ctx, key, name, r.ttl)
	return name, nil
}
