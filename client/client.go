package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"signcast/logger"
	"signcast/model"
)

// CreatePlaylistRequest is the payload for creating a playlist.
type CreatePlaylistRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schedule    *model.Schedule `json:"schedule,omitempty"`
}

// UpdatePlaylistRequest carries metadata changes. Nil fields are left
// untouched by the backend.
type UpdatePlaylistRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	IsActive    *bool           `json:"isActive,omitempty"`
	Schedule    *model.Schedule `json:"schedule,omitempty"`
}

// AddItemRequest adds a media entity to a playlist. Position nil appends.
type AddItemRequest struct {
	MediaID  string `json:"mediaId"`
	Position *int   `json:"position,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// UpdateItemRequest changes per-item settings.
type UpdateItemRequest struct {
	Duration *int `json:"duration,omitempty"`
}

// ReorderRequest carries the full new item sequence.
type ReorderRequest struct {
	ItemIDs []string `json:"itemIds"`
}

// ScreensRequest names screens to assign or unassign.
type ScreensRequest struct {
	ScreenIDs []string `json:"screenIds"`
}

// API is the backend CRUD collaborator. Every call returns the
// authoritative entity or a structured *APIError.
type API interface {
	ListPlaylists(ctx context.Context, filters model.PlaylistFilters, page, limit int) (*model.PlaylistPage, error)
	GetPlaylist(ctx context.Context, id string) (*model.Playlist, error)
	CreatePlaylist(ctx context.Context, req CreatePlaylistRequest) (*model.Playlist, error)
	UpdatePlaylist(ctx context.Context, id string, req UpdatePlaylistRequest) (*model.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	DuplicatePlaylist(ctx context.Context, id string) (*model.Playlist, error)
	AddItem(ctx context.Context, playlistID string, req AddItemRequest) (*model.Playlist, error)
	RemoveItem(ctx context.Context, playlistID, itemID string) (*model.Playlist, error)
	ReorderItems(ctx context.Context, playlistID string, itemIDs []string) (*model.Playlist, error)
	UpdateItemSettings(ctx context.Context, playlistID, itemID string, req UpdateItemRequest) (*model.Playlist, error)
	AssignScreens(ctx context.Context, playlistID string, screenIDs []string) (*model.Playlist, error)
	UnassignScreens(ctx context.Context, playlistID string, screenIDs []string) (*model.Playlist, error)
	ListScreens(ctx context.Context) ([]model.Screen, error)
	FetchStats(ctx context.Context) (*model.PlaylistStats, error)
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetTimeout sets the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// errorBody is the backend's structured error response.
type errorBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// do issues a JSON request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return WrapError(KindValidation, "failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return WrapError(KindNetwork, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return WrapError(KindTimeout, "backend request timed out", err)
		}
		return WrapError(KindNetwork, "backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Message == "" {
			eb.Message = http.StatusText(resp.StatusCode)
		}
		apiErr := &APIError{Message: eb.Message, Field: eb.Field}
		switch resp.StatusCode {
		case http.StatusNotFound:
			apiErr.Kind = KindNotFound
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			apiErr.Kind = KindValidation
		case http.StatusConflict:
			apiErr.Kind = KindConflict
		default:
			apiErr.Kind = KindNetwork
		}
		logger.Warn("backend rejected request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status", resp.StatusCode),
			logger.String("kind", string(apiErr.Kind)))
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return WrapError(KindNetwork, "failed to decode response", err)
		}
	}
	return nil
}

func (c *Client) ListPlaylists(ctx context.Context, filters model.PlaylistFilters, page, limit int) (*model.PlaylistPage, error) {
	q := url.Values{}
	if filters.Search != "" {
		q.Set("search", filters.Search)
	}
	if filters.IsActive != nil {
		q.Set("isActive", strconv.FormatBool(*filters.IsActive))
	}
	if filters.ScreenID != "" {
		q.Set("screenId", filters.ScreenID)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var result model.PlaylistPage
	if err := c.do(ctx, http.MethodGet, "/playlists", q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetPlaylist(ctx context.Context, id string) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodGet, "/playlists/"+id, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, req CreatePlaylistRequest) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodPost, "/playlists", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdatePlaylist(ctx context.Context, id string, req UpdatePlaylistRequest) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodPut, "/playlists/"+id, nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/playlists/"+id, nil, nil, nil)
}

func (c *Client) DuplicatePlaylist(ctx context.Context, id string) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodPost, "/playlists/"+id+"/duplicate", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) AddItem(ctx context.Context, playlistID string, req AddItemRequest) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodPost, "/playlists/"+playlistID+"/items", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) RemoveItem(ctx context.Context, playlistID, itemID string) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/playlists/%s/items/%s", playlistID, itemID), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ReorderItems(ctx context.Context, playlistID string, itemIDs []string) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodPut, "/playlists/"+playlistID+"/items/reorder", nil, ReorderRequest{ItemIDs: itemIDs}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateItemSettings(ctx context.Context, playlistID, itemID string, req UpdateItemRequest) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/playlists/%s/items/%s", playlistID, itemID), nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) AssignScreens(ctx context.Context, playlistID string, screenIDs []string) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodPost, "/playlists/"+playlistID+"/screens", nil, ScreensRequest{ScreenIDs: screenIDs}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UnassignScreens(ctx context.Context, playlistID string, screenIDs []string) (*model.Playlist, error) {
	var result model.Playlist
	if err := c.do(ctx, http.MethodDelete, "/playlists/"+playlistID+"/screens", nil, ScreensRequest{ScreenIDs: screenIDs}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListScreens(ctx context.Context) ([]model.Screen, error) {
	var result []model.Screen
	if err := c.do(ctx, http.MethodGet, "/screens", nil, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) FetchStats(ctx context.Context) (*model.PlaylistStats, error) {
	var result model.PlaylistStats
	if err := c.do(ctx, http.MethodGet, "/playlists/stats", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
