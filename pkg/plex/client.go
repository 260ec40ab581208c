// Package plex talks to the Plex Media Server HTTP API: library section lookup,
// playlist upload, and the playlist listings used for verification.
package plex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"plexsync/pkg/config"
	"plexsync/pkg/httpClient"
	"plexsync/pkg/logging"
)

// ErrLibraryNotFound is wrapped in a *config.ConfigError when no section carries the
// configured library name.
var ErrLibraryNotFound = errors.New("library not found")

type Client struct {
	baseURL   string
	token     string
	uploadURL string
	userAgent string
	http      *http.Client
}

func NewClient(plexCfg config.PlexConfig, httpCfg config.HTTPConfig) *Client {
	return &Client{
		baseURL:   plexCfg.BaseURL,
		token:     plexCfg.Token,
		uploadURL: plexCfg.UploadURL,
		userAgent: httpCfg.UserAgent,
		http:      httpClient.New(httpCfg.Timeout),
	}
}

// Sections lists the library sections of the server.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	var resp sectionsResponse
	if err := c.getJSON(ctx, "/library/sections", &resp); err != nil {
		return nil, fmt.Errorf("failed to list library sections: %w", err)
	}
	return resp.MediaContainer.Directory, nil
}

// SectionID resolves a library name to its section key. The name must match a
// section title exactly.
func (c *Client) SectionID(ctx context.Context, libraryName string) (string, error) {
	sections, err := c.Sections(ctx)
	if err != nil {
		return "", err
	}

	for _, s := range sections {
		if s.Title == libraryName {
			logging.Info("Found library '%s' with section id %s", libraryName, s.Key)
			return s.Key, nil
		}
	}

	return "", &config.ConfigError{
		Field:  config.KeyLibraryName,
		Reason: fmt.Sprintf("%q does not match any of the %d library sections on the server", libraryName, len(sections)),
		Err:    ErrLibraryNotFound,
	}
}

// Playlists lists every playlist on the server.
func (c *Client) Playlists(ctx context.Context) ([]Playlist, error) {
	var resp playlistsResponse
	if err := c.getJSON(ctx, "/playlists", &resp); err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return resp.MediaContainer.Metadata, nil
}

// PlaylistItems lists the tracks of one playlist.
func (c *Client) PlaylistItems(ctx context.Context, ratingKey string) ([]Item, error) {
	var resp itemsResponse
	endpoint := "/playlists/" + url.PathEscape(ratingKey) + "/items"
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("failed to list items of playlist %s: %w", ratingKey, err)
	}
	return resp.MediaContainer.Metadata, nil
}

// Upload posts the file at filePath to the upload endpoint. remotePath is the
// location of the same file as the server sees it.
func (c *Client) Upload(ctx context.Context, filePath, remotePath, sectionID string) (UploadResult, error) {
	body, contentType, err := multipartFile(filePath)
	if err != nil {
		return UploadResult{}, err
	}

	target, err := url.Parse(c.uploadURL)
	if err != nil {
		return UploadResult{}, fmt.Errorf("invalid upload URL %s: %w", c.uploadURL, err)
	}
	query := target.Query()
	query.Set("sectionID", sectionID)
	query.Set("path", remotePath)
	query.Set("X-Plex-Token", c.token)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), body)
	if err != nil {
		return UploadResult{}, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	logging.Debug("POST %s (path=%s, sectionID=%s)", target.Path, remotePath, sectionID)
	resp, err := c.http.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload %s: %w", filePath, err)
	}
	defer resp.Body.Close()

	if err := httpClient.CheckResponse(resp); err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload %s: %w", filePath, err)
	}
	return UploadResult{PlaylistID: playlistID(resp.Body)}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	logging.Debug("GET %s", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := httpClient.CheckResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Plex-Token", c.token)
}

// multipartFile builds a form with the file under the "file" field. Playlists are
// small, so the body is kept in memory.
func multipartFile(filePath string) (io.Reader, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// playlistID extracts a ratingKey from an upload response. Plex usually answers
// with an empty body, which yields "".
func playlistID(body io.Reader) string {
	var resp playlistsResponse
	if err := json.NewDecoder(io.LimitReader(body, 1<<20)).Decode(&resp); err != nil {
		return ""
	}
	if len(resp.MediaContainer.Metadata) == 0 {
		return ""
	}
	return resp.MediaContainer.Metadata[0].RatingKey
}
