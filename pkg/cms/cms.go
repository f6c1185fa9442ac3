package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Update is one approved metadata change for a page. Applying the same
// update twice must have no additional effect; the backend resolves the URL
// to its content identifier.
type Update struct {
	URL            string `json:"url"`
	NewTitle       string `json:"new_title"`
	NewDescription string `json:"new_description"`
}

// Updater applies approved metadata updates to a content-management backend
type Updater interface {
	ApplyUpdate(ctx context.Context, update Update) error
}

// HTTPUpdater posts updates to a CMS endpoint as JSON with bearer auth. It
// is a thin collaborator: idempotency is the backend's contract.
type HTTPUpdater struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPUpdater creates an HTTPUpdater for the given endpoint and token
func NewHTTPUpdater(endpoint, token string) *HTTPUpdater {
	return &HTTPUpdater{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ApplyUpdate sends one update; any non-2xx response is an error
func (u *HTTPUpdater) ApplyUpdate(ctx context.Context, update Update) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("applying update for %s: %w", update.URL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("applying update for %s: unexpected status %s", update.URL, resp.Status)
	}
	return nil
}
