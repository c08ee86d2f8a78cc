// Package client calls a running ariaterm server over HTTP.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

type AnnounceResult struct {
	Priority string `json:"priority"`
	Accepted bool   `json:"accepted"`
}

// Announce sends text at the given priority ("polite" or "assertive").
func Announce(client *http.Client, baseURL, token, text, priority string) (AnnounceResult, error) {
	if text == "" {
		return AnnounceResult{}, errors.New("text is required")
	}
	body, err := json.Marshal(map[string]string{"text": text, "priority": priority})
	if err != nil {
		return AnnounceResult{}, fmt.Errorf("encode announce request: %w", err)
	}
	var result AnnounceResult
	if err := doJSON(client, http.MethodPost, baseURL, "/api/announce", token, body, http.StatusAccepted, &result); err != nil {
		return AnnounceResult{}, err
	}
	return result, nil
}

// SetAccessibility toggles the reader and returns the resulting state.
func SetAccessibility(client *http.Client, baseURL, token string, enabled bool) (bool, error) {
	body, err := json.Marshal(map[string]bool{"enabled": enabled})
	if err != nil {
		return false, fmt.Errorf("encode accessibility request: %w", err)
	}
	var result struct {
		Enabled bool `json:"enabled"`
	}
	if err := doJSON(client, http.MethodPut, baseURL, "/api/accessibility", token, body, http.StatusOK, &result); err != nil {
		return false, err
	}
	return result.Enabled, nil
}

// Clear empties the assertive region.
func Clear(client *http.Client, baseURL, token string) error {
	return doJSON(client, http.MethodPost, baseURL, "/api/clear", token, nil, http.StatusNoContent, nil)
}

func doJSON(client *http.Client, method, baseURL, path, token string, body []byte, wantStatus int, out any) error {
	client = ensureClient(client)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return errors.New("base URL is required")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	addToken(request, token)

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != wantStatus {
		return &HTTPError{StatusCode: response.StatusCode, Message: readErrorMessage(response)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func ensureClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return http.DefaultClient
}

func addToken(request *http.Request, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	request.Header.Set("Authorization", "Bearer "+token)
}

func readErrorMessage(response *http.Response) string {
	if response == nil {
		return "request failed"
	}
	body, _ := io.ReadAll(response.Body)
	text := strings.TrimSpace(string(body))
	if text == "" {
		return response.Status
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if strings.TrimSpace(payload.Error) != "" {
			return payload.Error
		}
	}
	return text
}
