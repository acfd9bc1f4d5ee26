package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kalambet/prefs/internal/config"
	"github.com/kalambet/prefs/internal/preferences"
)

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func(cfg config.Config) (*apiClient, error) {
	return &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.Server.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is prefs serve running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *apiClient) put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *apiClient) delete(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// expectNoContent drains resp and reports a server error if any.
func expectNoContent(resp *http.Response) error {
	defer resp.Body.Close()
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, envelope.Error.Message)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
}

// remoteStore runs store operations against a prefs server.
type remoteStore struct {
	client *apiClient
	group  preferences.Group
}

func (s *remoteStore) groupPath() string {
	return "/groups/" + url.PathEscape(s.group.Name())
}

func (s *remoteStore) keyPath(key string) string {
	return s.groupPath() + "/keys/" + url.PathEscape(key)
}

func (s *remoteStore) Get(key string) (string, bool, error) {
	resp, err := s.client.get(context.Background(), s.keyPath(key))
	if err != nil {
		return "", false, err
	}
	var out struct {
		Value *string `json:"value"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return "", false, err
	}
	if out.Value == nil {
		return "", false, nil
	}
	return *out.Value, true, nil
}

func (s *remoteStore) Set(key, val string) error {
	resp, err := s.client.put(context.Background(), s.keyPath(key), map[string]string{"value": val})
	if err != nil {
		return err
	}
	return expectNoContent(resp)
}

func (s *remoteStore) Remove(key string) error {
	resp, err := s.client.delete(context.Background(), s.keyPath(key))
	if err != nil {
		return err
	}
	return expectNoContent(resp)
}

func (s *remoteStore) RemoveAll() error {
	resp, err := s.client.delete(context.Background(), s.groupPath()+"/keys")
	if err != nil {
		return err
	}
	return expectNoContent(resp)
}

func (s *remoteStore) Keys() ([]string, error) {
	resp, err := s.client.get(context.Background(), s.groupPath()+"/keys")
	if err != nil {
		return nil, err
	}
	var out struct {
		Keys []string `json:"keys"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Keys, nil
}

func (s *remoteStore) Migrate() (preferences.MigrationResult, error) {
	var res preferences.MigrationResult
	resp, err := s.client.post(context.Background(), s.groupPath()+"/migrate", nil)
	if err != nil {
		return res, err
	}
	err = decodeJSON(resp, &res)
	return res, err
}

func (s *remoteStore) RemoveOld() error {
	resp, err := s.client.delete(context.Background(), "/legacy")
	if err != nil {
		return err
	}
	return expectNoContent(resp)
}
