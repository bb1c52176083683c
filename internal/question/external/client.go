package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// StatusError is returned when a trivia API answers with a non-2xx status.
type StatusError struct {
	API    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.API, e.Status)
}

// jsonAPI is the shared GET-and-decode plumbing of the trivia clients.
type jsonAPI struct {
	name       string
	baseURL    string
	headers    http.Header
	httpClient *http.Client
}

func newJSONAPI(name, baseURL, fallbackURL string, httpClient *http.Client) jsonAPI {
	if baseURL == "" {
		baseURL = fallbackURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return jsonAPI{
		name:       name,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		headers:    http.Header{},
		httpClient: httpClient,
	}
}

func (a jsonAPI) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", a.name, err)
	}
	for k, vs := range a.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", a.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{API: a.name, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s payload: %w", a.name, err)
	}
	return nil
}
