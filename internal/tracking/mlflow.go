// Package tracking holds the MLflow experiment-tracking client. The hub
// only needs two calls: look up an experiment by name and create it when
// it does not exist yet. Evaluation results are reported into MLflow by
// the adapters, not by the hub.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	getExperimentPath    = "/api/2.0/mlflow/experiments/get-by-name"
	createExperimentPath = "/api/2.0/mlflow/experiments/create"
)

// Client talks to an MLflow tracking server over its REST API.
type Client struct {
	trackingURI string
	uiURL       string
	httpClient  *http.Client
	log         *slog.Logger
}

// NewClient creates an MLflow client. An empty trackingURI yields a
// disabled client whose EnsureExperiment always returns an empty URL.
// uiURL is the externally reachable MLflow UI; it defaults to the
// tracking URI when empty.
func NewClient(trackingURI, uiURL string, log *slog.Logger) *Client {
	if uiURL == "" {
		uiURL = trackingURI
	}
	return &Client{
		trackingURI: strings.TrimRight(trackingURI, "/"),
		uiURL:       strings.TrimRight(uiURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		log:         log,
	}
}

// Enabled reports whether a tracking server is configured.
func (c *Client) Enabled() bool {
	return c.trackingURI != ""
}

// EnsureExperiment returns the UI URL of the named experiment, creating
// the experiment when it does not exist yet. A disabled client returns an
// empty URL and no error.
func (c *Client) EnsureExperiment(ctx context.Context, name string) (string, error) {
	if !c.Enabled() || name == "" {
		return "", nil
	}

	id, err := c.getExperimentID(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		id, err = c.createExperiment(ctx, name)
		if err != nil {
			return "", err
		}
		c.log.Info("created MLflow experiment", "experiment", name, "experiment_id", id)
	}
	return c.ExperimentURL(id), nil
}

// ExperimentURL returns the MLflow UI URL for an experiment ID.
func (c *Client) ExperimentURL(experimentID string) string {
	return fmt.Sprintf("%s/#/experiments/%s", c.uiURL, experimentID)
}

func (c *Client) getExperimentID(ctx context.Context, name string) (string, error) {
	endpoint := c.trackingURI + getExperimentPath + "?experiment_name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mlflow get-by-name request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mlflow get-by-name returned status %d", resp.StatusCode)
	}

	var body struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode mlflow experiment: %w", err)
	}
	return body.Experiment.ExperimentID, nil
}

func (c *Client) createExperiment(ctx context.Context, name string) (string, error) {
	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.trackingURI+createExperimentPath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mlflow create request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("mlflow create returned status %d: %s", resp.StatusCode, msg)
	}

	var body struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode mlflow create response: %w", err)
	}
	return body.ExperimentID, nil
}
