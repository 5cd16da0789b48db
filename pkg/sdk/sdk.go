package sdk

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	CTJSON string = "application/json"

	jobEndpoint      = "/job"
	outcomesEndpoint = "/outcomes"
	healthEndpoint   = "/health"
)

// SDK reads the status of a training run from its status server.
type SDK interface {
	// Job returns the current or last run.
	//
	// example:
	//  job, _ := sdk.Job()
	//  fmt.Println(job.State, job.Current)
	Job() (Job, error)

	// Outcome returns the outcome of one model variant of the current run.
	//
	// example:
	//  outcome, _ := sdk.Outcome("s")
	//  fmt.Println(outcome.Artifact)
	Outcome(variant string) (Outcome, error)

	// Outcomes lists the recorded outcomes of the current run.
	//
	// example:
	//  page, _ := sdk.Outcomes(0, 10)
	//  fmt.Println(page.Total)
	Outcomes(offset, limit uint64) (OutcomePage, error)

	// Health checks that the status server is up.
	Health() (Health, error)
}

type Outcome struct {
	Variant    string    `json:"variant"`
	State      string    `json:"state"`
	Batch      int       `json:"batch"`
	RunDir     string    `json:"run_dir,omitempty"`
	Artifact   string    `json:"artifact,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartTime  time.Time `json:"start_time"`
	FinishTime time.Time `json:"finish_time"`
}

type OutcomePage struct {
	Offset   uint64    `json:"offset"`
	Limit    uint64    `json:"limit"`
	Total    uint64    `json:"total"`
	Outcomes []Outcome `json:"outcomes"`
}

type Job struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Profile    string    `json:"profile,omitempty"`
	Dataset    string    `json:"dataset"`
	Variants   []string  `json:"variants"`
	Current    string    `json:"current,omitempty"`
	State      string    `json:"state"`
	Outcomes   []Outcome `json:"outcomes"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type Health struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
}

type statusSDK struct {
	statusURL string
	client    *http.Client
}

type Config struct {
	StatusURL       string
	TLSVerification bool
	Timeout         time.Duration
}

func NewSDK(cfg Config) SDK {
	return &statusSDK{
		statusURL: cfg.StatusURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(&http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			}),
		},
	}
}

func (sdk *statusSDK) Job() (Job, error) {
	var j Job
	if err := sdk.get(sdk.statusURL+jobEndpoint, &j); err != nil {
		return Job{}, err
	}

	return j, nil
}

func (sdk *statusSDK) Outcome(variant string) (Outcome, error) {
	var o Outcome
	if err := sdk.get(sdk.statusURL+outcomesEndpoint+"/"+url.PathEscape(variant), &o); err != nil {
		return Outcome{}, err
	}

	return o, nil
}

func (sdk *statusSDK) Outcomes(offset, limit uint64) (OutcomePage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}

	var page OutcomePage
	if err := sdk.get(sdk.statusURL+outcomesEndpoint+query, &page); err != nil {
		return OutcomePage{}, err
	}

	return page, nil
}

func (sdk *statusSDK) Health() (Health, error) {
	var h Health
	if err := sdk.get(sdk.statusURL+healthEndpoint, &h); err != nil {
		return Health{}, err
	}

	return h, nil
}

func (sdk *statusSDK) get(reqURL string, v any) error {
	body, err := sdk.processRequest(http.MethodGet, reqURL, http.StatusOK)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, v)
}

func (sdk *statusSDK) processRequest(method, reqURL string, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, http.NoBody)
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Accept", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return []byte{}, fmt.Errorf("unexpected response code: %d: %s", resp.StatusCode, e.Error)
		}

		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
