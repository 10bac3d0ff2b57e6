// Package triplydb uploads serialized graphs to a TriplyDB instance.
//
// The upload mirrors what the TriplyDB console does for a file import:
// ensure the dataset exists, open an import job, attach the files, start the
// job and poll it until the platform reports a final state.
package triplydb

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultURL is the public TriplyDB API.
const DefaultURL = "https://api.triplydb.com"

// DefaultPollInterval is the delay between job status requests.
const DefaultPollInterval = 2 * time.Second

// maxErrorBody limits how much of an error response ends up in the error.
const maxErrorBody = 4 * 1024

var (
	// ErrNotFound is returned when the API answers 404.
	ErrNotFound = errors.New("not found")
	// ErrJobFailed is returned when an import job ends in error or is canceled.
	ErrJobFailed = errors.New("import job failed")
)

// Job states reported by the API.
const (
	JobFinished = "finished"
	JobError    = "error"
	JobCanceled = "canceled"
)

// Client talks to the TriplyDB REST API with a bearer token.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithPollInterval sets the delay between job status requests.
func WithPollInterval(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// NewClient creates a client for the API at baseURL. An empty baseURL uses DefaultURL.
func NewClient(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			// Large uploads stream for a long time
			Timeout: 30 * time.Minute,
		},
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Info describes the TriplyDB instance.
type Info struct {
	ConsoleURL string `json:"consoleUrl"`
	APIURL     string `json:"apiUrl"`
	Version    string `json:"version,omitempty"`
}

// Dataset is the subset of dataset metadata the upload uses.
type Dataset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessLevel string `json:"accessLevel"`
	Statements  int    `json:"statements"`
	Graphs      int    `json:"graphCount"`
}

// Job is an import job.
type Job struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Done reports whether the job reached a final state.
func (j *Job) Done() bool {
	switch j.Status {
	case JobFinished, JobError, JobCanceled:
		return true
	}
	return false
}

// Info fetches the instance description.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return nil, errors.Wrap(err, "get instance info")
	}
	return &info, nil
}

// Dataset fetches a dataset. It returns ErrNotFound when it does not exist.
func (c *Client) Dataset(ctx context.Context, account, name string) (*Dataset, error) {
	var ds Dataset
	if err := c.do(ctx, http.MethodGet, datasetPath(account, name), nil, &ds); err != nil {
		return nil, errors.Wrapf(err, "get dataset %s/%s", account, name)
	}
	return &ds, nil
}

// CreateDataset creates a dataset under account.
func (c *Client) CreateDataset(ctx context.Context, account, name, accessLevel string) (*Dataset, error) {
	body := map[string]string{"name": name, "accessLevel": accessLevel}
	var ds Dataset
	if err := c.do(ctx, http.MethodPost, "/datasets/"+url.PathEscape(account), body, &ds); err != nil {
		return nil, errors.Wrapf(err, "create dataset %s/%s", account, name)
	}
	return &ds, nil
}

// EnsureDataset returns the dataset, creating it with accessLevel when missing.
func (c *Client) EnsureDataset(ctx context.Context, account, name, accessLevel string) (*Dataset, error) {
	ds, err := c.Dataset(ctx, account, name)
	if err == nil {
		return ds, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	c.logger.Debug("Creating dataset", "account", account, "dataset", name, "access_level", accessLevel)
	return c.CreateDataset(ctx, account, name, accessLevel)
}

// CreateJob opens a file import job that replaces all graphs of the dataset.
func (c *Client) CreateJob(ctx context.Context, account, name string) (*Job, error) {
	body := map[string]any{"type": "files", "overwriteAll": true}
	var job Job
	if err := c.do(ctx, http.MethodPost, datasetPath(account, name)+"/jobs", body, &job); err != nil {
		return nil, errors.Wrap(err, "create import job")
	}
	if job.JobID == "" {
		return nil, errors.New("create import job: response has no job id")
	}
	return &job, nil
}

// AddFile streams a file from disk into the job as a single multipart POST.
// The hosted TriplyDB service expects resumable tus uploads on this endpoint
// and may reject large files sent this way; servers accepting multipart
// uploads take the file as is.
func (c *Client) AddFile(ctx context.Context, account, name, jobID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithHint(errors.Wrap(err, "open upload file"), "run the transform first")
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, jobPath(account, name, jobID)+"/add", pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err := c.send(req, nil); err != nil {
		return errors.Wrapf(err, "upload %s", path)
	}
	return nil
}

// StartJob starts a job after its files are added.
func (c *Client) StartJob(ctx context.Context, account, name, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodPost, jobPath(account, name, jobID)+"/start", nil, &job); err != nil {
		return nil, errors.Wrap(err, "start import job")
	}
	return &job, nil
}

// GetJob fetches the job status.
func (c *Client) GetJob(ctx context.Context, account, name, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, jobPath(account, name, jobID), nil, &job); err != nil {
		return nil, errors.Wrap(err, "get import job")
	}
	return &job, nil
}

// WaitJob polls the job until it is finished. A job that ends in error or is
// canceled returns ErrJobFailed.
func (c *Client) WaitJob(ctx context.Context, account, name, jobID string) (*Job, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.GetJob(ctx, account, name, jobID)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("Import job status", "job", jobID, "status", job.Status)
		if job.Done() {
			if job.Status == JobFinished {
				return job, nil
			}
			msg := job.Status
			if job.Error != nil && job.Error.Message != "" {
				msg = job.Error.Message
			}
			return job, errors.Wrapf(ErrJobFailed, "job %s: %s", jobID, msg)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "waiting for import job")
		case <-ticker.C:
		}
	}
}

func datasetPath(account, name string) string {
	return "/datasets/" + url.PathEscape(account) + "/" + url.PathEscape(name)
}

func jobPath(account, name, jobID string) string {
	return datasetPath(account, name) + "/jobs/" + url.PathEscape(jobID)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends a JSON request and decodes the JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// statusError turns a non-2xx response into an error, keeping the API message.
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(data))
	var apiErr struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}

	err := errors.Newf("TriplyDB API error (status %d): %s", resp.StatusCode, msg)
	switch resp.StatusCode {
	case http.StatusNotFound:
		return errors.Mark(err, ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.WithHint(err, "check TRIPLYDB_TOKEN and that it has write access to the account")
	}
	return err
}
