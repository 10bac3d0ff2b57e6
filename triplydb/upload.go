package triplydb

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultAccessLevel is used when an upload has to create the dataset.
const DefaultAccessLevel = "public"

// UploadRequest names the target dataset and the files to import.
type UploadRequest struct {
	Account     string
	Dataset     string
	AccessLevel string
	Files       []string
}

// Validate checks that the request names a dataset and at least one file.
func (r UploadRequest) Validate() error {
	if r.Account == "" {
		return errors.New("account is required")
	}
	if r.Dataset == "" {
		return errors.New("dataset is required")
	}
	if len(r.Files) == 0 {
		return errors.New("at least one file is required")
	}
	return nil
}

// UploadResult describes a finished import.
type UploadResult struct {
	ConsoleURL string
	DatasetURL string
	JobID      string
}

// Upload imports the files into the dataset, replacing its graphs. The
// dataset is created when it does not exist yet.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.AccessLevel == "" {
		req.AccessLevel = DefaultAccessLevel
	}

	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}
	console := strings.TrimRight(info.ConsoleURL, "/")
	c.logger.Info("INFO: TriplyDB instance at " + console)

	if _, err := c.EnsureDataset(ctx, req.Account, req.Dataset, req.AccessLevel); err != nil {
		return nil, err
	}
	datasetURL := console + "/" + req.Account + "/" + req.Dataset

	c.logger.Info("INFO: Uploading...", "files", len(req.Files))
	job, err := c.CreateJob(ctx, req.Account, req.Dataset)
	if err != nil {
		return nil, err
	}
	for _, path := range req.Files {
		if err := c.AddFile(ctx, req.Account, req.Dataset, job.JobID, path); err != nil {
			return nil, err
		}
	}
	if _, err := c.StartJob(ctx, req.Account, req.Dataset, job.JobID); err != nil {
		return nil, err
	}
	if _, err := c.WaitJob(ctx, req.Account, req.Dataset, job.JobID); err != nil {
		return nil, err
	}

	c.logger.Info("DONE: See dataset at <" + datasetURL + ">")
	return &UploadResult{
		ConsoleURL: console,
		DatasetURL: datasetURL,
		JobID:      job.JobID,
	}, nil
}
