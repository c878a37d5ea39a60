package contentblocking

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
)

// fetchChunkSize is the read granularity used to report download progress.
const fetchChunkSize = 32 * 1024

// dataFetchJob downloads one subscription on its own goroutine.  The profile
// owns the job exclusively for the duration of the fetch; cancelling the job
// turns its completion callback into a no-op on the profile side.
type dataFetchJob struct {
	client     *http.Client
	url        *url.URL
	ctx        context.Context
	cancelCtx  context.CancelFunc
	onFinished func(job *dataFetchJob, body []byte, err error)
	progress   atomic.Int32
}

func newDataFetchJob(client *http.Client, u *url.URL, onFinished func(*dataFetchJob, []byte, error)) *dataFetchJob {
	ctx, cancel := context.WithCancel(context.Background())

	return &dataFetchJob{
		client:     client,
		url:        u,
		ctx:        ctx,
		cancelCtx:  cancel,
		onFinished: onFinished,
	}
}

// start launches the fetch goroutine.
func (j *dataFetchJob) start() {
	go func() {
		body, err := j.fetch()
		j.onFinished(j, body, err)
	}()
}

// cancel aborts the fetch.  The completion callback may still fire, the
// profile drops it by comparing job identities.
func (j *dataFetchJob) cancel() {
	j.cancelCtx()
}

// currentProgress returns the download progress in [0, 100].
func (j *dataFetchJob) currentProgress() int {
	return int(j.progress.Load())
}

// fetch performs the HTTP request and reads the body, updating the progress
// as data arrives.
func (j *dataFetchJob) fetch() (body []byte, err error) {
	req, err := http.NewRequestWithContext(j.ctx, http.MethodGet, j.url.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var buf bytes.Buffer
	chunk := make([]byte, fetchChunkSize)

	for {
		n, rerr := resp.Body.Read(chunk)
		buf.Write(chunk[:n])

		if resp.ContentLength > 0 {
			percent := buf.Len() * 100 / int(resp.ContentLength)
			if percent > 100 {
				percent = 100
			}

			j.progress.Store(int32(percent))
		}

		if rerr == io.EOF {
			break
		}

		if rerr != nil {
			return nil, rerr
		}
	}

	j.progress.Store(100)

	return buf.Bytes(), nil
}
