// Package bee is the Upload Client: it writes stamped chunks and raw data
// blobs to a Bee node's HTTP API. Each call is a single round trip; retrying
// is left to the caller.
package bee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Cafe137/swarm-chunked-upload/internal/bmt"
	"github.com/Cafe137/swarm-chunked-upload/internal/domain"
	"github.com/Cafe137/swarm-chunked-upload/internal/errors"
	"github.com/Cafe137/swarm-chunked-upload/internal/postage"
)

// Bee API headers.
const (
	HeaderPostageStamp   = "Swarm-Postage-Stamp"
	HeaderPostageBatchID = "Swarm-Postage-Batch-Id"
	HeaderDeferredUpload = "Swarm-Deferred-Upload"

	maxErrorBody = 4096
)

type referenceResponse struct {
	Reference string `json:"reference"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Client talks to one Bee node.
type Client struct {
	base     *url.URL
	client   *http.Client
	batch    domain.PostageBatch
	deferred bool
}

// NewClient creates a client for the node at beeURL. A zero timeout leaves
// request deadlines to the context.
func NewClient(beeURL string, batch domain.PostageBatch, deferred bool, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(beeURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid bee url %q: %w", beeURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid bee url %q: scheme must be http or https", beeURL)
	}
	return &Client{
		base:     base,
		client:   &http.Client{Timeout: timeout},
		batch:    batch,
		deferred: deferred,
	}, nil
}

// URL returns the node base URL.
func (c *Client) URL() string {
	return c.base.String()
}

// UploadChunk writes span || payload under stamp and checks that the node
// stored it at the address computed locally from the same bytes.
func (c *Client) UploadChunk(ctx context.Context, stamp postage.Stamp, data []byte) (domain.Address, error) {
	expected, err := bmt.Address(data)
	if err != nil {
		return domain.Address{}, &errors.EncodingError{Field: "chunk", Err: err}
	}

	header := http.Header{}
	header.Set(HeaderPostageStamp, stamp.Hex())
	actual, err := c.post(ctx, "chunks", data, header)
	if err != nil {
		return domain.Address{}, err
	}

	if !actual.Equal(expected) {
		return domain.Address{}, &errors.IntegrityError{
			Expected: expected.String(),
			Actual:   actual.String(),
		}
	}
	log.Tracef("Uploaded chunk %s", actual)
	return actual, nil
}

// UploadData writes an arbitrary blob charged to the configured batch and
// returns the reference the node assigned.
func (c *Client) UploadData(ctx context.Context, data []byte) (domain.Address, error) {
	header := http.Header{}
	header.Set(HeaderPostageBatchID, c.batch.BatchIDHex())
	reference, err := c.post(ctx, "bytes", data, header)
	if err != nil {
		return domain.Address{}, err
	}
	log.Tracef("Uploaded %d bytes as %s", len(data), reference)
	return reference, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte, header http.Header) (domain.Address, error) {
	op := "POST /" + endpoint
	u := *c.base
	u.Path = path.Join(u.Path, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return domain.Address{}, &errors.NetworkError{Op: op, Err: err}
	}
	for key, values := range header {
		req.Header[key] = values
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(HeaderDeferredUpload, strconv.FormatBool(c.deferred))

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Address{}, &errors.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Address{}, &errors.NetworkError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", readErrorMessage(resp.Body)),
		}
	}

	var out referenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Address{}, &errors.NetworkError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	reference, err := domain.AddressFromHex(out.Reference)
	if err != nil {
		return domain.Address{}, &errors.NetworkError{Op: op, Err: err}
	}
	return reference, nil
}

func readErrorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	if len(body) == 0 {
		return "empty response body"
	}
	return strings.TrimSpace(string(body))
}
