package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/weavesync/internal/logger"
	"github.com/MKhiriev/weavesync/models"
)

// HTTPClientConfig carries the settings for the resty storage client.
type HTTPClientConfig struct {
	// NodeURL is the node-assignment service base URL.
	NodeURL string
	// Username is the account identifier embedded in storage paths.
	Username string
	// Timeout bounds every outbound request; zero defaults to 30s.
	Timeout time.Duration
}

type httpStorageClient struct {
	client   *resty.Client
	nodeURL  string
	username string
	auth     AuthHeaderProvider
	logger   *logger.Logger

	mu         sync.RWMutex
	clusterURL string
}

// NewHTTPStorageClient constructs the resty-backed [StorageClient]. The
// cluster URL may be seeded later via SetClusterURL once the pipeline's
// cluster stage has resolved it.
func NewHTTPStorageClient(cfg HTTPClientConfig, auth AuthHeaderProvider, log *logger.Logger) StorageClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	cli := resty.New().SetTimeout(cfg.Timeout)

	return &httpStorageClient{
		client:   cli,
		nodeURL:  strings.TrimRight(cfg.NodeURL, "/"),
		username: cfg.Username,
		auth:     auth,
		logger:   log,
	}
}

func (h *httpStorageClient) SetClusterURL(u string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clusterURL = strings.TrimRight(u, "/")
}

func (h *httpStorageClient) ClusterURL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clusterURL
}

func (h *httpStorageClient) Node(ctx context.Context) (string, error) {
	if h.nodeURL == "" {
		return "", fmt.Errorf("node url not configured")
	}

	resp, err := h.authedRequest(ctx)
	if err != nil {
		return "", err
	}
	res, err := resp.Get(h.nodeURL + "/node/weave/" + url.PathEscape(h.username))
	if err != nil {
		return "", fmt.Errorf("node assignment request: %w", err)
	}
	if err = mapHTTPError(res); err != nil {
		h.logger.Err(err).Str("func", "httpStorageClient.Node").Msg("node assignment request failed")
		return "", err
	}

	cluster := strings.TrimSpace(string(res.Body()))
	if _, err = url.ParseRequestURI(cluster); err != nil {
		return "", &models.MalformedResponseError{Body: cluster, Err: err}
	}
	return cluster, nil
}

func (h *httpStorageClient) InfoCollections(ctx context.Context) (models.InfoCollections, error) {
	resp, err := h.storageRequest(ctx)
	if err != nil {
		return nil, err
	}
	res, err := resp.Get(h.storagePath("info/collections"))
	if err != nil {
		return nil, fmt.Errorf("info/collections request: %w", err)
	}
	if err = mapHTTPError(res); err != nil {
		h.logger.Err(err).Str("func", "httpStorageClient.InfoCollections").Msg("info/collections request failed")
		return nil, err
	}

	ic, err := models.ParseInfoCollections(res.Body())
	if err != nil {
		return nil, fmt.Errorf("decode info/collections: %w", err)
	}
	return ic, nil
}

func (h *httpStorageClient) FetchCollection(ctx context.Context, collection string, newer int64) ([]models.Envelope, error) {
	resp, err := h.storageRequest(ctx)
	if err != nil {
		return nil, err
	}
	resp.SetQueryParam("full", "1")
	if newer > 0 {
		resp.SetQueryParam("newer", millisToSeconds(newer))
	}

	res, err := resp.Get(h.storagePath("storage/" + url.PathEscape(collection)))
	if err != nil {
		return nil, fmt.Errorf("fetch %s request: %w", collection, err)
	}
	if err = mapHTTPError(res); err != nil {
		h.logger.Err(err).
			Str("func", "httpStorageClient.FetchCollection").
			Str("collection", collection).
			Msg("collection fetch failed")
		return nil, err
	}

	var envelopes []models.Envelope
	if err = json.Unmarshal(res.Body(), &envelopes); err != nil {
		return nil, &models.MalformedResponseError{Body: string(res.Body()), Err: err}
	}
	return envelopes, nil
}

func (h *httpStorageClient) UploadEnvelopes(ctx context.Context, collection string, envelopes []models.Envelope) (int64, error) {
	if len(envelopes) == 0 {
		return 0, nil
	}

	resp, err := h.storageRequest(ctx)
	if err != nil {
		return 0, err
	}
	res, err := resp.
		SetHeader("Content-Type", "application/json").
		SetBody(envelopes).
		Post(h.storagePath("storage/" + url.PathEscape(collection)))
	if err != nil {
		return 0, fmt.Errorf("upload %s request: %w", collection, err)
	}
	if err = mapHTTPError(res); err != nil {
		h.logger.Err(err).
			Str("func", "httpStorageClient.UploadEnvelopes").
			Str("collection", collection).
			Msg("envelope upload failed")
		return 0, err
	}

	// The server reports the batch timestamp in seconds.
	var result struct {
		Modified float64 `json:"modified"`
	}
	if err = json.Unmarshal(res.Body(), &result); err != nil {
		return 0, &models.MalformedResponseError{Body: string(res.Body()), Err: err}
	}
	return int64(result.Modified * 1000), nil
}

func (h *httpStorageClient) DeleteCollection(ctx context.Context, collection string) error {
	resp, err := h.storageRequest(ctx)
	if err != nil {
		return err
	}
	res, err := resp.Delete(h.storagePath("storage/" + url.PathEscape(collection)))
	if err != nil {
		return fmt.Errorf("delete %s request: %w", collection, err)
	}
	if err = mapHTTPError(res); err != nil {
		h.logger.Err(err).
			Str("func", "httpStorageClient.DeleteCollection").
			Str("collection", collection).
			Msg("collection delete failed")
		return err
	}
	return nil
}

// authedRequest builds a request carrying the Authorization header. An auth
// provider failure is surfaced as ErrUnauthorized so the orchestrator
// treats it like a server-side credential rejection.
func (h *httpStorageClient) authedRequest(ctx context.Context) (*resty.Request, error) {
	header, err := h.auth.AuthHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return h.client.R().SetContext(ctx).SetHeader("Authorization", header), nil
}

// storageRequest is authedRequest plus the requirement that a cluster URL
// has been resolved.
func (h *httpStorageClient) storageRequest(ctx context.Context) (*resty.Request, error) {
	if h.ClusterURL() == "" {
		return nil, ErrNoClusterURL
	}
	return h.authedRequest(ctx)
}

func (h *httpStorageClient) storagePath(suffix string) string {
	return fmt.Sprintf("%s/1.1/%s/%s", h.ClusterURL(), url.PathEscape(h.username), suffix)
}

func millisToSeconds(ms int64) string {
	return fmt.Sprintf("%.2f", float64(ms)/1000.0)
}
