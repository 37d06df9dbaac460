// Package roblox is a minimal Open Cloud client that replaces the contents of
// an existing asset.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"stockrelay/internal/apperr"
	"stockrelay/internal/logger"
)

const (
	baseURL          = "https://apis.roblox.com"
	DefaultAssetType = "Model"
	apiKeyHeader     = "x-api-key"
)

// Encoding selects how the file is carried in the PATCH body.
type Encoding string

const (
	// EncodingMultipart sends a JSON "request" part and a "fileContent" part.
	EncodingMultipart Encoding = "multipart"
	// EncodingRaw sends the file bytes as application/octet-stream.
	EncodingRaw Encoding = "raw"
)

// ParseEncoding maps a config value to an Encoding. Empty means multipart.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingMultipart:
		return EncodingMultipart, nil
	case EncodingRaw:
		return EncodingRaw, nil
	}
	return "", apperr.Wrapf(apperr.ErrConfig, nil, "unknown upload encoding %q", s)
}

type Client struct {
	apiKey    string
	baseURL   string
	assetType string
	http      *http.Client
	rest      *resty.Client
	log       *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAssetType sets the assetType sent in the multipart request part.
func WithAssetType(t string) Option {
	return func(c *Client) {
		if t != "" {
			c.assetType = t
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logger.OrNop(l) }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		baseURL:   baseURL,
		assetType: DefaultAssetType,
		http:      &http.Client{},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rest = resty.NewWithClient(c.http).SetRetryCount(0)
	return c
}

// Result is a successful upload response.
type Result struct {
	StatusCode int
	Body       string
}

type uploadRequest struct {
	AssetID   int64  `json:"assetId"`
	AssetType string `json:"assetType"`
}

// UploadAsset replaces asset assetID with the contents of filePath in a single
// PATCH. A missing API key or file fails with apperr.ErrConfig before any
// request is made. Any HTTP status >= 400 fails with apperr.ErrUpload wrapping
// an *apperr.HTTPError that carries the response body verbatim.
func (c *Client) UploadAsset(ctx context.Context, assetID int64, filePath string, enc Encoding) (*Result, error) {
	const op = "upload asset"

	if c.apiKey == "" {
		return nil, apperr.Wrap(apperr.ErrConfig, op, fmt.Errorf("api key is not set"))
	}
	if _, err := os.Stat(filePath); err != nil {
		return nil, apperr.Wrap(apperr.ErrConfig, op, err)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfig, op, err)
	}

	req := c.rest.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, c.apiKey)

	switch enc {
	case EncodingRaw:
		req.SetHeader("Content-Type", "application/octet-stream").SetBody(data)
	case EncodingMultipart, "":
		meta, err := json.Marshal(uploadRequest{AssetID: assetID, AssetType: c.assetType})
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrUpload, op, err)
		}
		req.SetMultipartFields(
			&resty.MultipartField{
				Param:       "request",
				ContentType: "application/json",
				Reader:      bytes.NewReader(meta),
			},
			&resty.MultipartField{
				Param:       "fileContent",
				FileName:    filepath.Base(filePath),
				ContentType: "application/octet-stream",
				Reader:      bytes.NewReader(data),
			},
		)
	default:
		return nil, apperr.Wrapf(apperr.ErrConfig, nil, "unknown upload encoding %q", enc)
	}

	url := c.baseURL + "/assets/v1/assets/" + strconv.FormatInt(assetID, 10)
	c.log.Debug("uploading asset",
		zap.Int64("asset_id", assetID),
		zap.String("file", filePath),
		zap.Int("bytes", len(data)),
		zap.String("encoding", string(enc)),
	)

	resp, err := req.Patch(url)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpload, op, err)
	}
	body := string(resp.Body())
	if resp.IsError() {
		return nil, apperr.Wrap(apperr.ErrUpload, op, &apperr.HTTPError{StatusCode: resp.StatusCode(), Body: body})
	}
	return &Result{StatusCode: resp.StatusCode(), Body: body}, nil
}
