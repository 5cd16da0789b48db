// Package roboflow fetches dataset versions from the Roboflow hosted dataset registry.
package roboflow

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/absmach/detlab/dataset"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultURL     = "https://api.roboflow.com"
	defaultTimeout = 30 * time.Minute
	dirPerm        = 0o755
)

var (
	errExportNotReady = errors.New("dataset export is not ready, generate it in the registry first")
	errIllegalPath    = errors.New("illegal file path in archive")
)

var _ dataset.Registry = (*client)(nil)

type Config struct {
	URL     string
	WorkDir string
	Timeout time.Duration
}

type client struct {
	baseURL string
	workDir string
	http    *http.Client
	logger  *slog.Logger
}

type apiKeyCtxKey struct{}

// apiKeyTransport adds the API key to requests sent to the registry host. It sits below the
// tracing transport so the key never shows up in span attributes or in request errors.
type apiKeyTransport struct {
	host string
	next http.RoundTripper
}

func (t apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key, _ := req.Context().Value(apiKeyCtxKey{}).(string)
	if key == "" || req.URL.Host != t.host {
		return t.next.RoundTrip(req)
	}

	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("api_key", key)
	r.URL.RawQuery = q.Encode()

	return t.next.RoundTrip(r)
}

func New(cfg Config, logger *slog.Logger) dataset.Registry {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")
	var host string
	if u, err := url.Parse(baseURL); err == nil {
		host = u.Host
	}

	return &client{
		baseURL: baseURL,
		workDir: cfg.WorkDir,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(apiKeyTransport{host: host, next: http.DefaultTransport}),
		},
		logger: logger,
	}
}

type versionResponse struct {
	Export struct {
		Link string `json:"link"`
	} `json:"export"`
}

// Fetch downloads and extracts the export into <workdir>/<project>-<version>. A directory
// that already holds a descriptor is returned as is. A directory created by a failed fetch
// is removed.
func (c *client) Fetch(ctx context.Context, credential string, ref dataset.Ref) (loc dataset.Location, err error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}

	dest := filepath.Join(c.workDir, fmt.Sprintf("%s-%d", ref.Project, ref.Version))
	loc = dataset.Location(dest)
	if _, err := os.Stat(loc.Descriptor()); err == nil {
		c.logger.Info("Dataset already downloaded", slog.String("location", dest))

		return loc, nil
	}

	link, err := c.exportLink(ctx, credential, ref)
	if err != nil {
		return "", err
	}

	_, statErr := os.Stat(dest)
	if err := os.MkdirAll(dest, dirPerm); err != nil {
		return "", fmt.Errorf("error creating dataset directory: %w", err)
	}
	if os.IsNotExist(statErr) {
		defer func() {
			if err != nil {
				os.RemoveAll(dest)
			}
		}()
	}

	archive, err := c.download(ctx, link, dest)
	if err != nil {
		return "", err
	}
	defer os.Remove(archive)

	if err := extract(archive, dest); err != nil {
		return "", err
	}

	if _, err := os.Stat(loc.Descriptor()); err != nil {
		return "", dataset.ErrMissingDescriptor
	}

	return loc, nil
}

func (c *client) exportLink(ctx context.Context, credential string, ref dataset.Ref) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/%s/%s/%s",
		c.baseURL,
		url.PathEscape(ref.Workspace),
		url.PathEscape(ref.Project),
		strconv.Itoa(ref.Version),
		url.PathEscape(ref.Format),
	)

	body, err := c.get(context.WithValue(ctx, apiKeyCtxKey{}, credential), reqURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var resp versionResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("error decoding registry response: %w", err)
	}

	if resp.Export.Link == "" {
		return "", errExportNotReady
	}

	return resp.Export.Link, nil
}

func (c *client) download(ctx context.Context, link, dest string) (string, error) {
	body, err := c.get(ctx, link)
	if err != nil {
		return "", err
	}
	defer body.Close()

	f, err := os.CreateTemp(dest, "dataset-*.zip")
	if err != nil {
		return "", fmt.Errorf("error creating archive file: %w", err)
	}

	n, err := io.Copy(f, body)
	if err != nil {
		f.Close()
		os.Remove(f.Name())

		return "", fmt.Errorf("error downloading dataset archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("error closing archive file: %w", err)
	}

	c.logger.Debug("Dataset archive downloaded", slog.String("file", f.Name()), slog.Int64("size_bytes", n))

	return f.Name(), nil
}

func (c *client) get(ctx context.Context, reqURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return nil, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

func extract(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("error opening dataset archive: %w", err)
	}
	defer r.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	for _, f := range r.File {
		target := filepath.Join(root, f.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("%w: %s", errIllegalPath, f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return err
			}

			continue
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("error reading %s from archive: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()

		return fmt.Errorf("error writing %s: %w", target, err)
	}

	return dst.Close()
}
