// Package fetch retrieves raw table extracts. Every resource is addressed by
// a name; fetched bytes are cached on disk under that name so repeated runs
// do not re-download unless an explicit refresh is requested. Sources without
// an http(s) scheme are manually downloaded extracts resolved against the
// jurisdiction's data directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/crash-data-pipeline/internal/adapter/tabular"
	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
)

// Client fetches and caches raw extracts and decodes them into records.
type Client struct {
	httpClient *http.Client
	cacheDir   string
	dataDir    string
	logger     *slog.Logger
}

// New creates a fetch client. cacheDir receives downloaded extracts; dataDir
// is where manually downloaded files are looked up.
func New(cacheDir, dataDir string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cacheDir:   cacheDir,
		dataDir:    dataDir,
		logger:     logger,
	}
}

// FetchTable retrieves and decodes one table's extract for one partition.
// Implements pipeline.TableFetcher.
func (c *Client) FetchTable(ctx context.Context, jur string, table domain.Table, partition string, refresh bool) ([]domain.RawRecord, error) {
	name := fmt.Sprintf("%s-%s-%s", jur, table.Name, partition)
	data, err := c.fetch(ctx, name, table.SourceFor(partition), refresh)
	if err != nil {
		return nil, err
	}

	switch table.Format {
	case domain.FormatCrashAPI:
		return tabular.DecodeCrashAPI(data)
	default:
		return tabular.DecodeCSV(data, table.Windows1252)
	}
}

// fetch returns the bytes for a named resource, consulting the cache first.
func (c *Client) fetch(ctx context.Context, name, source string, refresh bool) ([]byte, error) {
	if !isURL(source) {
		path := filepath.Join(c.dataDir, source)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read local extract %s: %w", path, err)
		}
		return data, nil
	}

	cachePath := filepath.Join(c.cacheDir, name)
	if !refresh {
		if data, err := os.ReadFile(cachePath); err == nil {
			c.logger.Debug("cache hit", "resource", name)
			return data, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read cache %s: %w", cachePath, err)
		}
	}

	c.logger.Info("fetching extract", "resource", name, "source", source)
	data, err := c.download(ctx, source)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write cache %s: %w", cachePath, err)
	}
	return data, nil
}

func (c *Client) download(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s", source, resp.StatusCode, body)
	}
	return io.ReadAll(resp.Body)
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
