package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tracklab/stocktrack/internal/inventory"
)

// maxFetchSize caps HTTP export downloads.
const maxFetchSize = 5 << 20 // 5MB

// Source yields the current inventory records. Fetch is the only suspension
// point of a poll cycle; a canceled fetch must return an error, never a
// partial batch.
type Source interface {
	Fetch(ctx context.Context) ([]inventory.Record, error)
}

// File reads a CSV export from local disk.
type File struct {
	Path string
}

func (f File) Fetch(ctx context.Context) ([]inventory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening feed file: %w", err)
	}
	defer fh.Close()

	records, err := ParseCSV(fh)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return records, nil
}

// HTTP fetches a CSV export from a URL (e.g. a spreadsheet export link).
type HTTP struct {
	URL    string
	Client *http.Client
}

func (h HTTP) Fetch(ctx context.Context) ([]inventory.Record, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching feed: unexpected status %d", resp.StatusCode)
	}

	records, err := ParseCSV(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return nil, fmt.Errorf("parsing feed response: %w", err)
	}
	return records, nil
}
