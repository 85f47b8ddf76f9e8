package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/siftlabs/ragcore/core"
)

// Fetcher retrieves the raw content for one source identifier. The
// extraction quality is the fetch layer's concern; the pipeline indexes
// whatever comes back.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (core.Document, error)
}

// Several news sites refuse requests without a browser User-Agent.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0 Safari/537.36"

const maxFetchBytes = 10 << 20

// HTTPFetcher fetches source documents over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client gets a 30s
// timeout default.
func NewHTTPFetcher(client *http.Client, logger *zap.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{client: client, logger: logger}
}

// Fetch downloads one URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) (core.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return core.Document{}, &core.FetchError{Source: source, Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return core.Document{}, &core.FetchError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return core.Document{}, &core.FetchError{
			Source: source,
			Err:    fmt.Errorf("status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return core.Document{}, &core.FetchError{Source: source, Err: err}
	}
	f.logger.Debug("fetched source", zap.String("source", source), zap.Int("bytes", len(body)))
	return core.Document{Source: source, Content: string(body)}, nil
}

// FAQFetcher loads a CSV file of question/answer pairs into a single
// document of "Q: ...\nA: ..." paragraphs, ready for paragraph-level
// chunking.
type FAQFetcher struct{}

// Fetch reads one CSV file. The header row must contain question and
// answer columns.
func (FAQFetcher) Fetch(ctx context.Context, source string) (core.Document, error) {
	file, err := os.Open(source)
	if err != nil {
		return core.Document{}, &core.FetchError{Source: source, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return core.Document{}, &core.FetchError{Source: source, Err: fmt.Errorf("read header: %w", err)}
	}

	qCol, aCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question":
			qCol = i
		case "answer":
			aCol = i
		}
	}
	if qCol < 0 || aCol < 0 {
		return core.Document{}, &core.FetchError{
			Source: source,
			Err:    fmt.Errorf("missing question/answer columns in header %v", header),
		}
	}

	var entries []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.Document{}, &core.FetchError{Source: source, Err: err}
		}
		if qCol >= len(row) || aCol >= len(row) {
			continue
		}
		q := strings.TrimSpace(row[qCol])
		a := strings.TrimSpace(row[aCol])
		if q == "" && a == "" {
			continue
		}
		entries = append(entries, fmt.Sprintf("Q: %s\nA: %s", q, a))
	}

	return core.Document{Source: source, Content: strings.Join(entries, "\n\n")}, nil
}

// AutoFetcher dispatches on the source identifier: URLs go over HTTP,
// .csv paths load as FAQ files, anything else is read as a plain text
// file.
type AutoFetcher struct {
	HTTP Fetcher
	FAQ  Fetcher
}

// NewAutoFetcher creates an AutoFetcher with the default sub-fetchers.
func NewAutoFetcher(logger *zap.Logger) *AutoFetcher {
	return &AutoFetcher{
		HTTP: NewHTTPFetcher(nil, logger),
		FAQ:  FAQFetcher{},
	}
}

// Fetch dispatches one source.
func (a *AutoFetcher) Fetch(ctx context.Context, source string) (core.Document, error) {
	switch {
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		return a.HTTP.Fetch(ctx, source)
	case strings.HasSuffix(strings.ToLower(source), ".csv"):
		return a.FAQ.Fetch(ctx, source)
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return core.Document{}, &core.FetchError{Source: source, Err: err}
		}
		return core.Document{Source: source, Content: string(data)}, nil
	}
}
