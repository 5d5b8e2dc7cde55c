package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fraudgraph/internal/logger"
	"fraudgraph/internal/metrics"
	"fraudgraph/pkg/models"
)

// ErrNotFound reports a 404 from the case API.
var ErrNotFound = errors.New("upstream: not found")

// Config configures the case API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	Headers map[string]string
}

// Client fetches case data from the upstream case API.
type Client struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	retries int
}

// NewClient creates a case API client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("upstream base URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// Zero means no retries; callers wanting the default pass it explicitly.
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: headers,
		client:  &http.Client{Timeout: timeout},
		retries: retries,
	}, nil
}

// FetchCaseFile assembles the full case file: the case document first,
// then the dependent sources in parallel with an all-or-nothing join.
// A missing sub-resource (404) is recorded in the completeness flags;
// a transport failure fails the whole fetch.
func (c *Client) FetchCaseFile(ctx context.Context, caseID string) (*models.CaseFile, error) {
	var caseDoc models.CaseSummary
	if err := c.getJSON(ctx, "/cases/"+caseID+"/", &caseDoc); err != nil {
		return nil, err
	}

	cf := &models.CaseFile{Case: caseDoc}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var customer models.CustomerProfile
		err := c.getJSON(gctx, "/cases/"+caseID+"/customer/", &customer)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		cf.Customer = &customer
		return nil
	})
	g.Go(func() error {
		var account models.AccountSummary
		err := c.getJSON(gctx, "/cases/"+caseID+"/account/", &account)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		cf.Account = &account
		return nil
	})
	g.Go(func() error {
		return c.getList(gctx, "/cases/"+caseID+"/transactions/", &cf.Transactions)
	})
	g.Go(func() error {
		return c.getList(gctx, "/cases/"+caseID+"/logins/", &cf.Logins)
	})
	g.Go(func() error {
		return c.getList(gctx, "/cases/"+caseID+"/devices/", &cf.Devices)
	})
	g.Go(func() error {
		return c.getList(gctx, "/cases/"+caseID+"/network/", &cf.Connections)
	})
	g.Go(func() error {
		return c.getList(gctx, "/cases/"+caseID+"/prior-cases/", &cf.PriorCases)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	cf.Completeness = models.DataCompleteness{
		KYCData:            cf.Customer != nil,
		TransactionHistory: len(cf.Transactions) > 0,
		LoginHistory:       len(cf.Logins) > 0,
		DeviceData:         len(cf.Devices) > 0,
		NetworkAnalysis:    len(cf.Connections) > 0,
		PriorCases:         len(cf.PriorCases) > 0,
	}
	return cf, nil
}

// getList tolerates a missing collection endpoint.
func (c *Client) getList(ctx context.Context, path string, out interface{}) error {
	err := c.getJSON(ctx, path, out)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// getJSON performs a GET with bounded retries and decodes the body.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			metrics.UpstreamRetries.Inc()
			logger.Warnf("Retrying upstream fetch %s after error: %v", path, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}

		lastErr = c.doOnce(ctx, url, out)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrNotFound) || ctx.Err() != nil {
			return lastErr
		}
	}

	metrics.UpstreamFailures.Inc()
	return fmt.Errorf("upstream fetch %s: %w", path, lastErr)
}

func (c *Client) doOnce(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
