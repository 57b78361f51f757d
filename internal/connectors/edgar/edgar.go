// Package edgar pulls recent material-contract exhibits (EX-10) from 8-K
// filings via the sec-api.io query API, then fetches exhibit bodies directly
// from EDGAR.
package edgar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/parchment-ai/parchment/internal/domain"
	"github.com/parchment-ai/parchment/internal/service"
)

// Deduper lets the connector skip filings that are already stored before
// spending a fetch on them.
type Deduper interface {
	Exists(ctx context.Context, collection, sourceID string) (bool, error)
}

type Config struct {
	APIKey     string
	APIURL     string
	UserAgent  string
	WindowDays int
	MaxFilings int
}

// Connector queries for recent 8-K filings carrying EX-10 exhibits and
// yields each exhibit body as a raw document. Filing identity is the
// sec-api.io filing id, so re-runs skip everything already ingested.
type Connector struct {
	cfg        Config
	httpClient *http.Client
	limiter    Limiter
	deduper    Deduper
	now        func() time.Time
}

func New(cfg Config, httpClient *http.Client, limiter Limiter, deduper Deduper) *Connector {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	if cfg.MaxFilings <= 0 {
		cfg.MaxFilings = 20
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if limiter == nil {
		limiter = NewMinIntervalLimiter(0)
	}
	return &Connector{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
		deduper:    deduper,
		now:        time.Now,
	}
}

func (c *Connector) SourceType() domain.SourceType {
	return domain.SourceTypeLive
}

type filing struct {
	ID          string          `json:"id"`
	AccessionNo string          `json:"accessionNo"`
	Ticker      string          `json:"ticker"`
	CompanyName string          `json:"companyName"`
	FiledAt     string          `json:"filedAt"`
	FormType    string          `json:"formType"`
	Documents   []filingExhibit `json:"documentFormatFiles"`
}

type filingExhibit struct {
	Type        string `json:"type"`
	DocumentURL string `json:"documentUrl"`
}

type queryResponse struct {
	Filings []filing `json:"filings"`
}

// Collect queries the filing feed and yields one raw document per resolvable
// EX-10 exhibit. Per-filing problems (no exhibit, fetch failure) become Err
// items or skips; only the feed query itself can fail the run.
func (c *Connector) Collect(ctx context.Context, yield func(service.RawDocument) error) error {
	if c.cfg.APIKey == "" {
		return domain.NewDomainError(domain.ErrCodeConfiguration, "no SEC API key configured")
	}

	filings, err := c.queryFilings(ctx)
	if err != nil {
		return err
	}

	for _, f := range filings {
		if err := ctx.Err(); err != nil {
			return err
		}

		sourceID := f.ID
		if sourceID == "" {
			sourceID = f.AccessionNo
		}
		if sourceID == "" {
			log.Printf("edgar: filing without id or accession number, skipping")
			continue
		}

		exists, err := c.deduper.Exists(ctx, domain.CollectionLive, sourceID)
		if err != nil {
			if yieldErr := yield(service.RawDocument{
				SourceID: sourceID,
				Err:      domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to check for existing filing", err),
			}); yieldErr != nil {
				return yieldErr
			}
			continue
		}
		if exists {
			continue
		}

		exhibit, ok := firstEX10(f.Documents)
		if !ok {
			log.Printf("edgar: filing %s has no EX-10 exhibit, skipping", sourceID)
			continue
		}

		doc := service.RawDocument{
			SourceID: sourceID,
			Name:     exhibit.Type,
			Origin:   exhibit.DocumentURL,
			Ticker:   f.Ticker,
			Company:  f.CompanyName,
			FiledAt:  parseFiledAt(f.FiledAt),
		}

		body, err := c.fetchExhibit(ctx, exhibit.DocumentURL)
		if err != nil {
			doc.Err = err
		} else {
			doc.Raw = body
		}

		if err := yield(doc); err != nil {
			return err
		}
	}

	return nil
}

// queryFilings asks the query API for 8-K filings with EX-10 exhibits inside
// the lookback window, newest first, capped at MaxFilings.
func (c *Connector) queryFilings(ctx context.Context) ([]filing, error) {
	to := c.now().UTC()
	from := to.AddDate(0, 0, -c.cfg.WindowDays)

	query := map[string]any{
		"query": map[string]any{
			"query_string": map[string]any{
				"query": fmt.Sprintf(
					`formType:"8-K" AND documentFormatFiles.type:"EX-10" AND filedAt:[%s TO %s]`,
					from.Format("2006-01-02"), to.Format("2006-01-02"),
				),
			},
		},
		"from": "0",
		"size": fmt.Sprintf("%d", c.cfg.MaxFilings),
		"sort": []map[string]any{
			{"filedAt": map[string]any{"order": "desc"}},
		},
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNetwork, "failed to reach filing query API", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNetwork, "failed to read filing query response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewDomainError(domain.ErrCodeRemoteAPI,
			fmt.Sprintf("filing query rejected (status %d): %s", resp.StatusCode, truncateBody(body)))
	}

	var parsed queryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRemoteAPI, "failed to decode filing query response", err)
	}

	return parsed.Filings, nil
}

// fetchExhibit downloads one exhibit body from EDGAR. SEC hosts require a
// descriptive User-Agent.
func (c *Connector) fetchExhibit(ctx context.Context, url string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeNetwork, "failed to fetch exhibit", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeNetwork, "failed to read exhibit body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewDomainError(domain.ErrCodeIngestionItem,
			fmt.Sprintf("exhibit fetch rejected (status %d)", resp.StatusCode))
	}

	return string(body), nil
}

// firstEX10 returns the first EX-10 exhibit in document order. Exhibit types
// carry suffixes like EX-10.1, EX-10.2.
func firstEX10(docs []filingExhibit) (filingExhibit, bool) {
	for _, d := range docs {
		if strings.HasPrefix(strings.ToUpper(d.Type), "EX-10") && d.DocumentURL != "" {
			return d, true
		}
	}
	return filingExhibit{}, false
}

func parseFiledAt(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
