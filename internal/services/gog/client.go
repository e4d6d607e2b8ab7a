// Package gog implements the catalog client against the GOG account API.
package gog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gogvault/internal/catalog"
	"gogvault/internal/config"
	"gogvault/internal/logging"
	"gogvault/internal/services"
)

// Client talks to the account endpoints. Token lifecycle is out of scope;
// the configured token is sent as-is and auth failures surface as such.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
	logger   *slog.Logger
}

var _ catalog.Client = (*Client)(nil)

// NewClient builds a client from the connection config.
func NewClient(cfg config.GOG, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "gog"),
	}
}

type listResponse struct {
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
	Products   []listProduct `json:"products"`
}

type listProduct struct {
	ID                int64  `json:"id"`
	Slug              string `json:"slug"`
	Title             string `json:"title"`
	IsHidden          bool   `json:"isHidden"`
	Updates           int    `json:"updates"`
	IsNew             bool   `json:"isNew"`
	DownloadsUpdated  string `json:"downloadsUpdated"`
	ExtrasUpdated     string `json:"extrasUpdated"`
	DownloadsChecksum string `json:"downloadsChecksum"`
	ExtrasChecksum    string `json:"extrasChecksum"`
}

type fileEntry struct {
	Name       string `json:"name"`
	Desc       string `json:"desc"`
	OSType     string `json:"osType"`
	Lang       string `json:"lang"`
	Version    string `json:"version"`
	ManualURL  string `json:"manualUrl"`
	MD5        string `json:"md5"`
	Size       int64  `json:"size"`
	Updated    string `json:"updated"`
	Unreleased bool   `json:"unreleased"`
}

type detailResponse struct {
	ID                int64             `json:"id"`
	Slug              string            `json:"slug"`
	Title             string            `json:"title"`
	IsHidden          bool              `json:"isHidden"`
	CDKeys            map[string]string `json:"cdKeys"`
	Changelog         string            `json:"changelog"`
	ReleaseDate       string            `json:"releaseDate"`
	Downloads         []fileEntry       `json:"downloads"`
	Extras            []fileEntry       `json:"extras"`
	DLCs              []detailResponse  `json:"dlcs"`
	DownloadsUpdated  string            `json:"downloadsUpdated"`
	ExtrasUpdated     string            `json:"extrasUpdated"`
	DownloadsChecksum string            `json:"downloadsChecksum"`
	ExtrasChecksum    string            `json:"extrasChecksum"`
}

// ListOwned fetches one page of the owned-products listing. The cursor is
// the page number; an empty cursor means the first page.
func (c *Client) ListOwned(ctx context.Context, cursor string) (catalog.Page, error) {
	page := 1
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 1 {
			return catalog.Page{}, services.Wrap(services.ErrValidation, "gog", "list", "bad cursor "+cursor, err)
		}
		page = parsed
	}

	query := url.Values{}
	query.Set("mediaType", "1")
	query.Set("sortBy", "title")
	query.Set("page", strconv.Itoa(page))
	if c.pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(c.pageSize))
	}

	var resp listResponse
	if err := c.getJSON(ctx, "list", c.baseURL+"/getFilteredProducts?"+query.Encode(), &resp); err != nil {
		return catalog.Page{}, err
	}

	result := catalog.Page{Products: make([]catalog.Product, 0, len(resp.Products))}
	for _, p := range resp.Products {
		result.Products = append(result.Products, catalog.Product{
			ID:                p.ID,
			Slug:              p.Slug,
			Title:             p.Title,
			Hidden:            p.IsHidden,
			HasUpdates:        p.Updates > 0 || p.IsNew,
			DownloadsUpdated:  parseTime(p.DownloadsUpdated),
			ExtrasUpdated:     parseTime(p.ExtrasUpdated),
			DownloadsChecksum: p.DownloadsChecksum,
			ExtrasChecksum:    p.ExtrasChecksum,
		})
	}
	if resp.TotalPages > resp.Page {
		result.Next = strconv.Itoa(resp.Page + 1)
	}
	c.logger.Debug("listing page fetched",
		logging.Int("page", resp.Page),
		logging.Int("of", resp.TotalPages),
		logging.Int("products", len(result.Products)))
	return result, nil
}

// ItemDetail fetches full metadata for one item. DLC downloads and extras
// are folded into the parent item.
func (c *Client) ItemDetail(ctx context.Context, id int64) (catalog.Detail, error) {
	var resp detailResponse
	endpoint := fmt.Sprintf("%s/gameDetails/%d.json", c.baseURL, id)
	if err := c.getJSON(ctx, "detail", endpoint, &resp); err != nil {
		return catalog.Detail{}, err
	}

	detail := catalog.Detail{
		ID:                id,
		Slug:              resp.Slug,
		Title:             resp.Title,
		Hidden:            resp.IsHidden,
		Serials:           resp.CDKeys,
		Changelog:         resp.Changelog,
		Released:          parseTime(resp.ReleaseDate),
		Downloads:         entriesToCatalog(resp.Downloads),
		Extras:            entriesToCatalog(resp.Extras),
		DownloadsUpdated:  parseTime(resp.DownloadsUpdated),
		ExtrasUpdated:     parseTime(resp.ExtrasUpdated),
		DownloadsChecksum: resp.DownloadsChecksum,
		ExtrasChecksum:    resp.ExtrasChecksum,
	}
	if resp.ID != 0 {
		detail.ID = resp.ID
	}
	for _, dlc := range resp.DLCs {
		detail.Downloads = append(detail.Downloads, entriesToCatalog(dlc.Downloads)...)
		detail.Extras = append(detail.Extras, entriesToCatalog(dlc.Extras)...)
	}
	return detail, nil
}

func entriesToCatalog(entries []fileEntry) []catalog.FileEntry {
	out := make([]catalog.FileEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, catalog.FileEntry{
			Name:       e.Name,
			Desc:       e.Desc,
			OSType:     e.OSType,
			Lang:       e.Lang,
			Version:    e.Version,
			Href:       e.ManualURL,
			MD5:        e.MD5,
			Size:       e.Size,
			Updated:    parseTime(e.Updated),
			Unreleased: e.Unreleased,
		})
	}
	return out
}

func (c *Client) getJSON(ctx context.Context, operation, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrFatal, "gog", operation, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "gog", operation, endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrAuth, "gog", operation, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "gog", operation, endpoint, nil)
	default:
		return services.Wrap(services.ErrTransient, "gog", operation, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "gog", operation, "read response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrTransient, "gog", operation, "decode response", err)
	}
	return nil
}

// parseTime accepts the timestamp spellings the API has been seen to emit.
func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	if epoch, err := strconv.ParseInt(value, 10, 64); err == nil && epoch > 0 {
		return time.Unix(epoch, 0).UTC()
	}
	return time.Time{}
}
