// Package supabase reads pending orders from the delivery backend's REST API.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"order-notifier/internal/domain/order"
	"order-notifier/internal/domain/session"
	"order-notifier/internal/general/logger"
	"order-notifier/internal/ports"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected backend status")
	ErrMalformedBody    = errors.New("malformed backend response")
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Client queries the orders table over HTTP.
type Client struct {
	http   *http.Client
	logger *logger.Logger
}

// NewClient builds a Client whose requests are bounded by timeout.
func NewClient(timeout time.Duration, logger *logger.Logger) ports.OrderSource {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				MaxIdleConnsPerHost:   2,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		logger: logger,
	}
}

// FetchRecentPending returns up to limit pending orders of the company, newest first.
func (client *Client) FetchRecentPending(
	ctx context.Context,
	creds session.BackendCredentials,
	companyID string,
	limit int,
) ([]order.Summary, error) {
	endpoint, err := ordersURL(creds.BaseURL, companyID, limit)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build orders request: %w", err)
	}
	req.Header.Set("apikey", creds.APIKey)
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read orders response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var rows []orderRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	orders := make([]order.Summary, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.summary())
	}

	client.logger.Debug(ctx, "orders_fetched", "Fetched pending orders", map[string]any{
		"company_id":  companyID,
		"count":       len(orders),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return orders, nil
}

// ordersURL builds the PostgREST query for the newest pending orders.
func ordersURL(base, companyID string, limit int) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/rest/v1/orders")
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid backend url %q", base)
	}

	q := url.Values{}
	q.Set("company_id", "eq."+companyID)
	q.Set("status", "eq."+order.StatusPending.String())
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("select", "*,clients(name,phone),locals(name,address)")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ----- wire types -----

type orderRow struct {
	ID              flexString `json:"id"`
	DeliveryAddress *string    `json:"delivery_address"`
	SuggestedPrice  flexNumber `json:"suggested_price"`
	CreatedAt       flexTime   `json:"created_at"`
	Clients         *named     `json:"clients"`
	Locals          *named     `json:"locals"`
}

type named struct {
	Name *string `json:"name"`
}

func (r orderRow) summary() order.Summary {
	s := order.Summary{
		ID:             string(r.ID),
		SuggestedPrice: float64(r.SuggestedPrice),
	}
	if r.DeliveryAddress != nil {
		s.DeliveryAddress = strings.TrimSpace(*r.DeliveryAddress)
	}
	if !time.Time(r.CreatedAt).IsZero() {
		s.CreatedAt = time.Time(r.CreatedAt).UTC()
	}
	if r.Clients != nil && r.Clients.Name != nil {
		s.ClientName = strings.TrimSpace(*r.Clients.Name)
	}
	if r.Locals != nil && r.Locals.Name != nil {
		s.LocalName = strings.TrimSpace(*r.Locals.Name)
	}
	return s
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*f = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*f = flexString(n.String())
	}
	return nil
}

// flexNumber accepts a JSON number, numeric string or null. Unparseable strings are zero.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*f = 0
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			v = 0
		}
		*f = flexNumber(v)
	default:
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("suggested_price: %w", err)
		}
		*f = flexNumber(v)
	}
	return nil
}

// flexTime accepts RFC 3339 timestamps with or without a zone. Anything else is the zero time.
type flexTime time.Time

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999-07"}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*f = flexTime{}
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	*f = flexTime{}
	return nil
}
