package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
)

// Keys of the device key/value store.
const (
	KeyDriver       = "driver"
	KeyIsOnline     = "isOnline"
	KeyBackendURL   = "supabase_url"
	KeyBackendKey   = "supabase_key"
	KeyLastNotified = "last_notified_order_id"
)

// SnapshotKeys lists every key a poll reads.
var SnapshotKeys = []string{KeyDriver, KeyIsOnline, KeyBackendURL, KeyBackendKey, KeyLastNotified}

var (
	ErrMalformedDriver = errors.New("malformed driver blob")
	ErrNamespaceEmpty  = errors.New("namespace is required")
)

// DriverSession is the identity and availability of the driver on the device.
type DriverSession struct {
	DriverID  string
	CompanyID string
	IsOnline  bool
}

// Complete reports whether both identifiers are present.
func (d DriverSession) Complete() bool {
	return d.DriverID != "" && d.CompanyID != ""
}

// BackendCredentials locate and authorize the orders backend.
type BackendCredentials struct {
	BaseURL string
	APIKey  string
}

// Marker is the id of the last order already shown to the driver. Empty means none.
type Marker struct {
	OrderID string
}

// Set reports whether a marker exists.
func (m Marker) Set() bool {
	return m.OrderID != ""
}

// Snapshot is an immutable read of the device store taken at the start of a poll.
type Snapshot struct {
	values map[string]string
}

// NewSnapshot copies values into a new Snapshot.
func NewSnapshot(values map[string]string) Snapshot {
	return Snapshot{values: maps.Clone(values)}
}

func (s Snapshot) lookup(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Online reports the normalized isOnline flag.
func (s Snapshot) Online() bool {
	raw, ok := s.lookup(KeyIsOnline)
	if !ok {
		return false
	}
	return ParseOnlineFlag(raw)
}

// Driver returns the parsed driver session. ok is false when the driver key is absent.
func (s Snapshot) Driver() (DriverSession, bool, error) {
	raw, ok := s.lookup(KeyDriver)
	if !ok || strings.TrimSpace(raw) == "" {
		return DriverSession{}, false, nil
	}

	d, err := ParseDriver(raw)
	if err != nil {
		return DriverSession{}, true, err
	}
	d.IsOnline = s.Online()
	return d, true, nil
}

// Credentials returns the backend credentials. ok is false when either is missing
// or the URL is not an absolute http(s) URL.
func (s Snapshot) Credentials() (BackendCredentials, bool) {
	base, _ := s.lookup(KeyBackendURL)
	key, _ := s.lookup(KeyBackendKey)
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	key = strings.TrimSpace(key)
	if base == "" || key == "" || !ValidBackendURL(base) {
		return BackendCredentials{}, false
	}
	return BackendCredentials{BaseURL: base, APIKey: key}, true
}

// ValidBackendURL reports whether raw is an absolute http or https URL with a host.
func ValidBackendURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

// Marker returns the last notified order marker.
func (s Snapshot) Marker() Marker {
	v, _ := s.lookup(KeyLastNotified)
	return Marker{OrderID: strings.TrimSpace(v)}
}

// ParseOnlineFlag normalizes the stored isOnline flag.
//
// Accepted true forms: true and "true" in any letter case, with surrounding
// whitespace and any number of double quotes. Every other value is false.
func ParseOnlineFlag(raw string) bool {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, `"`, ""))
	return strings.EqualFold(cleaned, "true")
}

// ParseDriver decodes the driver blob written by the app. Ids may be JSON strings or numbers,
// and the company id may be stored as companyId or company_id.
func ParseDriver(raw string) (DriverSession, error) {
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()

	var blob map[string]any
	if err := dec.Decode(&blob); err != nil {
		return DriverSession{}, fmt.Errorf("%w: %v", ErrMalformedDriver, err)
	}

	company := idString(blob["companyId"])
	if company == "" {
		company = idString(blob["company_id"])
	}

	return DriverSession{
		DriverID:  idString(blob["id"]),
		CompanyID: company,
	}, nil
}

// EncodeDriver builds the driver blob stored under KeyDriver.
func EncodeDriver(driverID, companyID string) (string, error) {
	b, err := json.Marshal(map[string]string{"id": driverID, "companyId": companyID})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FormatOnlineFlag is the inverse of ParseOnlineFlag.
func FormatOnlineFlag(online bool) string {
	if online {
		return "true"
	}
	return "false"
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
