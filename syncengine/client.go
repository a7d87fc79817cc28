package syncengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmfieldworks/drillreports_backend/models"
)

// remoteClient talks to the server of record. One report document per
// call, API-key header auth, bounded timeout. A non-JSON or error-page
// response is a failure, never a crash.
type remoteClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
}

func NewRemoteClient() (Submitter, error) {
	baseURL := strings.TrimSpace(os.Getenv("SYNC_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("SYNC_API_BASE_URL is not set")
	}
	apiKey := strings.TrimSpace(os.Getenv("SYNC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("SYNC_API_KEY is not set")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("SYNC_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	timeout := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("SYNC_TIMEOUT_SECONDS")); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 {
			timeout = d
		}
	}

	return &remoteClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// NewRemoteClientForURL builds a client against an explicit endpoint.
func NewRemoteClientForURL(baseURL, apiKey string, timeout time.Duration) Submitter {
	return &remoteClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: "X-API-Key",
		http:      &http.Client{Timeout: timeout},
	}
}

// reportDocument is the wire shape of one submission. The server id rides
// along on forced resubmissions so the remote can update in place instead
// of creating a duplicate.
type reportDocument struct {
	LocalId       string               `json:"local_id"`
	ServerId      string               `json:"server_id,omitempty"`
	ForceOverride bool                 `json:"force_override,omitempty"`
	Report        *models.ReportRecord `json:"report"`
	Totals        models.ReportTotals  `json:"totals"`
}

func (c *remoteClient) SubmitReport(ctx context.Context, record *models.ReportRecord) (*SubmitResponse, error) {
	doc := reportDocument{
		LocalId:       record.LocalId,
		ServerId:      record.ServerId,
		ForceOverride: record.ForceResubmit,
		Report:        record,
		Totals:        models.DeriveTotals(record),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/reports/sync", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var parsed SubmitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Proxies and captive portals answer with HTML error pages.
		return nil, fmt.Errorf("sync api returned non-JSON response (http %d): %s", resp.StatusCode, trimBody(body))
	}

	switch parsed.Status {
	case RemoteStatusSuccess, RemoteStatusConflict, RemoteStatusFailure:
	default:
		return nil, fmt.Errorf("sync api returned unknown status %q (http %d)", parsed.Status, resp.StatusCode)
	}

	// A structured failure or conflict may arrive on a non-2xx code; only
	// an error code claiming success is inconsistent enough to reject.
	if (resp.StatusCode < 200 || resp.StatusCode >= 300) && parsed.Status == RemoteStatusSuccess {
		return nil, fmt.Errorf("sync api error %d: %s", resp.StatusCode, trimBody(body))
	}

	return &parsed, nil
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
