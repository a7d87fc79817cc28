package syncengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmfieldworks/drillreports_backend/models"
)

func TestRemoteClient_SubmitReport(t *testing.T) {
	var gotKey, gotPath string
	var gotDoc map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotDoc); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(SubmitResponse{Status: RemoteStatusSuccess, ServerId: "srv-42"})
	}))
	defer server.Close()

	client := NewRemoteClientForURL(server.URL, "secret-key", 5*time.Second)
	record := &models.ReportRecord{
		LocalId:       "local-1",
		SiteLocation:  "Nkawie",
		JobType:       models.JobTypeDirect,
		ForceResubmit: true,
		ServerId:      "srv-old",
	}

	resp, err := client.SubmitReport(context.Background(), record)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.Status != RemoteStatusSuccess || resp.ServerId != "srv-42" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if gotKey != "secret-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotPath != "/v1/reports/sync" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotDoc["local_id"] != "local-1" || gotDoc["server_id"] != "srv-old" || gotDoc["force_override"] != true {
		t.Fatalf("document must carry id and override fields, got %+v", gotDoc)
	}
	if _, ok := gotDoc["totals"]; !ok {
		t.Fatal("document must carry derived totals")
	}
}

func TestRemoteClient_ConflictOnErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(SubmitResponse{
			Status:     RemoteStatusConflict,
			ServerData: json.RawMessage(`{"site_location":"Nkawie"}`),
		})
	}))
	defer server.Close()

	client := NewRemoteClientForURL(server.URL, "k", 5*time.Second)
	resp, err := client.SubmitReport(context.Background(), &models.ReportRecord{LocalId: "local-1"})
	if err != nil {
		t.Fatalf("a structured conflict on a 409 is a valid answer: %v", err)
	}
	if resp.Status != RemoteStatusConflict || len(resp.ServerData) == 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRemoteClient_RejectsNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer server.Close()

	client := NewRemoteClientForURL(server.URL, "k", 5*time.Second)
	_, err := client.SubmitReport(context.Background(), &models.ReportRecord{LocalId: "local-1"})
	if err == nil || !strings.Contains(err.Error(), "non-JSON") {
		t.Fatalf("an HTML error page must be a transport failure, got %v", err)
	}
}

func TestRemoteClient_RejectsUnknownStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "maybe"})
	}))
	defer server.Close()

	client := NewRemoteClientForURL(server.URL, "k", 5*time.Second)
	_, err := client.SubmitReport(context.Background(), &models.ReportRecord{LocalId: "local-1"})
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("an unrecognized status must be rejected, got %v", err)
	}
}

func TestRemoteClient_RejectsSuccessOnErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(SubmitResponse{Status: RemoteStatusSuccess, ServerId: "srv-1"})
	}))
	defer server.Close()

	client := NewRemoteClientForURL(server.URL, "k", 5*time.Second)
	_, err := client.SubmitReport(context.Background(), &models.ReportRecord{LocalId: "local-1"})
	if err == nil {
		t.Fatal("a 500 claiming success must be rejected")
	}
}
