package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/technoKC/fraud-shield/internal/cache"
	"github.com/technoKC/fraud-shield/internal/domain"
	"github.com/technoKC/fraud-shield/internal/engine"
	"github.com/technoKC/fraud-shield/internal/monitor"
	"github.com/technoKC/fraud-shield/internal/override"
	"github.com/technoKC/fraud-shield/internal/rules"
)

const testCSV = `TRANSACTION_ID,TXN_TIMESTAMP,AMOUNT,PAYER_VPA,BENEFICIARY_VPA,IS_FRAUD
TXN_1,2024-01-17 14:30:00,9999,bonus-pay@upi,merchant@okhdfc,0
TXN_2,2024-01-17 14:31:00,500,alice@okhdfc,merchant@okhdfc,0
`

// createTestServer wires a server from in-memory components.
func createTestServer(t *testing.T, apiKeys map[string][]string) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
		APIKeys:      apiKeys,
	}

	screening, err := rules.NewScreeningEngine()
	if err != nil {
		t.Fatalf("failed to create screening engine: %v", err)
	}

	eng := engine.New(domain.EngineConfig{MaxWorkers: 4}, screening)

	c, err := cache.New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100, LocalTTL: 60})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	m := monitor.New(monitor.NewMemoryStore(), domain.MonitorConfig{}, nil)

	return NewServer(cfg, eng, screening, nil, c, nil, override.NewMemoryStore(), m, "test-v1")
}

func uploadCSV(t *testing.T, csv string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "transactions.csv")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(csv)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	mw.Close()

	return body, mw.FormDataContentType()
}

func TestDetectEndpoint(t *testing.T) {
	server := createTestServer(t, nil)

	t.Run("SuccessfulAnalysis", func(t *testing.T) {
		body, contentType := uploadCSV(t, testCSV)

		req := httptest.NewRequest(http.MethodPost, "/detect", body)
		req.Header.Set("Content-Type", contentType)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var report domain.BatchReport
		if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}

		if report.ReportID == "" {
			t.Error("expected report_id in response")
		}
		if report.TotalTransactions != 2 {
			t.Errorf("expected 2 transactions, got %d", report.TotalTransactions)
		}
		if len(report.Results) != 2 {
			t.Errorf("expected 2 result entries, got %d", len(report.Results))
		}
	})

	t.Run("ReportRetrievableAfterAnalysis", func(t *testing.T) {
		body, contentType := uploadCSV(t, testCSV)

		req := httptest.NewRequest(http.MethodPost, "/detect", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		var report domain.BatchReport
		if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}

		getReq := httptest.NewRequest(http.MethodGet, "/reports/"+report.ReportID, nil)
		getRR := httptest.NewRecorder()
		server.Router().ServeHTTP(getRR, getReq)

		if getRR.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", getRR.Code)
		}

		var cached domain.BatchReport
		if err := json.Unmarshal(getRR.Body.Bytes(), &cached); err != nil {
			t.Fatalf("failed to parse cached report: %v", err)
		}
		if cached.ReportID != report.ReportID {
			t.Errorf("expected report %s, got %s", report.ReportID, cached.ReportID)
		}
	})

	t.Run("UnknownReport", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reports/nonexistent", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("MissingFileField", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/detect", bytes.NewBufferString("plain body"))
		req.Header.Set("Content-Type", "text/plain")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingColumns", func(t *testing.T) {
		body, contentType := uploadCSV(t, "TRANSACTION_ID,AMOUNT\nTXN_1,100\n")

		req := httptest.NewRequest(http.MethodPost, "/detect", body)
		req.Header.Set("Content-Type", contentType)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
		}
	})
}

func TestOverrideEndpoints(t *testing.T) {
	server := createTestServer(t, nil)

	t.Run("SetStatus", func(t *testing.T) {
		body, _ := json.Marshal(UpdateStatusRequest{
			Status:    "blocked",
			UpdatedBy: "analyst-7",
		})
		req := httptest.NewRequest(http.MethodPut, "/transactions/TXN_1/status", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var ov domain.Override
		if err := json.Unmarshal(rr.Body.Bytes(), &ov); err != nil {
			t.Fatalf("failed to parse override: %v", err)
		}
		if ov.Status != domain.StatusBlocked {
			t.Errorf("expected blocked, got %s", ov.Status)
		}
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		body, _ := json.Marshal(UpdateStatusRequest{Status: "SUSPICIOUS"})
		req := httptest.NewRequest(http.MethodPut, "/transactions/TXN_1/status", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("CompareAndSwapConflict", func(t *testing.T) {
		// TXN_1 is blocked; expecting verified must conflict.
		body, _ := json.Marshal(UpdateStatusRequest{
			Status:         "flagged",
			ExpectedStatus: "verified",
			UpdatedBy:      "analyst-9",
		})
		req := httptest.NewRequest(http.MethodPut, "/transactions/TXN_1/status", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("ListOverrides", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/overrides", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("expected 1 override, got %d", resp.Count)
		}
	})

	t.Run("OverrideVisibleInReport", func(t *testing.T) {
		body, contentType := uploadCSV(t, testCSV)
		req := httptest.NewRequest(http.MethodPost, "/detect", body)
		req.Header.Set("Content-Type", contentType)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		var report domain.BatchReport
		if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}

		found := false
		for _, entry := range report.Results {
			if entry.Transaction.TransactionID == "TXN_1" {
				found = true
				if entry.Transaction.Status != "blocked" {
					t.Errorf("expected blocked status on TXN_1, got %q", entry.Transaction.Status)
				}
			} else if entry.Transaction.Status != "" {
				t.Errorf("unexpected status on %s: %q", entry.Transaction.TransactionID, entry.Transaction.Status)
			}
		}
		if !found {
			t.Error("TXN_1 missing from results")
		}
	})
}

func TestRuleEndpoints(t *testing.T) {
	server := createTestServer(t, nil)

	t.Run("CreateRuleValidatesExpression", func(t *testing.T) {
		body, _ := json.Marshal(CreateRuleRequest{
			ID:         "r1",
			Name:       "bad rule",
			Expression: "amount >",
			Enabled:    true,
		})
		req := httptest.NewRequest(http.MethodPost, "/rules", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for bad CEL, got %d", rr.Code)
		}
	})

	t.Run("CreateRuleAcceptsValidExpression", func(t *testing.T) {
		body, _ := json.Marshal(CreateRuleRequest{
			ID:         "r2",
			Name:       "high amount",
			Expression: "amount >= 100000.0",
			Reason:     "amount at or above screening threshold",
			Enabled:    true,
		})
		req := httptest.NewRequest(http.MethodPost, "/rules", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("ListRulesWithoutRepository", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rules", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503 without repository, got %d", rr.Code)
		}
	})
}

func TestCapabilityEnforcement(t *testing.T) {
	keys := map[string][]string{
		"admin-key": {CapabilityOverride, CapabilityRules, CapabilityAdmin},
		"rules-key": {CapabilityRules},
	}
	server := createTestServer(t, keys)

	t.Run("MissingKeyRejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/overrides", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", rr.Code)
		}
	})

	t.Run("WrongCapabilityRejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/security/dashboard", nil)
		req.Header.Set(APIKeyHeader, "rules-key")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", rr.Code)
		}
	})

	t.Run("AdminKeyAllowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/security/dashboard", nil)
		req.Header.Set(APIKeyHeader, "admin-key")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("DetectStaysPublic", func(t *testing.T) {
		body, contentType := uploadCSV(t, testCSV)
		req := httptest.NewRequest(http.MethodPost, "/detect", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200 without key, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t, nil)

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})

	t.Run("CapabilityMiddlewareOpenWithoutKeys", func(t *testing.T) {
		var hasAdmin bool

		handler := CapabilityMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAdmin = HasCapability(r.Context(), CapabilityAdmin)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if !hasAdmin {
			t.Error("expected all capabilities when no keys configured")
		}
	})

	t.Run("RateLimitEnforced", func(t *testing.T) {
		c, err := cache.New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10, LocalTTL: 60})
		if err != nil {
			t.Fatalf("failed to create cache: %v", err)
		}

		handler := RateLimitMiddleware(c, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.1.1.1:1234"
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
			}
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.1.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429 after limit, got %d", rr.Code)
		}

		// A different client is unaffected.
		other := httptest.NewRequest(http.MethodGet, "/", nil)
		other.RemoteAddr = "10.2.2.2:1234"
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, other)

		if rr.Code != http.StatusOK {
			t.Errorf("expected 200 for different IP, got %d", rr.Code)
		}
	})
}
