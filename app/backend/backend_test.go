package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emprendyup/ms-go-reconciler/app/entity"
)

func TestWebhookClientForward(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "app-key" {
			t.Errorf("unexpected api key header: %q", r.Header.Get("X-API-Key"))
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, "app-key", time.Second)
	resp, err := client.Forward(context.Background(), []byte(`{"orderId":"ORDER-7"}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(resp) != `{"ok":true}` {
		t.Fatalf("unexpected backend response: %s", string(resp))
	}
	if received["orderId"] != "ORDER-7" {
		t.Fatalf("unexpected forwarded payload: %v", received)
	}
}

func TestWebhookClientForwardPlainTextReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("accepted"))
	}))
	defer srv.Close()

	resp, err := NewWebhookClient(srv.URL, "", time.Second).Forward(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(resp) != `"accepted"` {
		t.Fatalf("expected quoted reply, got %s", string(resp))
	}
}

func TestWebhookClientForwardErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewWebhookClient(srv.URL, "", time.Second).Forward(context.Background(), []byte(`{}`))
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}

	_, err = NewWebhookClient("", "", time.Second).Forward(context.Background(), []byte(`{}`))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGraphQLClientFindPaymentByOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("unexpected authorization: %q", r.Header.Get("Authorization"))
		}
		var req GraphQLRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		if !strings.Contains(req.Query, "paymentByOrderId") || req.Variables["orderId"] == nil {
			t.Errorf("unexpected request: %+v", req)
		}
		switch req.Variables["orderId"] {
		case "ORDER-1":
			_, _ = w.Write([]byte(`{"data":{"paymentByOrderId":{"id":"pay-1","status":"PENDING","transactionId":"T0"}}}`))
		default:
			_, _ = w.Write([]byte(`{"data":{"paymentByOrderId":null}}`))
		}
	}))
	defer srv.Close()

	client := NewGraphQLClient(srv.URL, "token-1", time.Second)

	record, err := client.FindPaymentByOrder(context.Background(), "ORDER-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if record == nil || record.ID != "pay-1" || record.Status != entity.PaymentStatusPending || record.OrderID != "ORDER-1" {
		t.Fatalf("unexpected record: %+v", record)
	}

	record, err = client.FindPaymentByOrder(context.Background(), "ORDER-2")
	if err != nil || record != nil {
		t.Fatalf("expected nil record without error, got %+v %v", record, err)
	}
}

func TestGraphQLClientUpdatePayment(t *testing.T) {
	var captured GraphQLRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = w.Write([]byte(`{"data":{"updatePayment":{"id":"pay-1","status":"COMPLETED"}}}`))
	}))
	defer srv.Close()

	completedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := NewGraphQLClient(srv.URL, "", time.Second).UpdatePayment(context.Background(), "pay-1", &entity.PaymentUpdate{
		Status:        entity.PaymentStatusCompleted,
		TransactionID: "987",
		CompletedAt:   &completedAt,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(captured.Query, "mutation UPDATE_PAYMENT") || captured.Variables["id"] != "pay-1" {
		t.Fatalf("unexpected mutation: %+v", captured)
	}
	input, _ := captured.Variables["input"].(map[string]interface{})
	if input["status"] != "COMPLETED" || input["transactionId"] != "987" || input["completedAt"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected mutation input: %v", input)
	}
	if _, ok := input["errorCode"]; ok {
		t.Fatalf("errorCode must be omitted for completed payments: %v", input)
	}
}

func TestGraphQLErrorsInOKResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"payment not found"}]}`))
	}))
	defer srv.Close()

	err := NewGraphQLClient(srv.URL, "", time.Second).UpdatePayment(context.Background(), "pay-1", &entity.PaymentUpdate{Status: entity.PaymentStatusFailed})
	if !errors.Is(err, ErrGraphQL) {
		t.Fatalf("expected ErrGraphQL, got %v", err)
	}
}

func TestGraphQLServerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewGraphQLClient(srv.URL, "", time.Second).FindPaymentByOrder(context.Background(), "ORDER-1")
	if !errors.Is(err, ErrGraphQL) {
		t.Fatalf("expected ErrGraphQL, got %v", err)
	}
}

func TestGraphQLClientNotConfigured(t *testing.T) {
	_, err := NewGraphQLClient("  ", "token", time.Second).FindPaymentByOrder(context.Background(), "ORDER-1")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestParseUpdatePaymentRequest(t *testing.T) {
	code := "MP_CC_REJECTED"
	body, err := BuildUpdatePaymentRequest("pay-3", &entity.PaymentUpdate{Status: entity.PaymentStatusRejected, TransactionID: "55", ErrorCode: &code})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	paymentID, update, err := ParseUpdatePaymentRequest(body)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if paymentID != "pay-3" || update.Status != entity.PaymentStatusRejected || update.TransactionID != "55" {
		t.Fatalf("unexpected update: %s %+v", paymentID, update)
	}
	if update.ErrorCode == nil || *update.ErrorCode != code {
		t.Fatalf("expected error code to survive, got %v", update.ErrorCode)
	}

	for _, raw := range []string{`not json`, `{"query":"mutation"}`, `{"variables":{"id":"pay-3","input":{}}}`} {
		if _, _, err := ParseUpdatePaymentRequest([]byte(raw)); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload for %s, got %v", raw, err)
		}
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	value := strings.Repeat("a", 9) + "ñandú"

	got := truncate(value, 10)
	if got != strings.Repeat("a", 9) {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncate(value, 11); got != strings.Repeat("a", 9)+"ñ" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if truncate("short", 512) != "short" {
		t.Fatal("short values must be returned unchanged")
	}
}
