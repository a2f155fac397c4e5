package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RevenueCat/purchases-android-sub005/billing"
)

func TestClient_GetAmazonReceiptData(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{"termSku": "premium.monthly"})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL+"/v1/")
	termSku, err := client.GetAmazonReceiptData(context.Background(), "amazon-user", "receipt-1")
	require.NoError(t, err)
	require.Equal(t, "premium.monthly", termSku)
	require.Equal(t, "/v1/receipts/amazon/amazon-user/receipt-1", gotPath)
	require.Equal(t, "Bearer test-key", gotAuth)
}

func TestClient_GetAmazonReceiptData_MissingTermSku(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL+"/v1/")
	_, err := client.GetAmazonReceiptData(context.Background(), "amazon-user", "receipt-1")
	require.Error(t, err)
	require.Equal(t, billing.ErrorCodeUnexpectedBackendResponse, billing.CodeOf(err))
}

func TestClient_InvalidCredentials(t *testing.T) {
	t.Run("http 401", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewClient("bad-key", server.URL+"/v1/")
		_, err := client.GetAmazonReceiptData(context.Background(), "amazon-user", "receipt-1")
		require.Equal(t, billing.ErrorCodeInvalidCredentials, billing.CodeOf(err))
	})

	t.Run("backend error code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code":    7225,
				"message": "Invalid API Key.",
			})
		}))
		defer server.Close()

		client := NewClient("bad-key", server.URL+"/v1/")
		err := client.PostReceipt(context.Background(), "user-1", "token", "", "premium")
		require.Equal(t, billing.ErrorCodeInvalidCredentials, billing.CodeOf(err))
	})
}

func TestClient_PostReceipt(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/receipts", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL+"/v1/")
	err := client.PostReceipt(context.Background(), "user-1", "token-1", "amazon-user", "premium.monthly")
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"app_user_id":   "user-1",
		"fetch_token":   "token-1",
		"store_user_id": "amazon-user",
		"product_id":    "premium.monthly",
	}, gotBody)
}

func TestClient_NetworkErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient("test-key", server.URL+"/v1/")
	_, err := client.GetAmazonReceiptData(context.Background(), "amazon-user", "receipt-1")
	require.Equal(t, billing.ErrorCodeNetwork, billing.CodeOf(err))
}
