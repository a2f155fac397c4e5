// Package backend talks to the receipt-validation backend. It is the only
// network surface besides the vendor SDKs; retry policy for vendor calls
// lives in the billing wrappers, not here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/RevenueCat/purchases-android-sub005/billing"
)

const defaultBaseURL = "https://api.revenuecat.com/v1/"

// Backend error code for a rejected API key.
const backendErrCodeInvalidAPIKey = 7225

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the receipt-validation backend. An empty
// baseURL selects the production endpoint.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// GetAmazonReceiptData resolves the canonical product identifier ("term
// SKU") for an Amazon receipt. Amazon's native receipt only carries the
// parent SKU, so this is the single source of truth for what was actually
// subscribed.
func (c *Client) GetAmazonReceiptData(ctx context.Context, storeUserID, receiptID string) (string, error) {
	endpoint := fmt.Sprintf("%sreceipts/amazon/%s/%s",
		c.baseURL, url.PathEscape(storeUserID), url.PathEscape(receiptID))

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	var result struct {
		TermSku string `json:"termSku"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", billing.WrapError(billing.ErrorCodeUnexpectedBackendResponse,
			"failed to decode receipt data response", err)
	}
	if result.TermSku == "" {
		// A 200 without a term SKU is malformed, not retryable.
		return "", billing.NewError(billing.ErrorCodeUnexpectedBackendResponse,
			"receipt data response missing termSku")
	}
	return result.TermSku, nil
}

// PostReceipt reports an unsynced purchase to the backend. The purchase
// token is the vendor receipt id for Amazon and the vendor purchase token
// for Google.
func (c *Client) PostReceipt(ctx context.Context, appUserID, purchaseToken, storeUserID, productID string) error {
	endpoint := c.baseURL + "receipts"

	payload, err := json.Marshal(map[string]string{
		"app_user_id":   appUserID,
		"fetch_token":   purchaseToken,
		"store_user_id": storeUserID,
		"product_id":    productID,
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode receipt")
	}

	_, err = c.do(ctx, http.MethodPost, endpoint, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build backend request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, billing.WrapError(billing.ErrorCodeNetwork, "backend request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, billing.WrapError(billing.ErrorCodeNetwork, "failed to read backend response", err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}
	return nil, c.toError(resp.StatusCode, body)
}

func (c *Client) toError(statusCode int, body []byte) error {
	var backendErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &backendErr)

	if statusCode == http.StatusUnauthorized || backendErr.Code == backendErrCodeInvalidAPIKey {
		return billing.NewError(billing.ErrorCodeInvalidCredentials, backendErr.Message)
	}

	message := backendErr.Message
	if message == "" {
		message = fmt.Sprintf("unexpected http status code: %d", statusCode)
	}
	return billing.NewError(billing.ErrorCodeUnexpectedBackendResponse, message)
}
