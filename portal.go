/*
Copyright 2024 AgentX Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package agentx

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mr-tron/base58"

	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/internal/request"
)

const (
	portalConnectTimeout = 8 * time.Second
	portalTotalTimeout   = 20 * time.Second

	// maxLogoBytes bounds the campaign logo download.
	maxLogoBytes = 8 << 20

	// walletSecretLen is the length of a decoded ed25519 secret key.
	walletSecretLen = 64

	// mintLen is the length of a decoded mint address.
	mintLen = 32

	// walletIssueRetries bounds retries of transient wallet issuance failures.
	walletIssueRetries = 3
)

// Wallet is the signing identity used to submit trades to the launch
// portal. SecretKey is base58-encoded and must never be logged.
type Wallet struct {
	APIKey    string `json:"api_key"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

// TokenMetadata is the descriptive payload uploaded to the content store
// ahead of a launch.
type TokenMetadata struct {
	Name        string
	Symbol      string
	Description string
	Website     string
	Telegram    string
	Twitter     string
}

// TradeRequest is a create-and-buy submission to the launch portal.
type TradeRequest struct {
	Name        string
	Symbol      string
	MetadataURI string
	MintSecret  string
	DevBuySol   float64
	Slippage    int
	PriorityFee float64
}

// TradeResult is the portal's answer to a create-and-buy submission.
type TradeResult struct {
	Signature string
	Mint      string
}

// PortalClient talks to the external launch portal: wallet issuance, asset
// and metadata upload, and trade submission. Every call runs under the
// connect/total timeout budget.
type PortalClient struct {
	walletURL string
	uploadURL string
	tradeURL  string
	client    *http.Client
}

func NewPortalClient(conf config.PortalConfig) *PortalClient {
	return &PortalClient{
		walletURL: conf.WalletURL,
		uploadURL: conf.UploadURL,
		tradeURL:  conf.TradeURL,
		client:    request.NewHTTPClient(portalConnectTimeout, portalTotalTimeout),
	}
}

// CreateWallet requests a fresh signing wallet from the issuance endpoint.
// The portal has shipped several response shapes over time, so each field
// is accepted under its known alternate names. The secret key must decode
// from base58 to exactly 64 bytes.
func (p *PortalClient) CreateWallet(ctx context.Context) (*Wallet, error) {
	var body map[string]interface{}
	issue := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.walletURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		body = map[string]interface{}{}
		resp, err := request.Call(p.client, req, &body)
		if err != nil {
			return fmt.Errorf("wallet issuance failed: %v", err)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("wallet issuance returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("wallet issuance returned status %d", resp.StatusCode))
		}
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), walletIssueRetries), ctx)
	if err := backoff.Retry(issue, bo); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrExternalCallFailed, err.Error(), nil)
	}

	wallet := &Wallet{
		APIKey:    firstString(body, "apiKey", "api_key"),
		PublicKey: firstString(body, "walletPublicKey", "publicKey", "public_key", "address"),
		SecretKey: firstString(body, "privateKey", "walletPrivateKey", "secretKey", "secret_key"),
	}
	if wallet.APIKey == "" || wallet.PublicKey == "" || wallet.SecretKey == "" {
		return nil, apierror.NewAPIError(apierror.ErrResponseInvalid, "wallet issuance response missing required fields", nil)
	}

	decoded, err := base58.Decode(wallet.SecretKey)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrResponseInvalid, "wallet secret key is not valid base58", nil)
	}
	if len(decoded) != walletSecretLen {
		return nil, apierror.NewAPIError(apierror.ErrResponseInvalid, fmt.Sprintf("wallet secret key decodes to %d bytes, want %d", len(decoded), walletSecretLen), nil)
	}

	return wallet, nil
}

// FetchLogo downloads the campaign logo, bounded to 8 MiB. It returns the
// image bytes and the reported content type.
func (p *PortalClient) FetchLogo(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("logo fetch failed: %v", err), nil)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, "", apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("logo fetch returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes+1))
	if err != nil {
		return nil, "", apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("logo read failed: %v", err), nil)
	}
	if len(data) > maxLogoBytes {
		return nil, "", apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("logo exceeds %d bytes", maxLogoBytes), nil)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// UploadMetadata packages the logo with the campaign metadata as multipart
// form data and uploads it to the content store, returning the metadata URI
// used in the trade submission.
func (p *PortalClient) UploadMetadata(ctx context.Context, meta TokenMetadata, logo []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"name":        meta.Name,
		"symbol":      meta.Symbol,
		"description": meta.Description,
		"website":     meta.Website,
		"telegram":    meta.Telegram,
		"twitter":     meta.Twitter,
		"showName":    "true",
	}
	for k, v := range fields {
		if v == "" && k != "name" && k != "symbol" && k != "showName" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return "", err
		}
	}

	fw, err := w.CreateFormFile("file", "logo.png")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(logo); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("metadata upload failed: %v", err), nil)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("metadata upload returned status %d", resp.StatusCode), nil)
	}

	var body map[string]interface{}
	if err := decodeJSON(resp.Body, &body); err != nil {
		return "", apierror.NewAPIError(apierror.ErrResponseInvalid, fmt.Sprintf("metadata upload response unreadable: %v", err), nil)
	}

	uri := firstString(body, "metadataUri", "metadata_uri", "uri")
	if uri == "" {
		return "", apierror.NewAPIError(apierror.ErrResponseInvalid, "metadata upload response missing metadata URI", nil)
	}
	return uri, nil
}

// SubmitCreateAndBuy submits the create-and-buy trade to the launch portal,
// authenticated by the wallet's API key.
func (p *PortalClient) SubmitCreateAndBuy(ctx context.Context, apiKey string, trade TradeRequest) (*TradeResult, error) {
	payload := map[string]interface{}{
		"action": "create",
		"tokenMetadata": map[string]string{
			"name":   trade.Name,
			"symbol": trade.Symbol,
			"uri":    trade.MetadataURI,
		},
		"mint":             trade.MintSecret,
		"denominatedInSol": "true",
		"amount":           trade.DevBuySol,
		"slippage":         trade.Slippage,
		"priorityFee":      trade.PriorityFee,
		"pool":             "pump",
	}

	body, err := request.ToJsonReq(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s?api-key=%s", p.tradeURL, apiKey), body)
	if err != nil {
		return nil, err
	}

	var response map[string]interface{}
	resp, err := request.Call(p.client, req, &response)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("trade submission failed: %v", err), nil)
	}
	if resp.StatusCode >= 300 {
		return nil, apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("trade submission returned status %d", resp.StatusCode), nil)
	}
	if errMsg := firstString(response, "errors", "error"); errMsg != "" {
		return nil, apierror.NewAPIError(apierror.ErrExternalCallFailed, fmt.Sprintf("trade rejected: %s", errMsg), nil)
	}

	signature := firstString(response, "signature", "tx_signature")
	if signature == "" {
		return nil, apierror.NewAPIError(apierror.ErrResponseInvalid, "trade response missing signature", nil)
	}

	return &TradeResult{
		Signature: signature,
		Mint:      firstString(response, "mint", "mintAddress"),
	}, nil
}

// NewMintKeypair generates a fresh single-use keypair for a new token. It
// returns the base58 public mint address and the base58 64-byte secret key
// submitted with the trade.
func NewMintKeypair() (mint string, secret string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	return base58.Encode(pub), base58.Encode(priv), nil
}

// ValidateMint checks that a portal-echoed mint address matches the locally
// generated one and decodes to the expected byte length.
func ValidateMint(local, echoed string) error {
	if echoed != "" && echoed != local {
		return apierror.NewAPIError(apierror.ErrMintMismatch, fmt.Sprintf("portal echoed mint %s, expected %s", echoed, local), nil)
	}
	decoded, err := base58.Decode(local)
	if err != nil || len(decoded) != mintLen {
		return apierror.NewAPIError(apierror.ErrResponseInvalid, "mint address does not decode to 32 bytes", nil)
	}
	return nil
}

func firstString(body map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := body[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func decodeJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}
