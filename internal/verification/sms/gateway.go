// Package sms delivers verification codes: through Alibaba Cloud Dysmsapi or a generic HTTP SMS
// gateway in deployed environments, or into the in-memory dev store when dev verification codes
// are enabled.
package sms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"account-service/backend/internal/devotp"
	"account-service/backend/internal/verification/domain"
)

const defaultTimeout = 15 * time.Second

// Message is one verification code to deliver.
type Message struct {
	Phone      string
	Purpose    domain.Purpose
	TemplateID string
	Code       string
}

// Sender delivers a verification code to a phone.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// GatewayClient sends template SMS through a self-hosted HTTP gateway. Each request is a JSON POST
// of {phone_numbers, sign_name, template_code, template_param} carrying the access key id in
// X-Access-Key-Id and a hex HMAC-SHA256 of the body in X-Signature. The gateway answers 200 with
// {"code":"OK"} on success.
type GatewayClient struct {
	BaseURL         string
	AccessKeyID     string
	AccessKeySecret string
	SignName        string
	HTTPClient      *http.Client
}

// NewGatewayClient returns a client for the gateway at baseURL.
func NewGatewayClient(baseURL, accessKeyID, accessKeySecret, signName string) *GatewayClient {
	return &GatewayClient{
		BaseURL:         baseURL,
		AccessKeyID:     accessKeyID,
		AccessKeySecret: accessKeySecret,
		SignName:        signName,
		HTTPClient:      &http.Client{Timeout: defaultTimeout},
	}
}

type sendRequest struct {
	PhoneNumbers  string            `json:"phone_numbers"`
	SignName      string            `json:"sign_name"`
	TemplateCode  string            `json:"template_code"`
	TemplateParam map[string]string `json:"template_param"`
}

type sendResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Send delivers msg using its template. Does not log the code.
func (c *GatewayClient) Send(ctx context.Context, msg Message) error {
	if c.AccessKeyID == "" || c.AccessKeySecret == "" {
		return errors.New("sms: access key not configured")
	}
	if msg.TemplateID == "" {
		return fmt.Errorf("sms: no template for purpose %q", msg.Purpose)
	}
	raw, err := json.Marshal(sendRequest{
		PhoneNumbers:  msg.Phone,
		SignName:      c.SignName,
		TemplateCode:  msg.TemplateID,
		TemplateParam: map[string]string{"code": msg.Code},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Key-Id", c.AccessKeyID)
	req.Header.Set("X-Signature", c.sign(raw))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(body))
	}
	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("sms: decode response: %w", err)
	}
	if out.Code != "OK" {
		return fmt.Errorf("sms: gateway rejected message code=%s message=%s", out.Code, out.Message)
	}
	return nil
}

func (c *GatewayClient) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.AccessKeySecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// DevSender records codes in a devotp.Store instead of sending them.
type DevSender struct {
	store devotp.Store
	ttl   time.Duration
	nowF  func() time.Time
}

// NewDevSender returns a sender writing to store; entries live for the code TTL.
func NewDevSender(store devotp.Store) *DevSender {
	return &DevSender{store: store, ttl: domain.CodeTTL, nowF: time.Now}
}

// Send stores the code for msg.Purpose and msg.Phone.
func (d *DevSender) Send(ctx context.Context, msg Message) error {
	d.store.Put(ctx, string(msg.Purpose), msg.Phone, msg.Code, d.nowF().Add(d.ttl))
	return nil
}

// Templates maps each purpose to its SMS template ID.
type Templates map[domain.Purpose]string
