package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PatternSender posts to a pattern-template SMS HTTP API. The provider
// substitutes the code into a pre-registered message template.
type PatternSender struct {
	endpoint    string
	apiKey      string
	fromNumber  string
	patternCode string
	httpClient  *http.Client
}

// NewPatternSender targets the provider at baseURL using a registered
// pattern template.
func NewPatternSender(baseURL, apiKey, fromNumber, patternCode string) *PatternSender {
	return &PatternSender{
		endpoint:    strings.TrimRight(baseURL, "/") + "/api/send",
		apiKey:      apiKey,
		fromNumber:  fromNumber,
		patternCode: patternCode,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type patternPayload struct {
	SendingType string            `json:"sending_type"`
	FromNumber  string            `json:"from_number"`
	Code        string            `json:"code"`
	Recipients  []string          `json:"recipients"`
	Params      map[string]string `json:"params"`
}

type patternResponse struct {
	Meta struct {
		Status bool `json:"status"`
	} `json:"meta"`
}

// SendCode delivers the code through the pattern template. The template's
// variable key is "code".
func (p *PatternSender) SendCode(ctx context.Context, phone, code string) error {
	payload := patternPayload{
		SendingType: "pattern",
		FromNumber:  p.fromNumber,
		Code:        p.patternCode,
		Recipients:  []string{NormalizeE164(phone)},
		Params:      map[string]string{"code": code},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sms payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("sms provider returned %s", resp.Status)
	}
	var parsed patternResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}
	if !parsed.Meta.Status {
		return fmt.Errorf("sms provider rejected the message")
	}
	return nil
}

// NormalizeE164 rewrites local Iranian mobile formats (0912..., 98912...,
// +98912..., 912...) to +98 E.164.
func NormalizeE164(phone string) string {
	normalized := phone
	for _, prefix := range []string{"+98", "0098", "98", "0"} {
		if strings.HasPrefix(normalized, prefix) {
			normalized = strings.TrimPrefix(normalized, prefix)
			break
		}
	}
	if !strings.HasPrefix(normalized, "9") {
		normalized = "9" + normalized
	}
	return "+98" + normalized
}
