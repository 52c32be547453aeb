package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markdave123-py/zapdesk/internal/core"
)

const whatsappPrefix = "whatsapp:"

// TwilioSender posts outbound WhatsApp messages to the Twilio Messages API.
type TwilioSender struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
}

var _ core.MessageSender = (*TwilioSender)(nil)

func NewTwilioSender(baseURL, accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *TwilioSender) Send(ctx context.Context, phoneNumber, text string) (*core.SendResult, error) {
	form := url.Values{}
	form.Set("From", WhatsAppAddress(s.from))
	form.Set("To", WhatsAppAddress(phoneNumber))
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, url.PathEscape(s.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build send request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send to %s: %w", phoneNumber, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read send response: %w", err)
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("send to %s: provider status %d: %s", phoneNumber, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var msg twilioMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("decode send response: %w", err)
	}

	log.Printf("[twilio] sent to %s (sid=%s): %s", phoneNumber, msg.SID, short(text))
	return &core.SendResult{MessageID: msg.SID}, nil
}

// WhatsAppAddress adds the channel prefix Twilio expects on WhatsApp numbers.
func WhatsAppAddress(phone string) string {
	if strings.HasPrefix(phone, whatsappPrefix) {
		return phone
	}
	return whatsappPrefix + phone
}

// StripWhatsAppPrefix is the inverse of WhatsAppAddress.
func StripWhatsAppPrefix(addr string) string {
	return strings.TrimPrefix(addr, whatsappPrefix)
}

const logPreview = 180

func short(s string) string {
	r := []rune(s)
	if len(r) <= logPreview {
		return s
	}
	return string(r[:logPreview]) + "..."
}
