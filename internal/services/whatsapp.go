package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"clinic-agenda-server/internal/config"
)

// WhatsAppClient integrates with an Evolution API gateway.
//
// Every send operation returns a SendResult instead of an error:
// transport failures and non-2xx responses become {Success: false}
// so the dispatcher can record the outcome deterministically.
// No retries are performed here.
type WhatsAppClient struct {
	Config config.WhatsAppConfig
	Client *http.Client
}

// NewWhatsAppClient creates a gateway client from the injected config.
func NewWhatsAppClient(cfg config.WhatsAppConfig) *WhatsAppClient {
	return &WhatsAppClient{
		Config: cfg,
		Client: &http.Client{},
	}
}

// SendResult is the uniform outcome of a gateway call.
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

type sendTextPayload struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendMediaPayload struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	Media     string `json:"media"`
	Caption   string `json:"caption"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendTemplatePayload struct {
	Number     string              `json:"number"`
	Text       string              `json:"text"`
	Components []templateComponent `json:"components,omitempty"`
}

type gatewayResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Message string `json:"message"`
}

// FormatNumber normalizes a phone number into the international dialing
// form the provider expects: digits only, prefixed with the default
// country code when not already present.
// Ex: (11) 99999-9999 -> 5511999999999
func (w *WhatsAppClient) FormatNumber(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	number := digits.String()
	if !strings.HasPrefix(number, w.Config.CountryCode) {
		number = w.Config.CountryCode + number
	}
	return number
}

// SendText sends a plain text message.
func (w *WhatsAppClient) SendText(phone, message string) SendResult {
	payload := sendTextPayload{
		Number: w.FormatNumber(phone),
		Text:   message,
	}
	url := fmt.Sprintf("%s/message/sendText/%s", w.Config.BaseURL, w.Config.InstanceName)
	return w.post(url, payload)
}

// SendTemplate sends a template message, used for numbers that have not
// messaged the instance before.
func (w *WhatsAppClient) SendTemplate(phone, template string, components []templateComponent) SendResult {
	payload := sendTemplatePayload{
		Number:     w.FormatNumber(phone),
		Text:       template,
		Components: components,
	}
	url := fmt.Sprintf("%s/message/sendTemplate/%s", w.Config.BaseURL, w.Config.InstanceName)
	return w.post(url, payload)
}

// SendImage sends an image with an optional caption.
func (w *WhatsAppClient) SendImage(phone, imageURL, caption string) SendResult {
	payload := sendMediaPayload{
		Number:    w.FormatNumber(phone),
		MediaType: "image",
		Media:     imageURL,
		Caption:   caption,
	}
	url := fmt.Sprintf("%s/message/sendMedia/%s", w.Config.BaseURL, w.Config.InstanceName)
	return w.post(url, payload)
}

// FetchStatus queries the delivery status of a previously sent message.
// Returns nil when the gateway cannot be reached.
func (w *WhatsAppClient) FetchStatus(messageID string) map[string]interface{} {
	url := fmt.Sprintf("%s/message/fetchStatus/%s?messageId=%s",
		w.Config.BaseURL, w.Config.InstanceName, messageID)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Printf("whatsapp: failed to build status request: %v", err)
		return nil
	}
	req.Header.Set("apikey", w.Config.APIKey)

	resp, err := w.Client.Do(req)
	if err != nil {
		log.Printf("whatsapp: failed to fetch message status: %v", err)
		return nil
	}
	defer resp.Body.Close()

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		log.Printf("whatsapp: failed to decode status response: %v", err)
		return nil
	}
	return status
}

func (w *WhatsAppClient) post(url string, payload interface{}) SendResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{Success: false, Error: err.Error()}
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return SendResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("apikey", w.Config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		log.Printf("whatsapp: request to gateway failed: %v", err)
		return SendResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{Success: false, Error: err.Error()}
	}

	var parsed gatewayResponse
	// The gateway sometimes answers errors with a non-JSON body; keep
	// whatever detail we can extract.
	_ = json.Unmarshal(respBody, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errMsg := parsed.Message
		if errMsg == "" {
			errMsg = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		log.Printf("whatsapp: send failed: %s", errMsg)
		return SendResult{Success: false, Error: errMsg}
	}

	return SendResult{Success: true, MessageID: parsed.Key.ID}
}
