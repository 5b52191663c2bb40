package payoutclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"leaselane/pkg/domain"
	"leaselane/pkg/signing"
)

// Client pushes funds through the payout gateway. It implements
// agreement.Transferer: any transport error, timeout, or non-200 reply is a
// delivery failure, which the agreement treats as soft and records for pull
// recovery. Fresh transfer ids per attempt keep retries distinguishable on
// the gateway side.
type Client struct {
	BaseURL string
	Secret  string
	HTTP    *http.Client
}

func New(baseURL, secret string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Secret:  secret,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Transfer(to domain.Account, amount int64) error {
	reqBody, _ := json.Marshal(map[string]any{
		"transfer_id": "trf_" + uuid.NewString(),
		"to_account":  string(to),
		"amount":      amount,
	})
	req, err := http.NewRequest("POST", c.BaseURL+"/payout/v1/transfers", bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	if c.Secret != "" {
		req.Header.Set(signing.Header, signing.Sign(c.Secret, reqBody))
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		var out struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if out.Error.Message != "" {
			return fmt.Errorf("payout returned %d: %s", resp.StatusCode, out.Error.Message)
		}
		return fmt.Errorf("payout returned %d", resp.StatusCode)
	}
	return nil
}
