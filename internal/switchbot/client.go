// Package switchbot is the outbound client for the SwitchBot device
// gateway: enumerating a user's devices and sending device commands. Every
// call is authenticated with the caller-supplied bearer token because each
// registered user controls their own gateway account.
package switchbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ynakagi/homerelay/internal/domain"
)

// gateway statusCode for success; anything else is an application-level error
const statusSuccess = 100

// Command is one device command in gateway wire shape.
type Command struct {
	Command     string `json:"command"`
	Parameter   string `json:"parameter"`
	CommandType string `json:"commandType"`
}

// TurnCommand builds the standard on/off command for an action verb.
func TurnCommand(action string) Command {
	return Command{
		Command:     action,
		Parameter:   "default",
		CommandType: "command",
	}
}

// Client issues authenticated calls to the device gateway
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a gateway client. timeout bounds each call; zero means 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.switch-bot.com"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Body       json.RawMessage `json:"body"`
}

type deviceListBody struct {
	DeviceList []deviceEntry `json:"deviceList"`
}

type deviceEntry struct {
	DeviceID    string `json:"deviceId"`
	DeviceName  string `json:"deviceName"`
	DeviceType  string `json:"deviceType"`
	HubDeviceID string `json:"hubDeviceId"`
}

// Devices enumerates the devices visible to the supplied token
func (c *Client) Devices(ctx context.Context, token string) ([]domain.Device, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1.0/devices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var body deviceListBody
	if err := json.Unmarshal(env.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to decode device list: %w", err)
	}

	devices := make([]domain.Device, 0, len(body.DeviceList))
	for _, d := range body.DeviceList {
		devices = append(devices, domain.Device{
			DeviceID:    d.DeviceID,
			DeviceName:  d.DeviceName,
			DeviceType:  d.DeviceType,
			HubDeviceID: d.HubDeviceID,
		})
	}
	return devices, nil
}

// Send issues one command to a device
func (c *Client) Send(ctx context.Context, token, deviceID string, cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	url := fmt.Sprintf("%s/v1.0/devices/%s/commands", c.baseURL, deviceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if env.StatusCode != statusSuccess {
		return nil, fmt.Errorf("gateway error %d: %s", env.StatusCode, env.Message)
	}

	return &env, nil
}
