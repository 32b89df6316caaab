package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type HTTPClient struct {
	client *http.Client
	logger *Logger
}

func NewHTTPClient(logger *Logger) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// DoRequest returns the status code along with the body so callers can react
// to eligibility refusals without re-reading the response.
func (h *HTTPClient) DoRequest(method, url string, body interface{}, headers map[string]string) (int, []byte, error) {
	time.Sleep(HTTPRequestDelay)

	var bodyBytes []byte
	var err error

	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	req, err := http.NewRequest(method, url, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}

	return resp.StatusCode, data, nil
}

// Request/Response models
type DriverRegistrationRequest struct {
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	LicenseNumber string  `json:"license_number"`
	VehicleType   string  `json:"vehicle_type"`
	VehicleAttrs  Vehicle `json:"vehicle_attrs"`
}

type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color"`
	Plate string `json:"plate"`
	Year  int    `json:"year"`
}

type RegistrationResponse struct {
	JWT    string `json:"jwt_access"`
	Msg    string `json:"msg"`
	UserID string `json:"userId"`
}

type EligibilityResponse struct {
	DriverID string `json:"driver_id"`
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason"`
}
