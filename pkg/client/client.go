package client

import (
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/BelikanM/cub/pkg/config"
	"github.com/BelikanM/cub/pkg/logger"
)

const userAgent = "cub-cli/0.1.0"

var httpClient *resty.Client

// New builds a resty client for baseURL with request/response debug logging.
func New(baseURL string, timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", userAgent)

	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})
	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP Response", "status", resp.StatusCode(), "elapsed", resp.Time())
		return nil
	})
	return c
}

// Init initializes the shared HTTP client from config
func Init() {
	baseURL := config.GetString("api.base_url")
	timeout := time.Duration(config.GetInt("api.timeout")) * time.Second
	httpClient = New(baseURL, timeout)
}

// GetClient returns the HTTP client
func GetClient() *resty.Client {
	if httpClient == nil {
		Init()
	}
	return httpClient
}

// SetAuthToken sets the authorization token
func SetAuthToken(token string) {
	GetClient().SetAuthToken(token)
}

// ClearAuthToken drops the authorization token
func ClearAuthToken() {
	GetClient().SetAuthToken("")
	GetClient().Header.Del("Authorization")
}
