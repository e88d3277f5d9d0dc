package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrUnexpectedStatus = errors.New("unexpected status code")

type BaseResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

type HTTPClient interface {
	Get(ctx context.Context, endpoint string, queryParams map[string]string, result interface{}) (*BaseResponse, error)
	Post(ctx context.Context, endpoint string, body interface{}, result interface{}) (*BaseResponse, error)
}

type RestyClient struct {
	client *resty.Client
}

// New returns a JSON client rooted at baseURL. An empty bearerToken sends no
// Authorization header.
func New(baseURL string, timeout time.Duration, bearerToken string) *RestyClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if bearerToken != "" {
		client.SetAuthToken(bearerToken)
	}

	return &RestyClient{client: client}
}

func (rc *RestyClient) Get(ctx context.Context, endpoint string, queryParams map[string]string, result interface{}) (*BaseResponse, error) {
	req := rc.client.R().SetContext(ctx).SetResult(result)
	if queryParams != nil {
		req.SetQueryParams(queryParams)
	}
	return toResponse(req.Get(endpoint))
}

func (rc *RestyClient) Post(ctx context.Context, endpoint string, body interface{}, result interface{}) (*BaseResponse, error) {
	req := rc.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(result)
	return toResponse(req.Post(endpoint))
}

// toResponse turns non-2xx answers into ErrUnexpectedStatus.
func toResponse(resp *resty.Response, err error) (*BaseResponse, error) {
	if err != nil {
		return nil, err
	}
	out := &BaseResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}
	if resp.IsError() {
		return out, fmt.Errorf("%s %s returned %d: %w", resp.Request.Method, resp.Request.URL, resp.StatusCode(), ErrUnexpectedStatus)
	}
	return out, nil
}
