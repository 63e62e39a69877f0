package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/cecil-the-coder/orchestrator-kit/internal/httpclient"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// HTTPAPIProvider sends request payloads to a remote HTTP endpoint. It covers
// the common shape of hosted processing APIs: one endpoint per operation
// family, bearer or API-key auth, a health probe, and per-call pricing.
//
// Settings:
//
//	endpoint           string  request URL (required)
//	health_endpoint    string  health probe URL (defaults to endpoint)
//	method             string  HTTP method (default "POST")
//	content_type       string  request content type (default "application/json")
//	api_key            string  static key sent in api_key_header
//	api_key_header     string  header name for api_key (default "Authorization")
//	oauth_token_url    string  OAuth2 client-credentials token URL
//	oauth_client_id    string  OAuth2 client ID
//	oauth_client_secret string OAuth2 client secret
//	rate_limit_rps     float   client-side request rate limit
//	rate_limit_burst   int     burst for the rate limiter (default 1)
//	max_payload_bytes  int     reject requests with larger payloads
//	cost_per_call      string  flat cost per request (default "0")
//	cost_per_kb        string  additional cost per payload kilobyte
//	timeout            string  per-request HTTP timeout
//	max_retries        int     retry budget for retryable statuses
type HTTPAPIProvider struct {
	Base

	endpoint       string
	healthEndpoint string
	method         string
	contentType    string
	apiKey         string
	apiKeyHeader   string

	client  *httpclient.Client
	tokens  oauth2.TokenSource
	limiter *rate.Limiter

	maxPayload  int
	costPerCall decimal.Decimal
	costPerKB   decimal.Decimal
}

// NewHTTPAPIProvider builds an HTTP API provider from its configuration entry.
func NewHTTPAPIProvider(cfg types.ProviderConfig) (types.Provider, error) {
	settings := Settings(cfg.Settings)

	endpoint := settings.String("endpoint", "")
	if endpoint == "" {
		return nil, types.NewProviderError(cfg.Name, types.ErrCodeConfiguration, "endpoint is required")
	}

	p := &HTTPAPIProvider{
		Base:           NewBase(cfg),
		endpoint:       endpoint,
		healthEndpoint: settings.String("health_endpoint", endpoint),
		method:         settings.String("method", http.MethodPost),
		contentType:    settings.String("content_type", "application/json"),
		apiKey:         settings.String("api_key", ""),
		apiKeyHeader:   settings.String("api_key_header", "Authorization"),
		maxPayload:     settings.Int("max_payload_bytes", 0),
		costPerCall:    settings.Decimal("cost_per_call", decimal.Zero),
		costPerKB:      settings.Decimal("cost_per_kb", decimal.Zero),
	}

	p.client = httpclient.New(httpclient.Config{
		Timeout:    settings.Duration("timeout", 0),
		MaxRetries: settings.Int("max_retries", 0),
	})

	if tokenURL := settings.String("oauth_token_url", ""); tokenURL != "" {
		oauthCfg := &clientcredentials.Config{
			TokenURL:     tokenURL,
			ClientID:     settings.String("oauth_client_id", ""),
			ClientSecret: settings.String("oauth_client_secret", ""),
		}
		if oauthCfg.ClientID == "" || oauthCfg.ClientSecret == "" {
			return nil, types.NewProviderError(cfg.Name, types.ErrCodeConfiguration,
				"oauth_token_url requires oauth_client_id and oauth_client_secret")
		}
		p.tokens = oauthCfg.TokenSource(context.Background())
	}

	if rps := settings.Float("rate_limit_rps", 0); rps > 0 {
		burst := settings.Int("rate_limit_burst", 1)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return p, nil
}

// Process posts the request payload to the configured endpoint.
func (p *HTTPAPIProvider) Process(ctx context.Context, req types.Request) types.Result {
	start := time.Now()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return p.Fail(types.NewProviderError(p.Name(), types.ErrCodeRateLimit, "rate limit wait aborted").WithOriginalErr(err), start)
		}
	}

	headers, err := p.headers(ctx, req)
	if err != nil {
		return p.Fail(err, start)
	}

	resp, err := p.client.Do(ctx, p.method, p.endpoint, headers, req.Payload)
	if err != nil {
		return p.Fail(types.NewProviderError(p.Name(), types.ErrCodeNetwork, "request failed").
			WithOperation(req.Operation).WithOriginalErr(err), start)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.Fail(types.NewProviderError(p.Name(), types.ErrCodeNetwork, "reading response failed").
			WithOperation(req.Operation).WithOriginalErr(err), start)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := types.NewProviderError(p.Name(), statusToCode(resp.StatusCode),
			fmt.Sprintf("endpoint returned %d", resp.StatusCode)).WithOperation(req.Operation)
		return p.Fail(perr, start)
	}

	cost := p.EstimateCost(req)
	return p.Succeed(decode(body, resp.Header.Get("Content-Type")), cost, start, map[string]any{
		"operation":   req.Operation,
		"status_code": resp.StatusCode,
	})
}

// ValidateInput rejects empty and oversized payloads before any network call.
func (p *HTTPAPIProvider) ValidateInput(req types.Request) bool {
	if len(req.Payload) == 0 {
		return false
	}
	return p.maxPayload <= 0 || len(req.Payload) <= p.maxPayload
}

// EstimateCost combines the flat per-call cost with the per-kilobyte cost
// for the request payload.
func (p *HTTPAPIProvider) EstimateCost(req types.Request) decimal.Decimal {
	cost := p.costPerCall
	if !p.costPerKB.IsZero() {
		kb := decimal.NewFromInt(int64(len(req.Payload))).Div(decimal.NewFromInt(1024))
		cost = cost.Add(p.costPerKB.Mul(kb))
	}
	return cost
}

// HealthCheck probes the health endpoint. A 2xx answer means available,
// 429 and 503 mean degraded, anything else means unavailable.
func (p *HTTPAPIProvider) HealthCheck(ctx context.Context) types.HealthState {
	headers, err := p.headers(ctx, types.Request{})
	if err != nil {
		return types.HealthUnavailable
	}

	resp, err := p.client.Do(ctx, http.MethodGet, p.healthEndpoint, headers, nil)
	if err != nil {
		return types.HealthUnavailable
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return types.HealthAvailable
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusServiceUnavailable:
		return types.HealthDegraded
	default:
		return types.HealthUnavailable
	}
}

func (p *HTTPAPIProvider) headers(ctx context.Context, req types.Request) (http.Header, error) {
	headers := http.Header{}
	headers.Set("Content-Type", p.contentType)
	if req.Operation != "" {
		headers.Set("X-Operation", req.Operation)
	}

	if p.tokens != nil {
		token, err := p.tokens.Token()
		if err != nil {
			return nil, types.NewProviderError(p.Name(), types.ErrCodeAuthentication, "fetching access token failed").WithOriginalErr(err)
		}
		token.SetAuthHeader(&http.Request{Header: headers})
	} else if p.apiKey != "" {
		value := p.apiKey
		if p.apiKeyHeader == "Authorization" {
			value = "Bearer " + p.apiKey
		}
		headers.Set(p.apiKeyHeader, value)
	}

	return headers, nil
}

// statusToCode maps HTTP status codes to the error taxonomy.
func statusToCode(status int) types.ErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.ErrCodeAuthentication
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return types.ErrCodeTimeout
	case status == http.StatusTooManyRequests:
		return types.ErrCodeRateLimit
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusRequestEntityTooLarge:
		return types.ErrCodeInvalidInput
	case status >= 500:
		return types.ErrCodeServerError
	default:
		return types.ErrCodeUnknown
	}
}

// decode attempts a JSON decode for JSON responses, falling back to the raw
// body as a string for everything else.
func decode(body []byte, contentType string) any {
	if len(body) == 0 {
		return ""
	}
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		var v any
		if err := json.Unmarshal(body, &v); err == nil {
			return v
		}
	}
	return string(body)
}
