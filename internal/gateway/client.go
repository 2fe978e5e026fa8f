// Package gateway is the HTTP client for the supply backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dhemutton/mobile-application/pkg/supply"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 1 << 20

	operationGateway = "gateway"

	subjectOTPRequest   = "otp_request"
	subjectOTPValidate  = "otp_validate"
	subjectSession      = "session"
	subjectEnvVersion   = "env_version"
	subjectQuota        = "quota"
	subjectQuotaSummary = "quota_summary"
	subjectTransactions = "transactions"

	codeEncode    = "encode"
	codeTransport = "transport"
	codeStatus    = "status"
	codeDecode    = "decode"
	codeEndpoint  = "endpoint"

	pathOTPRequest   = "/auth/otp"
	pathOTPValidate  = "/auth/otp/validate"
	pathSession      = "/auth/session"
	pathVersion      = "/version"
	pathQuota        = "/quota/"
	pathSummary      = "/summary"
	pathTransactions = "/transactions/"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerUserAgent     = "User-Agent"
	bearerPrefix        = "Bearer "
	contentTypeJSON     = "application/json"
)

// Credential is the bearer session used for quota and transaction calls.
type Credential interface {
	Token() string
	Endpoint() string
}

// Config holds client configuration.
type Config struct {
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Client talks to the backend over JSON/HTTP. The endpoint is chosen per call.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// New creates a Client.
func New(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: httpClient, userAgent: config.UserAgent}
}

type otpRequestBody struct {
	Phone string `json:"phone"`
	Key   string `json:"key"`
	OTP   string `json:"otp,omitempty"`
}

type transactionRequestBody struct {
	Transaction []supply.Transaction `json:"transaction"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RequestOTP asks the backend to send an OTP to mobileNumber.
func (client *Client) RequestOTP(ctx context.Context, mobileNumber string, correlationKey string, endpoint string) (supply.OTPRequestResult, error) {
	body, err := client.authCall(ctx, subjectOTPRequest, endpoint, pathOTPRequest, otpRequestBody{Phone: mobileNumber, Key: correlationKey})
	if err != nil {
		return supply.OTPRequestResult{}, err
	}
	result, err := supply.DecodeOTPRequestResult(body)
	if err != nil {
		return supply.OTPRequestResult{}, supply.WrapError(operationGateway, subjectOTPRequest, codeDecode, err)
	}
	return result, nil
}

// ValidateOTP exchanges an OTP for session credentials.
func (client *Client) ValidateOTP(ctx context.Context, otp string, mobileNumber string, correlationKey string, endpoint string) (supply.SessionCredentials, error) {
	body, err := client.authCall(ctx, subjectOTPValidate, endpoint, pathOTPValidate, otpRequestBody{Phone: mobileNumber, Key: correlationKey, OTP: otp})
	if err != nil {
		return supply.SessionCredentials{}, err
	}
	credentials, err := supply.DecodeSessionCredentials(body)
	if err != nil {
		return supply.SessionCredentials{}, supply.WrapError(operationGateway, subjectOTPValidate, codeDecode, err)
	}
	return credentials, nil
}

// CreateSession obtains session credentials without an OTP. The backend
// only allows this when its REQUIRE_OTP feature is off.
func (client *Client) CreateSession(ctx context.Context, mobileNumber string, correlationKey string, endpoint string) (supply.SessionCredentials, error) {
	body, err := client.authCall(ctx, subjectSession, endpoint, pathSession, otpRequestBody{Phone: mobileNumber, Key: correlationKey})
	if err != nil {
		return supply.SessionCredentials{}, err
	}
	credentials, err := supply.DecodeSessionCredentials(body)
	if err != nil {
		return supply.SessionCredentials{}, supply.WrapError(operationGateway, subjectSession, codeDecode, err)
	}
	return credentials, nil
}

// EnvVersion fetches the policies and feature flags of endpoint.
func (client *Client) EnvVersion(ctx context.Context, endpoint string) (supply.EnvVersion, error) {
	body, err := client.call(ctx, subjectEnvVersion, http.MethodGet, endpoint, pathVersion, "", nil)
	if err != nil {
		return supply.EnvVersion{}, err
	}
	envVersion, err := supply.DecodeEnvVersion(body)
	if err != nil {
		return supply.EnvVersion{}, supply.WrapError(operationGateway, subjectEnvVersion, codeDecode, err)
	}
	return envVersion, nil
}

// Quota fetches the per-category quota of id.
func (client *Client) Quota(ctx context.Context, credential Credential, id string) (supply.Quota, error) {
	body, err := client.call(ctx, subjectQuota, http.MethodGet, credential.Endpoint(), pathQuota+url.PathEscape(id), credential.Token(), nil)
	if err != nil {
		return supply.Quota{}, err
	}
	quota, err := supply.DecodeQuota(body)
	if err != nil {
		return supply.Quota{}, supply.WrapError(operationGateway, subjectQuota, codeDecode, err)
	}
	return quota, nil
}

// QuotaSummary fetches the aggregate quota and history of id.
func (client *Client) QuotaSummary(ctx context.Context, credential Credential, id string) (supply.QuotaSummary, error) {
	body, err := client.call(ctx, subjectQuotaSummary, http.MethodGet, credential.Endpoint(), pathQuota+url.PathEscape(id)+pathSummary, credential.Token(), nil)
	if err != nil {
		return supply.QuotaSummary{}, err
	}
	summary, err := supply.DecodeQuotaSummary(body)
	if err != nil {
		return supply.QuotaSummary{}, supply.WrapError(operationGateway, subjectQuotaSummary, codeDecode, err)
	}
	return summary, nil
}

// PostTransaction submits transactions for id in one request.
func (client *Client) PostTransaction(ctx context.Context, credential Credential, id string, transactions []supply.Transaction) (supply.PostTransactionResult, error) {
	body, err := client.call(ctx, subjectTransactions, http.MethodPost, credential.Endpoint(), pathTransactions+url.PathEscape(id), credential.Token(), transactionRequestBody{Transaction: transactions})
	if err != nil {
		return supply.PostTransactionResult{}, err
	}
	result, err := supply.DecodePostTransactionResult(body)
	if err != nil {
		return supply.PostTransactionResult{}, supply.WrapError(operationGateway, subjectTransactions, codeDecode, err)
	}
	return result, nil
}

// authCall is call for authentication endpoints. Client errors become
// LoginError; server errors are NetworkError so the raw body never reaches
// the user.
func (client *Client) authCall(ctx context.Context, subject string, endpoint string, path string, payload any) ([]byte, error) {
	body, err := client.call(ctx, subject, http.MethodPost, endpoint, path, "", payload)
	var apiError *APIError
	if errors.As(err, &apiError) {
		if apiError.Status >= http.StatusInternalServerError {
			return nil, supply.WrapError(operationGateway, subject, codeStatus, &NetworkError{Err: apiError})
		}
		return nil, supply.WrapError(operationGateway, subject, codeStatus, &LoginError{Status: apiError.Status, Message: apiError.Message})
	}
	return body, err
}

func (client *Client) call(ctx context.Context, subject string, method string, endpoint string, path string, token string, payload any) ([]byte, error) {
	target, err := joinEndpoint(endpoint, path)
	if err != nil {
		return nil, supply.WrapError(operationGateway, subject, codeEndpoint, err)
	}
	var requestBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, supply.WrapError(operationGateway, subject, codeEncode, fmt.Errorf("marshal request: %w", err))
		}
		requestBody = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, target, requestBody)
	if err != nil {
		return nil, supply.WrapError(operationGateway, subject, codeEncode, fmt.Errorf("create request: %w", err))
	}
	request.Header.Set(headerAccept, contentTypeJSON)
	if payload != nil {
		request.Header.Set(headerContentType, contentTypeJSON)
	}
	if token != "" {
		request.Header.Set(headerAuthorization, bearerPrefix+token)
	}
	if client.userAgent != "" {
		request.Header.Set(headerUserAgent, client.userAgent)
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, supply.WrapError(operationGateway, subject, codeTransport, &NetworkError{Err: err})
	}
	defer response.Body.Close()
	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, supply.WrapError(operationGateway, subject, codeTransport, &NetworkError{Err: fmt.Errorf("read response: %w", err)})
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, supply.WrapError(operationGateway, subject, codeStatus, parseAPIError(response.StatusCode, body))
	}
	return body, nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiError := &APIError{Status: status}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiError.Message = parsed.Message
		if parsed.Error != nil {
			apiError.Code = parsed.Error.Code
			if apiError.Message == "" {
				apiError.Message = parsed.Error.Message
			}
		}
	}
	if apiError.Message == "" {
		apiError.Message = strings.TrimSpace(string(body))
	}
	if apiError.Message == "" {
		apiError.Message = http.StatusText(status)
	}
	return apiError
}

func joinEndpoint(endpoint string, path string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("endpoint %q must use http or https", endpoint)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return trimmed + path, nil
}
