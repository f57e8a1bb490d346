// Package explorer resolves contract addresses to their ABI through an
// Etherscan-compatible block explorer API.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yourorg/clearsign/internal/jsonx"
	"github.com/yourorg/clearsign/internal/redact"
	"github.com/yourorg/clearsign/pkg/types"
)

const (
	DefaultBaseURL = "https://api.etherscan.io/api"

	statusOK = "1"
)

var (
	ErrMissingAPIKey     = errors.New("ETHERSCAN_API_KEY environment variable not set")
	ErrTransport         = errors.New("failed to fetch ABI")
	ErrMalformedEnvelope = errors.New("failed to parse ABI response")
	ErrProviderFailure   = errors.New("explorer reported failure")
	ErrInvalidResult     = errors.New("invalid ABI response format")
	ErrMalformedABI      = errors.New("failed to parse ABI JSON")
)

const unknownProviderError = "Unknown error fetching ABI"

// Client fetches contract ABIs from an Etherscan-like explorer.
type Client struct {
	BaseURL    string
	APIKey     string
	ChainID    uint64
	HTTPClient *http.Client
	Logger     *slog.Logger
	Redact     redact.Config
}

// abiResponse is the getabi envelope, read by exact key.
type abiResponse struct {
	Status  jsonx.String
	Message jsonx.String
	Result  jsonx.String
}

func parseEnvelope(body []byte) (abiResponse, error) {
	var obj jsonx.Object
	if err := jsonx.Decode(body, &obj); err != nil {
		return abiResponse{}, err
	}
	return abiResponse{
		Status:  obj.String("status"),
		Message: obj.String("message"),
		Result:  obj.String("result"),
	}, nil
}

func (r *abiResponse) IsOK() bool {
	return r.Status.Valid && r.Status.Value == statusOK
}

// Resolve returns supplied unchanged when the caller provided an ABI and
// otherwise fetches the ABI for address.
func (c *Client) Resolve(ctx context.Context, address string, supplied json.RawMessage) (json.RawMessage, error) {
	if types.Present(supplied) {
		return supplied, nil
	}
	return c.FetchABI(ctx, address)
}

// GetABIURL builds the getabi request URL for address.
func (c *Client) GetABIURL(address string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "getabi")
	q.Set("address", address)
	q.Set("apikey", c.APIKey)
	if c.ChainID != 0 {
		q.Set("chainid", strconv.FormatUint(c.ChainID, 10))
	}
	return base + "?" + q.Encode()
}

// FetchABI performs one getabi call and parses the nested ABI document.
// The address is forwarded as given; the explorer judges its validity.
func (c *Client) FetchABI(ctx context.Context, address string) (json.RawMessage, error) {
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if c.Logger != nil {
		c.logAddress(ctx, address)
	}

	endpoint := c.GetABIURL(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	if c.Logger != nil {
		c.Logger.DebugContext(ctx, "explorer request", "url", redact.URL(endpoint, c.Redact))
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransport, c.describeTransportError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if c.Logger != nil {
		c.Logger.DebugContext(ctx, "explorer response", "status", resp.StatusCode, "bytes", len(body))
	}

	envelope, err := parseEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	if !envelope.IsOK() {
		if c.Logger != nil {
			c.Logger.DebugContext(ctx, "explorer reported failure",
				"status", envelope.Status.Value,
				"message", envelope.Message.Value,
			)
		}
		reason := unknownProviderError
		if envelope.Result.Valid {
			reason = envelope.Result.Value
		}
		return nil, &ProviderError{Message: envelope.Message.Value, Reason: reason}
	}
	if !envelope.Result.Valid {
		return nil, ErrInvalidResult
	}

	var abi json.RawMessage
	if err := json.Unmarshal([]byte(envelope.Result.Value), &abi); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedABI, err)
	}
	return abi, nil
}

// ProviderError is a failure reported by the explorer inside a well-formed
// envelope. Its text is the explorer's own reason.
type ProviderError struct {
	Message string
	Reason  string
}

func (e *ProviderError) Error() string {
	return e.Reason
}

func (e *ProviderError) Unwrap() error {
	return ErrProviderFailure
}

func (c *Client) logAddress(ctx context.Context, address string) {
	if !common.IsHexAddress(address) {
		c.Logger.DebugContext(ctx, "address is not a 20-byte hex address", "address", address)
		return
	}
	c.Logger.DebugContext(ctx, "explorer lookup", "address", address,
		"checksum", common.HexToAddress(address).Hex())
}

// url.Error embeds the full request URL, api key included.
func (c *Client) describeTransportError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Op + " " + redact.URL(urlErr.URL, c.Redact) + ": " + urlErr.Err.Error()
	}
	return err.Error()
}
