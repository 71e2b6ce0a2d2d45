package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/justinhartfield/weed-stock-exchange-game/internal/domain"
)

const requestTimeout = 30 * time.Second

// Client is the REST client for the exchange API. It attaches the session
// token to every request and maps HTTP failures onto the domain error
// taxonomy: 401 becomes ErrSessionInvalid, trade rejections become
// MarketRejection carrying the server's detail string.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     domain.TokenProvider
	log        zerolog.Logger
}

// NewClient creates an exchange REST client. baseURL includes the API prefix,
// e.g. "http://localhost:8000/api/v1".
func NewClient(baseURL string, tokens domain.TokenProvider, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		tokens:     tokens,
		log:        log.With().Str("client", "exchange").Logger(),
	}
}

// ListStrains fetches a page of the instrument listing.
func (c *Client) ListStrains(ctx context.Context, skip, limit int) ([]domain.Strain, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var dtos []strainDTO
	if err := c.get(ctx, "/trading/strains", query, &dtos); err != nil {
		return nil, fmt.Errorf("failed to fetch strains: %w", err)
	}
	return transformStrains(dtos)
}

// GetStrainDetail fetches one strain with its price history.
func (c *Client) GetStrainDetail(ctx context.Context, strainID int64) (*domain.StrainDetail, error) {
	var dto strainDetailDTO
	if err := c.get(ctx, fmt.Sprintf("/trading/strains/%d", strainID), nil, &dto); err != nil {
		return nil, fmt.Errorf("failed to fetch strain %d: %w", strainID, err)
	}
	return transformStrainDetail(dto)
}

// GetPortfolio fetches the authoritative portfolio.
func (c *Client) GetPortfolio(ctx context.Context) (*domain.Portfolio, error) {
	var dto portfolioDTO
	if err := c.get(ctx, "/portfolio/portfolio", nil, &dto); err != nil {
		return nil, fmt.Errorf("failed to fetch portfolio: %w", err)
	}
	return transformPortfolio(dto)
}

// SubmitTrade submits a buy or sell intent and returns the confirmed record.
func (c *Client) SubmitTrade(ctx context.Context, req domain.TradeRequest) (*domain.Trade, error) {
	if !req.Side.Valid() {
		return nil, fmt.Errorf("unknown trade side %q", req.Side)
	}

	path := "/trading/trades/buy"
	if req.Side == domain.SideSell {
		path = "/trading/trades/sell"
	}

	body := tradeSubmitDTO{
		StrainID:  req.StrainID,
		Shares:    req.Shares,
		ClientRef: req.ClientRef,
	}

	var dto tradeConfirmDTO
	if err := c.post(ctx, path, body, &dto); err != nil {
		return nil, err
	}

	trade, err := transformTradeConfirm(dto, req)
	if err != nil {
		return nil, err
	}
	trade.Timestamp = time.Now().UTC()
	return trade, nil
}

// TradeHistory fetches a page of the user's executed trades, newest first.
func (c *Client) TradeHistory(ctx context.Context, skip, limit int) ([]domain.Trade, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var dtos []tradeHistoryDTO
	if err := c.get(ctx, "/trading/trades/history", query, &dtos); err != nil {
		return nil, fmt.Errorf("failed to fetch trade history: %w", err)
	}
	return transformTradeHistory(dtos)
}

// get performs an authenticated GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(req, out)
}

// post performs an authenticated POST with a JSON body.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// do attaches the bearer token, executes the request and maps error responses.
func (c *Client) do(req *http.Request, out interface{}) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to get session token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return domain.ErrSessionInvalid
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readDetail(resp.Body)
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("path", req.URL.Path).
			Str("detail", detail).
			Msg("Exchange returned error response")

		// Server-side trade validation answers with 400 + detail.
		if resp.StatusCode == http.StatusBadRequest {
			return &domain.MarketRejection{Detail: detail}
		}
		if detail != "" {
			return fmt.Errorf("exchange returned status %d: %s", resp.StatusCode, detail)
		}
		return fmt.Errorf("exchange returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readDetail extracts the {"detail": ...} message from an error body.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var dto errorDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return ""
	}
	return dto.Detail
}
