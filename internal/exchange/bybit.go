package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirillm/signal-bot/internal/domain"
)

// BybitClient работает с Bybit V5 REST API (unified account, linear perps)
type BybitClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	client     *http.Client
	recvWindow string
}

type walletBalanceResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Coin []struct {
				Coin          string `json:"coin"`
				WalletBalance string `json:"walletBalance"`
			} `json:"coin"`
		} `json:"list"`
	} `json:"result"`
}

type orderResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	} `json:"result"`
}

// OrderParams описывает параметры лимитного ордера
type OrderParams struct {
	Symbol         string
	Side           string
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	Leverage       int
	TimeInForce    string
	ReduceOnly     bool
	CloseOnTrigger bool
}

func NewBybitClient(apiKey, apiSecret, baseURL string) *BybitClient {
	return &BybitClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		recvWindow: domain.BybitRecvWindow,
	}
}

// GetBalances получает балансы кошелька для списка активов
func (b *BybitClient) GetBalances(ctx context.Context, assets []string) (map[string]decimal.Decimal, error) {
	endpoint := "/v5/account/wallet-balance"
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	params := fmt.Sprintf("accountType=%s&coin=%s", domain.BybitAccountUnified, strings.Join(assets, ","))

	signature := b.generateSignature(timestamp, params)

	url := fmt.Sprintf("%s%s?%s", b.baseURL, endpoint, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	b.setAuthHeaders(req, timestamp, signature)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var balanceResp walletBalanceResponse
	if err := json.Unmarshal(body, &balanceResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if balanceResp.RetCode != 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrExchangeAPI, balanceResp.RetMsg)
	}

	balances := make(map[string]decimal.Decimal, len(assets))
	if len(balanceResp.Result.List) == 0 {
		return balances, nil
	}

	for _, coinData := range balanceResp.Result.List[0].Coin {
		if coinData.WalletBalance == "" {
			continue
		}
		balance, err := decimal.NewFromString(coinData.WalletBalance)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance for %s: %w", coinData.Coin, err)
		}
		balances[coinData.Coin] = balance
	}

	return balances, nil
}

// PlaceLimitOrder размещает лимитный ордер и возвращает его ID
func (b *BybitClient) PlaceLimitOrder(ctx context.Context, order OrderParams) (string, error) {
	endpoint := "/v5/order/create"
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	params := map[string]interface{}{
		"category":       domain.BybitCategoryLinear,
		"symbol":         order.Symbol,
		"side":           order.Side,
		"orderType":      domain.OrderTypeLimit,
		"qty":            order.Quantity.String(),
		"price":          order.Price.String(),
		"timeInForce":    order.TimeInForce,
		"leverage":       strconv.Itoa(order.Leverage),
		"reduceOnly":     order.ReduceOnly,
		"closeOnTrigger": order.CloseOnTrigger,
		"positionIdx":    0,
	}

	jsonData, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal params: %w", err)
	}

	signature := b.generateSignature(timestamp, string(jsonData))

	url := fmt.Sprintf("%s%s", b.baseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(jsonData)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	b.setAuthHeaders(req, timestamp, signature)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var orderResp orderResponse
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if orderResp.RetCode != 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrExchangeAPI, orderResp.RetMsg)
	}

	return orderResp.Result.OrderID, nil
}

// generateSignature генерирует подпись для запросов (GET и POST)
func (b *BybitClient) generateSignature(timestamp, payload string) string {
	message := timestamp + b.apiKey + b.recvWindow + payload
	h := hmac.New(sha256.New, []byte(b.apiSecret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

// setAuthHeaders устанавливает заголовки авторизации для запроса
func (b *BybitClient) setAuthHeaders(req *http.Request, timestamp, signature string) {
	req.Header.Set("X-BAPI-API-KEY", b.apiKey)
	req.Header.Set("X-BAPI-SIGN", signature)
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", b.recvWindow)
}
