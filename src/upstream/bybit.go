package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"p2p-observer/src/helpers"
	"p2p-observer/src/interfaces"
	"p2p-observer/src/logger"
	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------
// Bybit OTC client
// -----------------------------------------------------------------------------

type BybitClient struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewBybitClient(cfg *models.MConfig, netMgr interfaces.INetworkManager) *BybitClient {
	return &BybitClient{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger("BybitClient"),
	}
}

// -----------------------------------------------------------------------------

func (c *BybitClient) Exchange() string {
	return "bybit"
}

// -----------------------------------------------------------------------------
// Wire structures
// -----------------------------------------------------------------------------

type bybitOnlineRequest struct {
	TokenID        string   `json:"tokenId"`
	CurrencyID     string   `json:"currencyId"`
	Payment        []string `json:"payment"`
	Side           string   `json:"side"`
	Size           string   `json:"size"`
	Page           string   `json:"page"`
	Amount         string   `json:"amount"`
	AuthMaker      bool     `json:"authMaker"`
	CanTrade       bool     `json:"canTrade"`
	ShieldMerchant bool     `json:"shieldMerchant"`
	Reputation     bool     `json:"reputation"`
	Country        string   `json:"country"`
}

type bybitOnlineResponse struct {
	RetCode int    `json:"ret_code"`
	RetMsg  string `json:"ret_msg"`
	Result  struct {
		Items []struct {
			NickName     string `json:"nickName"`
			Price        string `json:"price"`
			MinAmount    string `json:"minAmount"`
			MaxAmount    string `json:"maxAmount"`
			LastQuantity string `json:"lastQuantity"`
		} `json:"items"`
	} `json:"result"`
}

type bybitCatalogRequest struct {
	CurrencyID string `json:"currencyId"`
}

type bybitCatalogResponse struct {
	RetCode int `json:"ret_code"`
	Result  struct {
		PaymentConfigVo []struct {
			PaymentType json.Number `json:"paymentType"`
			PaymentName string      `json:"paymentName"`
		} `json:"paymentConfigVo"`
	} `json:"result"`
}

// -----------------------------------------------------------------------------

// Bybit encodes side numerically: 0 means the taker sells the asset.
var bybitSideMap = map[string]string{"SELL": "0", "BUY": "1"}

func (c *BybitClient) headers() map[string]string {
	h := map[string]string{
		"accept":  "application/json",
		"origin":  c.Config.Exchanges.Bybit.Origin,
		"referer": c.Config.Exchanges.Bybit.Referer,
	}
	if c.Config.Exchanges.Bybit.Cookie != "" {
		h["cookie"] = c.Config.Exchanges.Bybit.Cookie
	}
	return h
}

// -----------------------------------------------------------------------------

func (c *BybitClient) FetchRate(ctx context.Context, params models.MQuoteParams) (*models.MP2PQuote, error) {
	payments := params.Payments
	if payments == nil {
		payments = []string{}
	}

	rows := c.Config.Exchanges.Bybit.Rows
	if rows <= 0 {
		rows = 10
	}

	side, ok := bybitSideMap[strings.ToUpper(params.Side)]
	if !ok {
		side = "1"
	}

	req := bybitOnlineRequest{
		TokenID:    params.Asset,
		CurrencyID: params.Fiat,
		Payment:    payments,
		Side:       side,
		Size:       fmt.Sprintf("%d", rows),
		Page:       "1",
		Amount:     params.Amount,
		AuthMaker:  params.Verified,
	}

	body, err := c.Network.PostJSON(ctx, c.Config.Exchanges.Bybit.OnlineURL, req, c.headers())
	if err != nil {
		return nil, helpers.NewFetchFailure("bybit rate fetch failed", err)
	}

	var resp bybitOnlineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchFailure("bybit rate response unreadable", err)
	}
	if resp.RetCode != 0 {
		return nil, helpers.NewBackendRejected(fmt.Sprintf("bybit api error: ret_code=%d ret_msg=%s", resp.RetCode, resp.RetMsg))
	}

	quote := &models.MP2PQuote{}
	for _, ad := range resp.Result.Items {
		if len(quote.Items) == maxOffers {
			break
		}
		price, ok := parsePrice(ad.Price)
		if !ok {
			continue
		}
		name := ad.NickName
		if name == "" {
			name = "-"
		}
		quote.Items = append(quote.Items, models.MOfferItem{
			Name:   name,
			Price:  price,
			Volume: ad.LastQuantity,
			Min:    ad.MinAmount,
			Max:    ad.MaxAmount,
		})
		quote.Prices = append(quote.Prices, price)
	}

	quote.Avg = averageMidWindow(quote.Prices)
	return quote, nil
}

// -----------------------------------------------------------------------------

// FetchCatalog returns the payment methods configured for the fiat
// currency. Bybit keys its directory by currency only; the rest of the
// filter context does not narrow it further.
func (c *BybitClient) FetchCatalog(ctx context.Context, params models.MQuoteParams) ([]models.MCatalogItem, error) {
	body, err := c.Network.PostJSON(ctx, c.Config.Exchanges.Bybit.CatalogURL, bybitCatalogRequest{CurrencyID: params.Fiat}, c.headers())
	if err != nil {
		return nil, helpers.NewFetchFailure("bybit catalog fetch failed", err)
	}

	var resp bybitCatalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchFailure("bybit catalog response unreadable", err)
	}
	if resp.RetCode != 0 {
		return nil, helpers.NewBackendRejected(fmt.Sprintf("bybit catalog error: ret_code=%d", resp.RetCode))
	}

	items := make([]models.MCatalogItem, 0, len(resp.Result.PaymentConfigVo))
	for _, m := range resp.Result.PaymentConfigVo {
		id := m.PaymentType.String()
		if id == "" {
			continue
		}
		name := m.PaymentName
		if name == "" {
			name = id
		}
		items = append(items, models.MCatalogItem{ID: id, Name: name})
	}
	return items, nil
}
