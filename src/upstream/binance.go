package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"p2p-observer/src/helpers"
	"p2p-observer/src/interfaces"
	"p2p-observer/src/logger"
	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------
// Binance P2P client
// -----------------------------------------------------------------------------

type BinanceClient struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewBinanceClient(cfg *models.MConfig, netMgr interfaces.INetworkManager) *BinanceClient {
	return &BinanceClient{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger("BinanceClient"),
	}
}

// -----------------------------------------------------------------------------

func (c *BinanceClient) Exchange() string {
	return "binance"
}

// -----------------------------------------------------------------------------
// Wire structures
// -----------------------------------------------------------------------------

type binanceSearchRequest struct {
	Asset         string   `json:"asset"`
	Fiat          string   `json:"fiat"`
	MerchantCheck bool     `json:"merchantCheck"`
	Page          int      `json:"page"`
	PayTypes      []string `json:"payTypes"`
	PublisherType *string  `json:"publisherType"`
	Rows          int      `json:"rows"`
	TradeType     string   `json:"tradeType"`
	TransAmount   string   `json:"transAmount"`
}

type binanceSearchResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    []struct {
		Adv struct {
			Price                string `json:"price"`
			MinSingleTransAmount string `json:"minSingleTransAmount"`
			MaxSingleTransAmount string `json:"maxSingleTransAmount"`
			SurplusAmount        string `json:"surplusAmount"`
		} `json:"adv"`
		Advertiser struct {
			NickName string `json:"nickName"`
		} `json:"advertiser"`
	} `json:"data"`
}

type binanceCatalogRequest struct {
	Asset       string `json:"asset"`
	Fiat        string `json:"fiat"`
	TradeType   string `json:"tradeType"`
	TransAmount string `json:"transAmount"`
	Merchant    bool   `json:"merchantCheck"`
}

type binanceCatalogResponse struct {
	Code string `json:"code"`
	Data struct {
		TradeMethods []struct {
			Identifier      string `json:"identifier"`
			TradeMethodName string `json:"tradeMethodName"`
		} `json:"tradeMethods"`
	} `json:"data"`
}

// -----------------------------------------------------------------------------

func (c *BinanceClient) headers() map[string]string {
	h := map[string]string{
		"accept":  "*/*",
		"origin":  c.Config.Exchanges.Binance.Origin,
		"referer": c.Config.Exchanges.Binance.Referer,
	}
	if c.Config.Exchanges.Binance.Cookie != "" {
		h["cookie"] = c.Config.Exchanges.Binance.Cookie
	}
	return h
}

// -----------------------------------------------------------------------------

// FetchRate queries the advertisement search endpoint and averages the
// middle of the returned book.
func (c *BinanceClient) FetchRate(ctx context.Context, params models.MQuoteParams) (*models.MP2PQuote, error) {
	payTypes := params.Payments
	if payTypes == nil {
		payTypes = []string{}
	}

	rows := c.Config.Exchanges.Binance.Rows
	if rows <= 0 {
		rows = 10
	}

	req := binanceSearchRequest{
		Asset:         params.Asset,
		Fiat:          params.Fiat,
		MerchantCheck: params.Merchant,
		Page:          1,
		PayTypes:      payTypes,
		Rows:          rows,
		TradeType:     params.Side,
		TransAmount:   params.Amount,
	}

	body, err := c.Network.PostJSON(ctx, c.Config.Exchanges.Binance.SearchURL, req, c.headers())
	if err != nil {
		return nil, helpers.NewFetchFailure("binance rate fetch failed", err)
	}

	var resp binanceSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchFailure("binance rate response unreadable", err)
	}
	if resp.Code != "000000" {
		return nil, helpers.NewBackendRejected(fmt.Sprintf("binance api error: code=%s message=%s", resp.Code, resp.Message))
	}

	quote := &models.MP2PQuote{}
	for _, ad := range resp.Data {
		if len(quote.Items) == maxOffers {
			break
		}
		price, ok := parsePrice(ad.Adv.Price)
		if !ok {
			continue
		}
		name := ad.Advertiser.NickName
		if name == "" {
			name = "-"
		}
		quote.Items = append(quote.Items, models.MOfferItem{
			Name:   name,
			Price:  price,
			Volume: ad.Adv.SurplusAmount,
			Min:    ad.Adv.MinSingleTransAmount,
			Max:    ad.Adv.MaxSingleTransAmount,
		})
		quote.Prices = append(quote.Prices, price)
	}

	quote.Avg = averageMidWindow(quote.Prices)
	return quote, nil
}

// -----------------------------------------------------------------------------

// FetchCatalog returns the payment methods available under the current
// filter context.
func (c *BinanceClient) FetchCatalog(ctx context.Context, params models.MQuoteParams) ([]models.MCatalogItem, error) {
	req := binanceCatalogRequest{
		Asset:       params.Asset,
		Fiat:        params.Fiat,
		TradeType:   params.Side,
		TransAmount: params.Amount,
		Merchant:    params.Merchant,
	}

	body, err := c.Network.PostJSON(ctx, c.Config.Exchanges.Binance.CatalogURL, req, c.headers())
	if err != nil {
		return nil, helpers.NewFetchFailure("binance catalog fetch failed", err)
	}

	var resp binanceCatalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchFailure("binance catalog response unreadable", err)
	}
	if resp.Code != "000000" {
		return nil, helpers.NewBackendRejected(fmt.Sprintf("binance catalog error: code=%s", resp.Code))
	}

	items := make([]models.MCatalogItem, 0, len(resp.Data.TradeMethods))
	for _, m := range resp.Data.TradeMethods {
		if m.Identifier == "" {
			continue
		}
		name := m.TradeMethodName
		if name == "" {
			name = m.Identifier
		}
		items = append(items, models.MCatalogItem{ID: m.Identifier, Name: name})
	}
	return items, nil
}
