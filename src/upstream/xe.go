package upstream

import (
	"context"
	"encoding/json"

	"p2p-observer/src/helpers"
	"p2p-observer/src/interfaces"
	"p2p-observer/src/logger"
	"p2p-observer/src/models"
)

// -----------------------------------------------------------------------------
// XE reference feed (panel A)
// -----------------------------------------------------------------------------

type XeClient struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewXeClient(cfg *models.MConfig, netMgr interfaces.INetworkManager) *XeClient {
	return &XeClient{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger("XeClient"),
	}
}

// -----------------------------------------------------------------------------

func (c *XeClient) Label() string {
	return "xe"
}

// -----------------------------------------------------------------------------

// The feed wraps its quote in a data object; some deployments flatten
// it. Both shapes are accepted.
type xeResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
	Data  struct {
		Price  float64 `json:"price"`
		TS     int64   `json:"ts"`
		Source string  `json:"source"`
		URL    string  `json:"url"`
	} `json:"data"`
	Price float64 `json:"price"`
	TS    int64   `json:"ts"`
	URL   string  `json:"url"`
}

type xeCodesResponse struct {
	Codes []string `json:"codes"`
}

// -----------------------------------------------------------------------------

func (c *XeClient) FetchPrice(ctx context.Context, from, to string) (*models.MReferenceQuote, error) {
	body, err := c.Network.Get(ctx, c.Config.Reference.XeURL, map[string]string{"from": from, "to": to}, nil)
	if err != nil {
		return nil, helpers.NewFetchFailure("xe fetch failed", err)
	}

	var resp xeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchFailure("xe response unreadable", err)
	}
	if !resp.Ok {
		msg := resp.Error
		if msg == "" {
			msg = "unknown"
		}
		return nil, helpers.NewBackendRejected("xe error: " + msg)
	}

	quote := &models.MReferenceQuote{
		Price:  resp.Data.Price,
		TS:     resp.Data.TS,
		Source: resp.Data.Source,
		URL:    resp.Data.URL,
	}
	if quote.Price == 0 {
		quote.Price = resp.Price
		quote.TS = resp.TS
		quote.URL = resp.URL
	}
	if quote.Source == "" {
		quote.Source = c.Label()
	}
	if quote.Price == 0 {
		return nil, helpers.NewBackendRejected("xe error: empty price")
	}
	return quote, nil
}

// -----------------------------------------------------------------------------

// FetchCodes returns the currency codes the feed can quote; used once
// at startup to populate the pair selectors.
func (c *XeClient) FetchCodes(ctx context.Context) ([]string, error) {
	if c.Config.Reference.XeCodesURL == "" {
		return nil, nil
	}

	body, err := c.Network.Get(ctx, c.Config.Reference.XeCodesURL, nil, nil)
	if err != nil {
		return nil, helpers.NewFetchFailure("xe codes fetch failed", err)
	}

	var resp xeCodesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchFailure("xe codes response unreadable", err)
	}
	return resp.Codes, nil
}
