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
// Google Finance reference feed (panel B)
// -----------------------------------------------------------------------------

type GFinanceClient struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewGFinanceClient(cfg *models.MConfig, netMgr interfaces.INetworkManager) *GFinanceClient {
	return &GFinanceClient{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger("GFinanceClient"),
	}
}

// -----------------------------------------------------------------------------

func (c *GFinanceClient) Label() string {
	return "gfinance"
}

// -----------------------------------------------------------------------------

type gfResponse struct {
	Ok    bool    `json:"ok"`
	Price float64 `json:"price"`
	TS    int64   `json:"ts"`
	URL   string  `json:"url"`
	Error string  `json:"error"`
}

// -----------------------------------------------------------------------------

// FetchPrice quotes the pair. This feed keys its query by asset/fiat
// rather than from/to.
func (c *GFinanceClient) FetchPrice(ctx context.Context, from, to string) (*models.MReferenceQuote, error) {
	body, err := c.Network.Get(ctx, c.Config.Reference.GfURL, map[string]string{"asset": from, "fiat": to}, nil)
	if err != nil {
		return nil, helpers.NewFetchFailure("gfinance fetch failed", err)
	}

	var resp gfResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchFailure("gfinance response unreadable", err)
	}
	if !resp.Ok {
		msg := resp.Error
		if msg == "" {
			msg = "unknown"
		}
		return nil, helpers.NewBackendRejected("gfinance error: " + msg)
	}
	if resp.Price == 0 {
		return nil, helpers.NewBackendRejected("gfinance error: empty price")
	}

	return &models.MReferenceQuote{
		Price:  resp.Price,
		TS:     resp.TS,
		Source: c.Label(),
		URL:    resp.URL,
	}, nil
}

// -----------------------------------------------------------------------------

// FetchCodes - this feed has no code directory; the panel selectors are
// populated from panel A's list.
func (c *GFinanceClient) FetchCodes(ctx context.Context) ([]string, error) {
	return nil, nil
}
