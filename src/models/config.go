package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	LogFile   string           `yaml:"log_file"`
	Storage   MStorageConfig   `yaml:"storage"`
	Network   MNetworkConfig   `yaml:"network"`
	Exchanges MExchangesConfig `yaml:"exchanges"`
	Reference MReferenceConfig `yaml:"reference"`
	Dashboard MDashboardConfig `yaml:"dashboard"`
	Favorites MFavoritesConfig `yaml:"favorites"`
}

type MStorageConfig struct {
	// DSN for the session history store. ":memory:" keeps the whole
	// session in RAM; anything else is a regular sqlite file path.
	DBPath string `yaml:"db_path"`
}

type MNetworkConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Proxies           []string `yaml:"proxies"`
	RequestTimeout    int      `yaml:"timeout"`
	MaxRetries        int      `yaml:"retries"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	UserAgent         string   `yaml:"user_agent"`
}

type MExchangesConfig struct {
	Binance MBinanceConfig `yaml:"binance"`
	Bybit   MBybitConfig   `yaml:"bybit"`
}

type MBinanceConfig struct {
	SearchURL  string `yaml:"search_url"`
	CatalogURL string `yaml:"catalog_url"`
	Origin     string `yaml:"origin"`
	Referer    string `yaml:"referer"`
	Cookie     string `yaml:"cookie"` // overridden by BINANCE_COOKIE
	Rows       int    `yaml:"rows"`
}

type MBybitConfig struct {
	OnlineURL  string `yaml:"online_url"`
	CatalogURL string `yaml:"catalog_url"`
	Origin     string `yaml:"origin"`
	Referer    string `yaml:"referer"`
	Cookie     string `yaml:"cookie"` // overridden by BYBIT_COOKIE
	Rows       int    `yaml:"rows"`
}

type MReferenceConfig struct {
	// Panel A ("xe") and panel B ("gfinance") quote endpoints. Both are
	// plain JSON-over-GET services, see src/upstream.
	XeURL      string `yaml:"xe_url"`
	XeCodesURL string `yaml:"xe_codes_url"`
	GfURL      string `yaml:"gf_url"`
}

type MDashboardConfig struct {
	RefreshIntervalMS int      `yaml:"refresh_interval_ms"`
	DefaultAsset      string   `yaml:"default_asset"`
	DefaultFiat       string   `yaml:"default_fiat"`
	DefaultSide       string   `yaml:"default_side"`
	DefaultAmount     string   `yaml:"default_amount"`
	DefaultRefFrom    string   `yaml:"default_ref_from"`
	SupportedAssets   []string `yaml:"supported_assets"`
}

type MFavoritesConfig struct {
	Path string `yaml:"path"`
}
