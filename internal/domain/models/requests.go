package models

// Requests for screening HTTP endpoints. Defined in domain for consistency and reuse.

type VirtualGrowthRequest struct {
	Mode      string   `query:"mode" json:"mode" default:"interim" validate:"oneof=annual interim"`
	Year      int      `query:"year" json:"year" validate:"gte=0,lte=9999"`
	Quarters  []int    `query:"quarter" json:"quarters" validate:"dive,gte=1,lte=4"`
	Tickers   []string `query:"ticker" json:"tickers"`
	Exchanges []string `query:"exchange" json:"exchanges"`
	Sectors   []string `query:"sector" json:"sectors"`
}

type StreakRequest struct {
	Mode      string   `query:"mode" json:"mode" default:"interim" validate:"oneof=annual interim"`
	Metrics   []string `query:"metric" json:"metrics" validate:"dive,oneof=cfo parent_profit net_income"`
	Tickers   []string `query:"ticker" json:"tickers"`
	Exchanges []string `query:"exchange" json:"exchanges"`
	Sectors   []string `query:"sector" json:"sectors"`
}

type IndustryRequest struct {
	Mode     string   `query:"mode" json:"mode" default:"interim" validate:"oneof=annual interim"`
	Year     int      `query:"year" json:"year" validate:"gte=0,lte=9999"`
	Quarters []int    `query:"quarter" json:"quarters" validate:"dive,gte=1,lte=4"`
	Groups   []string `query:"group" json:"groups"`
	Tickers  []string `query:"ticker" json:"tickers"`
}

type VolumeRequest struct {
	Date    string   `query:"date" json:"date"`
	Tickers []string `query:"ticker" json:"tickers"`
}

type PeriodsRequest struct {
	Mode string `query:"mode" json:"mode" default:"interim" validate:"oneof=annual interim"`
}

type CatalogueRequest struct {
	Tickers []string `query:"ticker" json:"tickers"`
	Model   string   `query:"model" json:"model"`
	Grades  []string `query:"grade" json:"grades"`
	TopN    int      `query:"top_n" json:"top_n" default:"50" validate:"gte=30,lte=300"`
}

type RefreshRequest struct {
	Reason string `json:"reason" default:"manual" validate:"max=128"`
}
