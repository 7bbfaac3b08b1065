package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarket es un mercado de GET /markets de Gamma.
// Gamma codifica outcomePrices y clobTokenIds como strings JSON anidados,
// y algunos campos numéricos como strings: usamos json.Number y parseamos
// los anidados en mapping.go.
type gammaMarket struct {
	ID             string      `json:"id"`
	ConditionID    string      `json:"conditionId"`
	Question       string      `json:"question"`
	Slug           string      `json:"slug"`
	EndDate        string      `json:"endDate"`
	OutcomePrices  string      `json:"outcomePrices"`
	Outcomes       string      `json:"outcomes"`
	ClobTokenIDs   string      `json:"clobTokenIds"`
	Volume         json.Number `json:"volume"`
	Liquidity      json.Number `json:"liquidity"`
	FeeType        string      `json:"feeType"`
	NegRisk        bool        `json:"negRisk"`
	Active         bool        `json:"active"`
	Closed         bool        `json:"closed"`
	UMAResolution  string      `json:"umaResolutionStatus"`
}

// --- CLOB API ---

// bookResponse es la respuesta de GET /book?token_id=.
type bookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// clobOrder es el body enviado a POST /order.
type clobOrder struct {
	TokenID   string `json:"tokenID"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	OrderType string `json:"orderType"`
	NegRisk   bool   `json:"negRisk"`
}

// clobOrderResponse es la respuesta de POST /order.
type clobOrderResponse struct {
	Success      bool   `json:"success"`
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	Status       string `json:"status"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
}

// clobBalanceResponse es la respuesta de GET /balance-allowance.
// El balance viene en unidades base de USDC.e (6 decimales).
type clobBalanceResponse struct {
	Balance string `json:"balance"`
}
