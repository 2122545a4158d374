package models

// EquityPoint is one datum of a raised-vs-equity-granted series. Amounts are
// expressed in millions.
type EquityPoint struct {
	AmountRaised     float64 `json:"amountRaised"`
	CumulativeRaised float64 `json:"cumulativeRaised"`
	EquityGranted    float64 `json:"equityGranted"`
	CumulativeEquity float64 `json:"cumulativeEquity"`
	Label            string  `json:"label"`
	Order            int     `json:"order"`
}
