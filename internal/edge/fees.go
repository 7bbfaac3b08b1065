package edge

// NewFeeSchedule construye el schedule de costes de Polymarket como función
// pura del precio. La mayoría de los mercados no cobran taker fee; los que
// sí (deportes con fee habilitado) cobran rate × p × (1-p). Todos pagan un
// coste de spread, más ancho cerca de 50¢ y más estrecho en los extremos.
func NewFeeSchedule(feeRate, spreadCost float64, feeEnabled bool) func(price float64) float64 {
	return func(price float64) float64 {
		fee := 0.0
		if feeEnabled {
			fee = feeRate * price * (1 - price)
		}
		return fee + spreadCost*2*price*(1-price)
	}
}

// ZeroFees es un schedule sin costes. Útil en tests y backtests.
func ZeroFees(price float64) float64 { return 0 }
