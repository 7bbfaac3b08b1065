package domain

// Límites duros para cualquier estimación de probabilidad del pipeline.
// Nunca afirmamos certeza sobre un mercado abierto.
const (
	ProbFloor = 0.02
	ProbCeil  = 0.98
)

// ClampProb recorta una probabilidad al rango operativo [0.02, 0.98].
func ClampProb(p float64) float64 {
	if p < ProbFloor {
		return ProbFloor
	}
	if p > ProbCeil {
		return ProbCeil
	}
	return p
}

// Clamp recorta v al rango [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BlendTowardPrice acerca la estimación al precio de mercado según el
// descuento y la confianza. Con confianza baja la estimación apenas se
// separa del precio; con confianza 1.0 se aplica el descuento completo.
//
//	p' = price + (prob - price) × discount × clamp(conf, 0.5, 1.0)
func BlendTowardPrice(prob, price, discount, confidence float64) float64 {
	c := Clamp(confidence, 0.5, 1.0)
	return price + (prob-price)*discount*c
}

// KellyFullFraction calcula la fracción de Kelly completa para una apuesta
// binaria a precio price con probabilidad estimada prob.
//
//	b  = (1 - price) / price   (ganancia neta por unidad apostada)
//	f* = (b·p - q) / b
//
// Devuelve 0 si no hay ventaja (f* <= 0) o si los inputs son inválidos.
func KellyFullFraction(prob, price float64) float64 {
	if price <= 0 || price >= 1 || prob <= 0 || prob >= 1 {
		return 0
	}
	b := (1 - price) / price
	f := (b*prob - (1 - prob)) / b
	if f < 0 {
		return 0
	}
	return f
}
