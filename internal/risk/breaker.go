package risk

import (
	"log/slog"
	"sync"
)

// Breaker es el circuit breaker del pipeline: tras N ciclos de escaneo
// fallidos consecutivos, el pipeline entra en estado halted y requiere un
// reinicio externo. Es el único contador global del proceso y se resetea
// explícitamente al arrancar.
type Breaker struct {
	mu       sync.Mutex
	max      int
	failures int
	halted   bool
	log      *slog.Logger
}

// NewBreaker crea un breaker que dispara tras max fallos consecutivos.
func NewBreaker(max int, log *slog.Logger) *Breaker {
	if log == nil {
		log = slog.Default()
	}
	return &Breaker{max: max, log: log}
}

// RecordFailure registra un ciclo fallido. Devuelve true si el breaker
// acaba de disparar.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.halted {
		return false
	}
	b.failures++
	if b.failures >= b.max {
		b.halted = true
		b.log.Error("circuit breaker disparado, pipeline detenido",
			"consecutive_failures", b.failures)
		return true
	}
	return false
}

// RecordSuccess resetea el contador: solo los fallos consecutivos cuentan.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// Halted devuelve si el pipeline está detenido.
func (b *Breaker) Halted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.halted
}

// Reset limpia el estado del breaker. Se llama una vez al arrancar el
// proceso, nunca automáticamente.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.halted = false
}

// Failures devuelve el número de fallos consecutivos actuales.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
