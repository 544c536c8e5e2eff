// Package photon models the fiber that carries the photonic qubits of a
// repeater graph state to their Bell-state measurement.
package photon

import "github.com/alan-christopher/repeater/repeater/bitmap"

// A Channel transmits photons and reports which of them never arrived.
type Channel interface {
	// Transmit sends the next count photons. The returned mask has one bit per
	// photon, in the order they were sent, set iff that photon was lost.
	Transmit(count int) (dropped bitmap.Dense, err error)
}
