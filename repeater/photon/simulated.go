package photon

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/alan-christopher/repeater/repeater/bitmap"
)

// A SimulatedChannel loses every photon independently with a fixed
// probability. A SimulatedChannel is not safe for concurrent use.
type SimulatedChannel struct {
	// DropMask, if non-empty, marks photons that are lost regardless of the
	// loss probability. Bit i applies to the i'th photon of each Transmit.
	DropMask bitmap.Dense

	loss float64
	rand *rand.Rand
}

// NewSimulatedChannel returns a channel losing photons with probability loss,
// drawing from r.
func NewSimulatedChannel(loss float64, r *rand.Rand) (*SimulatedChannel, error) {
	if math.IsNaN(loss) || loss < 0 || loss > 1 {
		return nil, fmt.Errorf("loss probability must lie in [0, 1], got %v", loss)
	}
	if r == nil {
		return nil, fmt.Errorf("must provide a randomness source")
	}
	return &SimulatedChannel{loss: loss, rand: r}, nil
}

// Transmit implements Channel. It consumes exactly one draw from the
// randomness source per photon.
func (sc *SimulatedChannel) Transmit(count int) (bitmap.Dense, error) {
	if count < 0 {
		return bitmap.Dense{}, fmt.Errorf("cannot transmit %d photons", count)
	}
	dropped := bitmap.NewDense(nil, count)
	for i := 0; i < count; i++ {
		if sc.rand.Float64() < sc.loss {
			dropped.Set(i, true)
		}
	}
	for _, i := range sc.DropMask.Ones() {
		dropped.Set(i, true)
	}
	return dropped, nil
}
