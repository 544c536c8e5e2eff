package repeater

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for protocol parameters that cannot
	// describe a repeater chain.
	ErrConfiguration = errors.New("invalid protocol configuration")
	// ErrVerification matches every *VerificationError.
	ErrVerification = errors.New("stabilizer verification failed")
)

// A VerificationError reports a graph-state stabilizer that did not have the
// expected eigenvalue while preparing a trial. It means the simulated state and
// the bookkeeping of side effects have diverged, and is never expected.
type VerificationError struct {
	Vertex     int
	Neighbours []int
	Expected   int
	Got        int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("stabilizer of vertex %d with neighbours %v: expected %+d, got %+d",
		e.Vertex, e.Neighbours, e.Expected, e.Got)
}

// Is reports whether target is ErrVerification.
func (e *VerificationError) Is(target error) bool {
	return target == ErrVerification
}
