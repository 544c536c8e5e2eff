package tree

// A Tri is a boolean that may not be known yet.
type Tri int8

const (
	Unset Tri = iota
	False
	True
)

// TriOf converts a known boolean to a Tri.
func TriOf(b bool) Tri {
	if b {
		return True
	}
	return False
}

// Known reports whether t holds a value.
func (t Tri) Known() bool {
	return t != Unset
}

// Bool returns the value of t, and false if t is Unset.
func (t Tri) Bool() bool {
	return t == True
}

// Not negates t. Unset stays Unset.
func (t Tri) Not() Tri {
	switch t {
	case True:
		return False
	case False:
		return True
	}
	return Unset
}

// Xor combines t and o; the result is Unset if either is.
func (t Tri) Xor(o Tri) Tri {
	if !t.Known() || !o.Known() {
		return Unset
	}
	return TriOf(t.Bool() != o.Bool())
}

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "unset"
}
