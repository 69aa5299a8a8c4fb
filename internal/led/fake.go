package led

// FakeIndicator is a test double that records LED state changes.
type FakeIndicator struct {
	// States records every value passed to Set, in order.
	States []bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// NewFakeIndicator creates an empty FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the requested state.
func (f *FakeIndicator) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.States = append(f.States, on)
	return nil
}

// On returns the most recent state, or false if Set was never called.
func (f *FakeIndicator) On() bool {
	if len(f.States) == 0 {
		return false
	}
	return f.States[len(f.States)-1]
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeIndicator) Reset() {
	f.States = nil
	f.Closed = false
}
