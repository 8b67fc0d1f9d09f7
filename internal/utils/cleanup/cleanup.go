package cleanup

// Cleanup provides an easy way to clean up resources after an operation fails.
type Cleanup struct {
	fns []func()
}

// New returns a Cleanup that will run the given functions (in reverse order).
func New(fns ...func()) *Cleanup {
	return &Cleanup{fns}
}

func (c *Cleanup) Add(fn func()) {
	c.fns = append(c.fns, fn)
}

func (c *Cleanup) Cleanup() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}

func (c *Cleanup) Cancel() {
	c.fns = nil
}
