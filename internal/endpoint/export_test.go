package endpoint

// WithEnv swaps the environment lookup used by the locator.
func (l *Locator) WithEnv(getenv func(string) string) *Locator {
	l.getenv = getenv
	return l
}
