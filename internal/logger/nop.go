package logger

// Nop discards everything. Tests and library callers without a logger use it.
type Nop struct{}

// NewNop returns a Logger that drops all entries.
func NewNop() Logger { return Nop{} }

func (Nop) Debug(string, ...Field) {}
func (Nop) Info(string, ...Field) {}
func (Nop) Warn(string, ...Field) {}
func (Nop) Error(string, ...Field) {}
func (Nop) Fatal(string, ...Field) {}
func (n Nop) With(...Field) Logger { return n }
func (Nop) Sync() error { return nil }
