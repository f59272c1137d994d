package logger

import "testing"

func TestGet_InitializesOnce(t *testing.T) {
	first := Get()
	if first == nil {
		t.Fatal("Get should never return nil")
	}

	Init("production")
	if Get() != first {
		t.Error("Init after the first call should not replace the logger")
	}

	if Named("valuation") == nil {
		t.Error("Named should return a child logger")
	}
	Sync()
}
