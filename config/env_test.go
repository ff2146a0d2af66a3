package config

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SNEK_STR", "abc")
	t.Setenv("SNEK_INT", "12")
	t.Setenv("SNEK_BAD_INT", "twelve")
	t.Setenv("SNEK_FLOAT", "0.25")
	t.Setenv("SNEK_DUR", "150ms")
	t.Setenv("SNEK_BOOL", "yes")
	t.Setenv("SNEK_FALSE", "nope")

	if got := EnvOrDefault("SNEK_STR", "x"); got != "abc" {
		t.Errorf("EnvOrDefault=%q", got)
	}
	if got := EnvOrDefault("SNEK_UNSET", "x"); got != "x" {
		t.Errorf("EnvOrDefault unset=%q", got)
	}
	if got := EnvInt("SNEK_INT", 1); got != 12 {
		t.Errorf("EnvInt=%d", got)
	}
	if got := EnvInt("SNEK_BAD_INT", 1); got != 1 {
		t.Errorf("EnvInt bad=%d", got)
	}
	if got := EnvFloat("SNEK_FLOAT", 1); got != 0.25 {
		t.Errorf("EnvFloat=%v", got)
	}
	if got := EnvDuration("SNEK_DUR", time.Second); got != 150*time.Millisecond {
		t.Errorf("EnvDuration=%v", got)
	}
	if !EnvBool("SNEK_BOOL", false) || EnvBool("SNEK_FALSE", true) || !EnvBool("SNEK_UNSET", true) {
		t.Errorf("EnvBool wrong")
	}
}
