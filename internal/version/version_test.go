package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.2.0", GitCommit: "0123456789abcdef", BuildDate: "2026-10-01", GoVersion: "go1.25.0", Platform: "linux/amd64"}

	assert.Equal(t, "opsflow v1.2.0 (0123456) built 2026-10-01 go1.25.0 linux/amd64", info.String())
}

func TestGetVersion_Ldflags(t *testing.T) {
	previous := Version
	t.Cleanup(func() { Version = previous })

	Version = "v9.9.9"
	assert.Equal(t, "v9.9.9", GetVersion())
	assert.Equal(t, "v9.9.9", Get().Version)
}
