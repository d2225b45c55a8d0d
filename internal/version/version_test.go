package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	assert.Equal(t, "dev", Info{Version: "dev", GitCommit: "unknown"}.String())
	assert.Equal(t, "1.4.0 (abc123)", Info{Version: "1.4.0", GitCommit: "abc123"}.String())
}
