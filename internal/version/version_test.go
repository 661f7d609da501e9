package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := []string{Version, GitCommit, BuildTime}

	t.Cleanup(func() {
		Version, GitCommit, BuildTime = orig[0], orig[1], orig[2]
	})

	Version, GitCommit, BuildTime = "v0.3.1", "abc1234", "2026-01-02T03:04:05Z"

	assert.Equal(t, "labdesc v0.3.1 (commit abc1234, built 2026-01-02T03:04:05Z)", String())
}
