package builddriver

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleCodePageArgs(t *testing.T) {
	args := consoleCodePageArgs()
	if runtime.GOOS == "windows" {
		assert.Equal(t, []string{"cmd", "/c", "chcp", "65001"}, args)
		return
	}
	// the UTF-8 switch only exists for the Windows console
	assert.Nil(t, args)
}

func TestSetEnv(t *testing.T) {
	env := []string{"PATH=/usr/bin", "LANG=C"}
	env = setEnv(env, "LANG", "C.UTF-8")
	assert.Contains(t, env, "LANG=C.UTF-8")
	assert.NotContains(t, env, "LANG=C")

	env = setEnv(env, "QT_QPA_PLATFORM", "offscreen")
	assert.Contains(t, env, "QT_QPA_PLATFORM=offscreen")
}
