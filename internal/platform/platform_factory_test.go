package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlatformReturnsImplementation(t *testing.T) {
	p, err := NewPlatform()
	require.NoError(t, err)
	require.NotNil(t, p)

	info, err := p.GetSystemInfo()
	require.NoError(t, err)
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Arch)
}

// The factory references all three OS constructors unconditionally, so each
// GOOS must compile stubs for the other two.
func TestCrossPlatformConstructorsAreStubbed(t *testing.T) {
	constructors := map[string]func() (Platform, error){
		"windows": newWindowsPlatform,
		"darwin":  newDarwinPlatform,
		"linux":   newLinuxPlatform,
	}

	for goos, construct := range constructors {
		if goos == runtime.GOOS {
			continue
		}
		p, err := construct()
		require.Error(t, err, "constructor for %s must be a stub on %s", goos, runtime.GOOS)
		assert.Nil(t, p)

		var unsupported *UnsupportedPlatformError
		require.ErrorAs(t, err, &unsupported)
		assert.Contains(t, unsupported.Error(), goos)
	}
}

func TestUnsupportedPlatformError(t *testing.T) {
	err := &UnsupportedPlatformError{OS: "plan9"}
	assert.Contains(t, err.Error(), "plan9")
}
