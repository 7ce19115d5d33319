// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir points the platform home directory variable at dir and clears
// XDG_CONFIG_HOME so configuration lookups resolve below it. It returns a
// cleanup function restoring both.
//
//	t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	var restoreHome func()
	switch runtime.GOOS {
	case "windows":
		restoreHome = MustSetenv(t, "USERPROFILE", dir)
	default:
		restoreHome = MustSetenv(t, "HOME", dir)
	}
	restoreXDG := MustUnsetenv(t, "XDG_CONFIG_HOME")

	return func() {
		restoreXDG()
		restoreHome()
	}
}
