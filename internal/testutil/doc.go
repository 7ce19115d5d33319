// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that fail fast on
// setup errors: environment variables (MustSetenv, MustUnsetenv), working
// directories (MustChdir), and on-disk fixtures (MustMkdirAll, WriteFile,
// WriteTree).
package testutil
