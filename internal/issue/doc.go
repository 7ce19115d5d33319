// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions for the user. The Issue catalogue holds Markdown guidance for
// the failures plugload users hit most; ForError picks the entry matching an
// error chain so the CLI can render it with glamour.
package issue
