/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

// mockT records failures instead of stopping the test.
type mockT struct {
	failed bool
}

func (t *mockT) FailNow() {
	t.failed = true
}

func (t *mockT) Errorf(string, ...interface{}) {
	t.failed = true
}
