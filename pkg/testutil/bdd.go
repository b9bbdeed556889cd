// Package testutil holds helpers shared by package tests.
package testutil

import "testing"

// step runs fn as a subtest named "<keyword> <desc>". A failed step stops
// the enclosing one so later steps never run against a broken fixture.
func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(keyword+" "+desc, fn) {
		t.FailNow()
	}
}

// Given names the fixture a scenario starts from.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", desc, fn)
}

// When names the action under test.
func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", desc, fn)
}

// Then names an expected outcome.
func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", desc, fn)
}

// And continues the previous step.
func And(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "And", desc, fn)
}
