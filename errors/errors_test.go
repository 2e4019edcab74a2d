package errors

import (
	stderrors "errors"
	"regexp"
	"testing"
)

var prefixRe = regexp.MustCompile(`^\[errors_test\.go:\d+\] `)

func TestNewIncludesCallSite(t *testing.T) {
	err := New("something %s", "broke")
	if !prefixRe.MatchString(err.Error()) {
		t.Errorf("Missing call site prefix: %q", err.Error())
	}
	if want := "something broke"; !regexp.MustCompile(want).MatchString(err.Error()) {
		t.Errorf("Missing message %q in %q", want, err.Error())
	}
}

func TestWrapf(t *testing.T) {
	base := stderrors.New("root cause")
	err := Wrapf(base, "while doing %s", "work")

	if !prefixRe.MatchString(err.Error()) {
		t.Errorf("Missing call site prefix: %q", err.Error())
	}
	if !stderrors.Is(err, base) {
		t.Error("Wrapped error is not reachable via errors.Is")
	}

	if Wrapf(nil, "ignored") != nil {
		t.Error("Wrapf(nil, ...) must return nil")
	}
}
