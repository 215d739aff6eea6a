package util

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestWrapErrorf(t *testing.T) {
	orig := fmt.Errorf("disk on fire")
	err := WrapErrorf(orig, ErrDataUnavailable, "reading %s", "roads.graph")

	var wrapped *Error
	if !errors.As(err, &wrapped) {
		t.Fatal("WrapErrorf should produce a *util.Error")
	}
	if wrapped.Code() != ErrDataUnavailable {
		t.Errorf("code = %v, want ErrDataUnavailable", wrapped.Code())
	}
	if !errors.Is(err, orig) {
		t.Error("wrapped error should unwrap to the original")
	}
	if err.Error() != "reading roads.graph" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestWrapErrorfWithoutOriginal(t *testing.T) {
	err := WrapErrorf(nil, ErrBadParamInput, "alpha must be 1 or 2")

	var wrapped *Error
	if !errors.As(err, &wrapped) {
		t.Fatal("WrapErrorf should produce a *util.Error")
	}
	if wrapped.Unwrap() != nil {
		t.Error("nothing to unwrap")
	}
	if wrapped.Code() != ErrBadParamInput {
		t.Errorf("code = %v, want ErrBadParamInput", wrapped.Code())
	}
}

func TestDegreeRadianConversion(t *testing.T) {
	if got := DegreeToRadians(180); math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("DegreeToRadians(180) = %f", got)
	}
	if got := RadiansToDegree(math.Pi / 2); math.Abs(got-90) > 1e-12 {
		t.Errorf("RadiansToDegree(pi/2) = %f", got)
	}
}

func TestRoundFloat(t *testing.T) {
	if got := RoundFloat(1.23456, 2); got != 1.23 {
		t.Errorf("RoundFloat = %f", got)
	}
}
