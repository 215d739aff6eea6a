package util

import (
	"errors"
	"fmt"
	"math"
)

// error

type Error struct {
	orig error
	msg  string
	code error
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s", e.msg)
	}

	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func (e *Error) Code() error {
	return e.code
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

var (
	// ErrDataUnavailable no road features matched the bounding box / road
	// category filter, or the assembled graph came out empty.
	ErrDataUnavailable = errors.New("no matching road data available")
	// ErrBindingFailure observation points could not be snapped onto the
	// graph within the maximum snap distance.
	ErrBindingFailure = errors.New("observation binding failed")
	// ErrFitFailure model fitting failed: too few observations, observations
	// on a disconnected graph, or the likelihood did not converge.
	ErrFitFailure = errors.New("model fitting failed")
	// ErrDimensionMismatch query coordinates reference a graph other than the
	// one the model was fitted on.
	ErrDimensionMismatch = errors.New("coordinate set inconsistent with fitted graph")
	ErrBadParamInput     = errors.New("given Param is not valid")
	ErrNotFound          = errors.New("your requested Item is not found")
	ErrInternalServer    = errors.New("internal Server Error")
)

var MessageInternalServerError string = "internal server error"

func DegreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func RadiansToDegree(rad float64) float64 {
	return 180.0 * rad / math.Pi
}

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
