package controllers

import (
	"github.com/roadstats/trafficfield/pkg/field"
)

type observationsRequest struct {
	Column string `json:"column" validate:"required"`
}

type predictionsRequest struct {
	H            float64 `json:"h" validate:"required,gt=0"`
	WithVariance bool    `json:"with_variance"`
	Normalize    bool    `json:"normalize"`
}

type summaryResponse struct {
	Backend    string                    `json:"backend"`
	Parameters []field.ParameterEstimate `json:"parameters"`
}

func NewSummaryResponse(backend string, params []field.ParameterEstimate) summaryResponse {
	return summaryResponse{
		Backend:    backend,
		Parameters: params,
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
