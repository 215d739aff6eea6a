package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	helper "github.com/roadstats/trafficfield/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type analysisAPI struct {
	analysisService AnalysisService
	log             *zap.Logger
}

func New(analysisService AnalysisService, log *zap.Logger) *analysisAPI {
	return &analysisAPI{
		analysisService: analysisService,
		log:             log,
	}
}

func (api *analysisAPI) Routes(group *helper.RouteGroup) {
	group.GET("/graph", api.graph)
	group.GET("/observations", api.observations)
	group.GET("/summary", api.summary)
	group.GET("/predictions", api.predictions)
}

func (api *analysisAPI) graph(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	fc := api.analysisService.GraphGeoJSON()
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": fc}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *analysisAPI) observations(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	request := observationsRequest{
		Column: r.URL.Query().Get("column"),
	}

	if errs := api.validate(request); errs != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", errs))
		return
	}

	fc, err := api.analysisService.ObservationsGeoJSON(request.Column)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": fc}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *analysisAPI) summary(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	backend, params := api.analysisService.ModelSummary()
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewSummaryResponse(backend, params)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *analysisAPI) predictions(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		request predictionsRequest
		err     error
	)

	query := r.URL.Query()

	request.H, err = strconv.ParseFloat(query.Get("h"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("h is required and must be a valid float"))
		return
	}
	if v := query.Get("with_variance"); v != "" {
		request.WithVariance, err = strconv.ParseBool(v)
		if err != nil {
			api.BadRequestResponse(w, r, errors.New("with_variance must be a valid bool"))
			return
		}
	}
	if v := query.Get("normalize"); v != "" {
		request.Normalize, err = strconv.ParseBool(v)
		if err != nil {
			api.BadRequestResponse(w, r, errors.New("normalize must be a valid bool"))
			return
		}
	}

	if errs := api.validate(request); errs != nil {
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", errs))
		return
	}

	fc, err := api.analysisService.PredictionsGeoJSON(request.H, request.WithVariance, request.Normalize)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": fc}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *analysisAPI) validate(request interface{}) []string {
	validate := validator.New()
	if err := validate.Struct(request); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		return vvString
	}
	return nil
}
