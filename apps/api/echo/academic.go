package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/academic"
	"github.com/mavlabs/read/core/user"
)

type academicApi struct {
	svc     *academic.Service
	userSvc user.Service
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academic.Service, userSvc user.Service) {
	api := academicApi{svc: svc, userSvc: userSvc}

	ag := g.Group("/academic-years", jwt)
	ag.GET("", api.query)
	ag.GET("/current", api.current)
	ag.GET("/:id", api.retrieve)
	ag.POST("", api.create, adminMiddleware())
	ag.PUT("/:id/name", api.rename, adminMiddleware())
}

func (api *academicApi) query(ctx echo.Context) error {
	years, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying academic years")
	}
	if years == nil {
		years = []academic.Year{}
	}
	return ctx.JSON(http.StatusOK, years)
}

func (api *academicApi) current(ctx echo.Context) error {
	year, err := api.svc.Current(ctx.Request().Context(), time.Now())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *academicApi) retrieve(ctx echo.Context) error {
	year, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, year)
}

func (api *academicApi) create(ctx echo.Context) error {
	var data academic.NewYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewYear")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	year, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating academic year")
	}
	return ctx.JSON(http.StatusCreated, year)
}

func (api *academicApi) rename(ctx echo.Context) error {
	var data RenameRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RenameRequest")
	}
	if core.CleanString(data.Name) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "name is required"})
	}

	year, err := api.svc.Rename(ctx.Request().Context(), ctx.Param("id"), data.Name)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, year)
}

type RenameRequest struct {
	Name string `json:"name"`
}
