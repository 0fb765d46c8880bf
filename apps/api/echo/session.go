package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mavlabs/read/core/session"
	"github.com/mavlabs/read/core/user"
)

type sessionApi struct {
	svc     *session.Service
	userSvc user.Service
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *session.Service, userSvc user.Service) {
	api := sessionApi{svc: svc, userSvc: userSvc}

	sg := g.Group("/sessions", jwt)
	sg.POST("", api.create, fairyMiddleware())
	sg.GET("", api.query)
	sg.DELETE("", api.destroyMultiple, adminMiddleware())

	// detail endpoints: the session must belong to the caller's NGO
	dg := sg.Group("/:id", api.ngoMiddleware())
	dg.GET("", api.retrieve)
	dg.GET("/results", api.queryResults)
	dg.GET("/lendings", api.queryLendings)
	dg.PUT("/results", api.saveResults, fairyMiddleware())
	dg.POST("/submit", api.submit, fairyMiddleware())
	dg.PUT("/lendings", api.saveLendings, fairyMiddleware())
	dg.POST("/lendings/submit", api.submitLendings, fairyMiddleware())
	dg.POST("/verify", api.verify, supervisorMiddleware())
	dg.POST("/cancel", api.cancel, supervisorMiddleware())
	dg.PUT("/notes", api.annotate, supervisorMiddleware())
}

// ngoMiddleware hides sessions outside the caller's NGO. Platform admins
// see everything.
func (api *sessionApi) ngoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if ctxUsr.IsAdmin() {
				return next(ctx)
			}

			in, err := api.svc.InNGO(ctx.Request().Context(), ctx.Param("id"), ctxUsr.NGOID)
			if err != nil {
				return errors.Wrap(err, "checking session NGO")
			}
			if !in {
				return errHttpNotFound
			}
			return next(ctx)
		}
	}
}

// Handlers

func (api *sessionApi) create(ctx echo.Context) error {
	var data session.NewSessions
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSessions")
	}

	sessions, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sessions)
}

func (api *sessionApi) query(ctx echo.Context) error {
	filter := new(session.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []session.Session{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sessions, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *sessionApi) queryResults(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")

	s, err := api.svc.Get(reqCtx, id)
	if err != nil {
		return err
	}
	if s.Type == session.Evaluation {
		evals, err := api.svc.Evaluations(reqCtx, id)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, evals)
	}
	fbs, err := api.svc.Feedbacks(reqCtx, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, fbs)
}

func (api *sessionApi) queryLendings(ctx echo.Context) error {
	recs, err := api.svc.Lendings(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *sessionApi) saveResults(ctx echo.Context) error {
	var data ResultsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResultsRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.SaveResults(ctx.Request().Context(), ctx.Param("id"), ctxUsr.NGOID, data.Results); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) submit(ctx echo.Context) error {
	var data ResultsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResultsRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), ctxUsr.NGOID, ctxUsr.ID, data.Results); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) saveLendings(ctx echo.Context) error {
	var data LendingsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LendingsRequest")
	}

	if err := api.svc.SaveLendings(ctx.Request().Context(), ctx.Param("id"), data.Lendings); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) submitLendings(ctx echo.Context) error {
	var data LendingsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LendingsRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.SubmitLendings(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID, data.Lendings); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) verify(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Verify(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) cancel(ctx echo.Context) error {
	var data CancelRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CancelRequest")
	}

	if err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"), data.Reason); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) annotate(ctx echo.Context) error {
	var data AnnotateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnnotateRequest")
	}

	if err := api.svc.Annotate(ctx.Request().Context(), ctx.Param("id"), data.Notes); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	// ResultsRequest wraps the per-student outcome list; echo cannot bind a
	// bare JSON array on parameterized routes.
	ResultsRequest struct {
		Results []session.StudentResult `json:"results"`
	}

	LendingsRequest struct {
		Lendings []session.StudentLending `json:"lendings"`
	}

	CancelRequest struct {
		Reason string `json:"reason"`
	}

	AnnotateRequest struct {
		Notes string `json:"notes"`
	}
)
