package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/course"
	"github.com/trezcool/coursetrack/core/progress"
)

type courseApi struct {
	tracker  *progress.Tracker
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	tracker *progress.Tracker,
	translators *core.Translators,
	validate *validator.Validate,
) {
	api := courseApi{
		tracker:  tracker,
		validate: validate,
	}

	cg := g.Group("/courses/:course", jwt, learnerMiddleware(translators))
	cg.GET("", api.retrieve)
	cg.POST("/reconcile", api.reconcile)
	cg.POST("/videos/:video/select", api.selectVideo)
	cg.GET("/quiz", api.quiz)
	cg.DELETE("/quiz-unlock", api.resetQuizUnlock)
}

type courseParams struct {
	Course string `json:"course" validate:"required,ident"`
	Video  string `json:"video" validate:"omitempty,ident"`
}

func (api *courseApi) bindParams(ctx echo.Context) (courseParams, error) {
	params := courseParams{
		Course: core.CleanString(ctx.Param("course")),
		Video:  core.CleanString(ctx.Param("video")),
	}
	if err := api.validate.Struct(params); err != nil {
		return params, err
	}
	return params, nil
}

// Handlers

func (api *courseApi) retrieve(ctx echo.Context) error {
	params, err := api.bindParams(ctx)
	if err != nil {
		return err
	}
	l, err := getContextLearner(ctx)
	if err != nil {
		return err
	}

	view, err := api.tracker.View(ctx.Request().Context(), l, course.ID(params.Course))
	if err != nil {
		return errors.Wrap(err, "getting course view")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *courseApi) reconcile(ctx echo.Context) error {
	params, err := api.bindParams(ctx)
	if err != nil {
		return err
	}
	l, err := getContextLearner(ctx)
	if err != nil {
		return err
	}

	view, err := api.tracker.Reconcile(ctx.Request().Context(), l, course.ID(params.Course))
	if err != nil {
		return errors.Wrap(err, "reconciling course")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *courseApi) selectVideo(ctx echo.Context) error {
	params, err := api.bindParams(ctx)
	if err != nil {
		return err
	}
	l, err := getContextLearner(ctx)
	if err != nil {
		return err
	}

	view, err := api.tracker.SelectVideo(ctx.Request().Context(), l, course.ID(params.Course), course.ID(params.Video))
	if err != nil {
		return errors.Wrap(err, "selecting video")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *courseApi) quiz(ctx echo.Context) error {
	params, err := api.bindParams(ctx)
	if err != nil {
		return err
	}
	l, err := getContextLearner(ctx)
	if err != nil {
		return err
	}

	quiz, err := api.tracker.Quiz(ctx.Request().Context(), l, course.ID(params.Course))
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, quiz)
}

func (api *courseApi) resetQuizUnlock(ctx echo.Context) error {
	params, err := api.bindParams(ctx)
	if err != nil {
		return err
	}
	l, err := getContextLearner(ctx)
	if err != nil {
		return err
	}

	if err = api.tracker.ResetQuizUnlock(ctx.Request().Context(), l.ID, course.ID(params.Course)); err != nil {
		return errors.Wrap(err, "resetting quiz unlock")
	}
	return ctx.NoContent(http.StatusNoContent)
}
