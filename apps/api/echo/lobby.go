package echoapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lobby"
	"github.com/trezcool/darasa/core/quiz"
)

type lobbyApi struct {
	svc     *lobby.Service
	quizSvc *quiz.Service
}

func registerLobbyAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	logger core.Logger,
	svc *lobby.Service,
	quizSvc *quiz.Service,
) {
	api := lobbyApi{svc: svc, quizSvc: quizSvc}

	lg := g.Group("/lobbies", jwt)
	lg.GET("", api.query)
	lg.GET("/:id", api.retrieve)
	lg.GET("/:id/grades", api.queryGrades, instructorMiddleware())

	// live coordination endpoint
	g.GET("/ws", newWSHandler(conf, logger, svc), jwt)
}

func (api *lobbyApi) query(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, lobby.LobbyUpdate{Lobbies: api.svc.List()})
}

func (api *lobbyApi) retrieve(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	l, err := api.svc.Get(id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lobbyApi) queryGrades(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	l, err := api.svc.Get(id)
	if err != nil && errors.Cause(err) != lobby.ErrNotFound {
		return err
	}
	// a swept lobby's grades remain queryable; only check ownership when the
	// lobby is still live
	if err == nil && l.OwnerID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	grades, err := api.quizSvc.LobbyGrades(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying lobby grades")
	}
	if grades == nil {
		grades = []quiz.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}
