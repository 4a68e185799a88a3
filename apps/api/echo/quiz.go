package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/quiz"
)

type quizApi struct {
	svc *quiz.Service
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *quiz.Service) {
	api := quizApi{svc: svc}

	bg := g.Group("/banks", jwt, instructorMiddleware())
	bg.GET("", api.queryBanks)
	bg.GET("/:id", api.retrieveBank)
}

func (api *quizApi) queryBanks(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	banks, err := api.svc.OwnerBanks(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying owner banks")
	}
	if banks == nil {
		banks = []quiz.Bank{}
	}
	return ctx.JSON(http.StatusOK, banks)
}

func (api *quizApi) retrieveBank(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	bank, err := api.svc.GetBank(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	// banks are private to their owner
	if bank.OwnerID != claims.Subject && !claims.IsAdmin {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, bank)
}
