package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/progress"
)

const (
	contextLearnerKey    = "learner"
	headerAcceptLanguage = "Accept-Language"
)

// learnerMiddleware turns the JWT claims into the progress.Learner the handlers act for.
// The raw token is forwarded to the e-learning platform; notices follow Accept-Language.
func learnerMiddleware(translators *core.Translators) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, claims, err := getContextToken(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			ctx.Set(contextLearnerKey, progress.Learner{
				ID:         claims.Subject,
				Name:       claims.Name,
				Email:      claims.Email,
				Token:      token.Raw,
				Translator: translators.Find(ctx.Request().Header.Get(headerAcceptLanguage)),
			})
			return next(ctx)
		}
	}
}

func getContextLearner(ctx echo.Context) (progress.Learner, error) {
	if l, ok := ctx.Get(contextLearnerKey).(progress.Learner); ok {
		return l, nil
	}
	return progress.Learner{}, errUnauthorized
}
