package backend

import (
	"net/http"

	"github.com/jo-hoe/recipe-app/internal/core"
	"github.com/labstack/echo/v4"
)

func (service *APIService) createUserHandler(ctx echo.Context) error {
	var req createUserRequest
	if err := ctx.Bind(&req); err != nil {
		return service.respondError(ctx, "createUserHandler", err)
	}
	if err := ctx.Validate(&req); err != nil {
		return service.respondError(ctx, "createUserHandler", err)
	}

	user, err := service.coreService.CreateUser(ctx.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return service.respondError(ctx, "createUserHandler", err)
	}
	return ctx.JSON(http.StatusCreated, toUserResponse(user))
}

func (service *APIService) createTokenHandler(ctx echo.Context) error {
	var req tokenRequest
	if err := ctx.Bind(&req); err != nil {
		return service.respondError(ctx, "createTokenHandler", err)
	}
	if err := ctx.Validate(&req); err != nil {
		return service.respondError(ctx, "createTokenHandler", err)
	}

	key, err := service.coreService.Authenticate(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		return service.respondError(ctx, "createTokenHandler", err)
	}
	return ctx.JSON(http.StatusOK, tokenResponse{Token: key})
}

func (service *APIService) getMeHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, toUserResponse(currentUser(ctx)))
}

// updateMeHandler serves PUT and PATCH. PUT requires email and password.
func (service *APIService) updateMeHandler(ctx echo.Context) error {
	var req updateUserRequest
	if err := ctx.Bind(&req); err != nil {
		return service.respondError(ctx, "updateMeHandler", err)
	}

	if ctx.Request().Method == http.MethodPut {
		missing := map[string]any{}
		if req.Email == nil {
			missing["email"] = []string{"This field is required."}
		}
		if req.Password == nil {
			missing["password"] = []string{"This field is required."}
		}
		if len(missing) > 0 {
			return service.respondError(ctx, "updateMeHandler",
				(&core.Error{Status: http.StatusBadRequest, Code: core.CodeInvalid, Message: "missing required fields"}).WithDetails(missing))
		}
	}

	user, err := service.coreService.UpdateMe(ctx.Request().Context(), currentUser(ctx), core.UserPatch{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return service.respondError(ctx, "updateMeHandler", err)
	}
	return ctx.JSON(http.StatusOK, toUserResponse(user))
}
