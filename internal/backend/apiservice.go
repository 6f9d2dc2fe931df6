package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jo-hoe/recipe-app/internal/common"
	"github.com/jo-hoe/recipe-app/internal/core"
	"github.com/labstack/echo/v4"
)

const msgServerError = "A server error occurred."

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      coreService.Config(),
	}
}

func (service *APIService) SetRoutes(e *echo.Echo) {
	e.HTTPErrorHandler = service.httpErrorHandler
	if e.Validator == nil {
		e.Validator = &common.GenericEchoValidator{}
	}

	// Set probe route
	e.GET("/probe", service.probeHandler)

	e.POST("/api/user/create", service.createUserHandler)
	e.POST("/api/user/token", service.createTokenHandler)
	e.GET("/api/user/me", service.getMeHandler, service.tokenAuth)
	e.PUT("/api/user/me", service.updateMeHandler, service.tokenAuth)
	e.PATCH("/api/user/me", service.updateMeHandler, service.tokenAuth)

	recipes := e.Group("/api/recipe", service.tokenAuth)
	recipes.GET("/recipes", service.listRecipesHandler)
	recipes.POST("/recipes", service.createRecipeHandler)
	recipes.GET("/recipes/:id", service.getRecipeHandler)
	recipes.PUT("/recipes/:id", service.updateRecipeHandler)
	recipes.PATCH("/recipes/:id", service.updateRecipeHandler)
	recipes.DELETE("/recipes/:id", service.deleteRecipeHandler)
	recipes.POST("/recipes/:id/upload-image", service.uploadRecipeImageHandler)

	for _, kind := range []string{"tags", "ingredients"} {
		recipes.GET("/"+kind, service.listAttributesHandler)
		recipes.PUT("/"+kind+"/:id", service.updateAttributeHandler)
		recipes.PATCH("/"+kind+"/:id", service.updateAttributeHandler)
		recipes.DELETE("/"+kind+"/:id", service.deleteAttributeHandler)
	}

	e.Static(strings.TrimSuffix(service.config.Media.URL, "/"), service.config.Media.Root)
}

func (service *APIService) probeHandler(ctx echo.Context) error {
	if err := service.coreService.Ping(ctx.Request().Context()); err != nil {
		slog.Error("probeHandler: database unavailable", "status", http.StatusServiceUnavailable, "error", err)
		return ctx.String(http.StatusServiceUnavailable, "database unavailable")
	}
	return ctx.String(http.StatusOK, "API Service is running")
}

// respondError renders err in the {"detail": ...} or field map shape.
func (service *APIService) respondError(ctx echo.Context, handler string, err error) error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		if coreErr.Status >= http.StatusInternalServerError {
			slog.Error(handler+": request failed", "status", coreErr.Status, "error", err)
		} else {
			slog.Debug(handler+": request rejected", "status", coreErr.Status, "code", coreErr.Code)
		}
		if coreErr.Status == http.StatusUnauthorized {
			ctx.Response().Header().Set(echo.HeaderWWWAuthenticate, "Token")
		}
		if len(coreErr.Details) > 0 {
			return ctx.JSON(coreErr.Status, coreErr.Details)
		}
		return ctx.JSON(coreErr.Status, detailResponse{Detail: coreErr.Message})
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		switch msg := httpErr.Message.(type) {
		case string:
			return ctx.JSON(httpErr.Code, detailResponse{Detail: msg})
		case error:
			return ctx.JSON(httpErr.Code, detailResponse{Detail: msg.Error()})
		default:
			return ctx.JSON(httpErr.Code, msg)
		}
	}

	slog.Error(handler+": unexpected error", "status", http.StatusInternalServerError, "error", err)
	return ctx.JSON(http.StatusInternalServerError, detailResponse{Detail: msgServerError})
}

// httpErrorHandler renders errors raised outside the handlers, e.g. unknown routes.
func (service *APIService) httpErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code == http.StatusNotFound {
		err = core.ErrNotFound()
	}
	if rerr := service.respondError(ctx, "httpErrorHandler", err); rerr != nil {
		slog.Error("httpErrorHandler: failed to write error response", "error", rerr)
	}
}

// pathID parses the :id parameter. Malformed IDs are reported as not found.
func pathID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound()
	}
	return id, nil
}

// absoluteMediaURL mirrors how uploaded files are addressed from the outside.
func (service *APIService) absoluteMediaURL(ctx echo.Context, relPath string) *string {
	rel := service.coreService.MediaURL(relPath)
	if rel == "" {
		return nil
	}
	abs := ctx.Scheme() + "://" + ctx.Request().Host + rel
	return &abs
}
