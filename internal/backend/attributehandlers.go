package backend

import (
	"net/http"
	"strings"

	"github.com/jo-hoe/recipe-app/internal/backend/database"
	"github.com/labstack/echo/v4"
)

// attributeKind derives tags or ingredients from the matched route.
func attributeKind(ctx echo.Context) database.AttributeKind {
	if strings.Contains(ctx.Path(), "/ingredients") {
		return database.KindIngredient
	}
	return database.KindTag
}

func (service *APIService) listAttributesHandler(ctx echo.Context) error {
	assignedOnly := false
	switch strings.ToLower(strings.TrimSpace(ctx.QueryParam("assigned_only"))) {
	case "", "0", "false":
	case "1", "true":
		assignedOnly = true
	default:
		return service.respondError(ctx, "listAttributesHandler", fieldError("assigned_only", "Must be 0 or 1."))
	}

	attrs, err := service.coreService.ListAttributes(ctx.Request().Context(), currentUser(ctx), attributeKind(ctx), assignedOnly)
	if err != nil {
		return service.respondError(ctx, "listAttributesHandler", err)
	}
	out := make([]attributeResponse, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, attributeResponse{ID: a.ID, Name: a.Name})
	}
	return ctx.JSON(http.StatusOK, out)
}

// updateAttributeHandler serves PUT (name required) and PATCH.
func (service *APIService) updateAttributeHandler(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return service.respondError(ctx, "updateAttributeHandler", err)
	}
	var req attributeRequest
	if err := ctx.Bind(&req); err != nil {
		return service.respondError(ctx, "updateAttributeHandler", err)
	}

	partial := ctx.Request().Method == http.MethodPatch
	attr, err := service.coreService.UpdateAttribute(ctx.Request().Context(), currentUser(ctx), attributeKind(ctx), id, req.Name, partial)
	if err != nil {
		return service.respondError(ctx, "updateAttributeHandler", err)
	}
	return ctx.JSON(http.StatusOK, attributeResponse{ID: attr.ID, Name: attr.Name})
}

func (service *APIService) deleteAttributeHandler(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return service.respondError(ctx, "deleteAttributeHandler", err)
	}
	if err := service.coreService.DeleteAttribute(ctx.Request().Context(), currentUser(ctx), attributeKind(ctx), id); err != nil {
		return service.respondError(ctx, "deleteAttributeHandler", err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
