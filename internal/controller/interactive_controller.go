package controller

import (
	"gruenerator-be/internal/dto"
	"gruenerator-be/internal/pkg/serverutils"
	"gruenerator-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IInteractiveController interface {
	RegisterRoutes(r fiber.Router)
	Initiate(ctx *fiber.Ctx) error
	Continue(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type interactiveController struct {
	interactiveService service.IInteractiveService
}

func NewInteractiveController(interactiveService service.IInteractiveService) IInteractiveController {
	return &interactiveController{
		interactiveService: interactiveService,
	}
}

func (c *interactiveController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/interactive/v1")
	h.Post("initiate", c.Initiate)
	h.Post("continue", c.Continue)
	h.Get("sessions/:id", c.GetSession)
	h.Get("history", c.History)
}

func (c *interactiveController) Initiate(ctx *fiber.Ctx) error {
	var req dto.InitiateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.interactiveService.Initiate(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success initiate session", res))
}

func (c *interactiveController) Continue(ctx *fiber.Ctx) error {
	var req dto.ContinueRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.interactiveService.Continue(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success continue session", res))
}

func (c *interactiveController) GetSession(ctx *fiber.Ctx) error {
	userId := ctx.Query("user_id")
	if userId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing query parameter user_id")
	}

	res, err := c.interactiveService.GetSession(ctx.UserContext(), userId, ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *interactiveController) History(ctx *fiber.Ctx) error {
	var query dto.HistoryQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}

	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.interactiveService.ListHistory(ctx.UserContext(), &query)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list history", res))
}
