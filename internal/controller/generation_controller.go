package controller

import (
	"fmt"
	"io"

	"qnagen-be/internal/dto"
	"qnagen-be/internal/pkg/serverutils"
	"qnagen-be/internal/service"
	"qnagen-be/pkg/qgen"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IGenerationController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	SetMode(ctx *fiber.Ctx) error
	SetTypes(ctx *fiber.Ctx) error
	SetFreeText(ctx *fiber.Ctx) error
	AddTopic(ctx *fiber.Ctx) error
	UpdateTopic(ctx *fiber.Ctx) error
	RemoveTopic(ctx *fiber.Ctx) error
	AddListQuestion(ctx *fiber.Ctx) error
	UpdateListQuestion(ctx *fiber.Ctx) error
	RemoveListQuestion(ctx *fiber.Ctx) error
	SetAttachment(ctx *fiber.Ctx) error
	Generate(ctx *fiber.Ctx) error
	RequestAnswer(ctx *fiber.Ctx) error
	Collapse(ctx *fiber.Ctx) error
	Export(ctx *fiber.Ctx) error
	SignOut(ctx *fiber.Ctx) error
}

type generationController struct {
	service   service.IGenerationService
	jwtSecret string
}

func NewGenerationController(service service.IGenerationService, jwtSecret string) IGenerationController {
	return &generationController{service: service, jwtSecret: jwtSecret}
}

func (c *generationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions", serverutils.OptionalJwtMiddleware(c.jwtSecret))
	h.Post("", c.CreateSession)
	h.Get("/:id", c.GetSession)
	h.Put("/:id/mode", c.SetMode)
	h.Put("/:id/types", c.SetTypes)
	h.Put("/:id/free-text", c.SetFreeText)

	h.Post("/:id/topics", c.AddTopic)
	h.Patch("/:id/topics/:topicId", c.UpdateTopic)
	h.Delete("/:id/topics/:topicId", c.RemoveTopic)

	h.Post("/:id/list-questions", c.AddListQuestion)
	h.Patch("/:id/list-questions/:entryId", c.UpdateListQuestion)
	h.Delete("/:id/list-questions/:entryId", c.RemoveListQuestion)

	h.Put("/:id/attachments/:mode", c.SetAttachment)

	h.Post("/:id/generate", c.Generate)
	h.Post("/:id/questions/:questionId/answer", c.RequestAnswer)
	h.Post("/:id/questions/:questionId/collapse", c.Collapse)
	h.Post("/:id/export", c.Export)
	h.Post("/:id/sign-out", c.SignOut)
}

// identity turns the optional bearer token into the observed auth state.
func identity(ctx *fiber.Ctx) *qgen.Identity {
	userId, email, ok := serverutils.UserFromLocals(ctx)
	if !ok {
		return nil
	}
	return &qgen.Identity{UserID: userId, Email: email}
}

func uuidParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func parseBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return serverutils.ValidateRequest(req)
}

func (c *generationController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.Context(), identity(ctx))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *generationController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.Context(), ctx.Params("id"), identity(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *generationController) SetMode(ctx *fiber.Ctx) error {
	var req dto.SetModeRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetMode(ctx.Context(), ctx.Params("id"), identity(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Mode updated", res))
}

func (c *generationController) SetTypes(ctx *fiber.Ctx) error {
	var req dto.SetTypesRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetTypes(ctx.Context(), ctx.Params("id"), identity(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Question types updated", res))
}

func (c *generationController) SetFreeText(ctx *fiber.Ctx) error {
	var req dto.SetFreeTextRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetFreeText(ctx.Context(), ctx.Params("id"), identity(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Text updated", res))
}

func (c *generationController) AddTopic(ctx *fiber.Ctx) error {
	var req dto.TopicRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.AddTopic(ctx.Context(), ctx.Params("id"), identity(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Topic added", res))
}

func (c *generationController) UpdateTopic(ctx *fiber.Ctx) error {
	topicId, err := uuidParam(ctx, "topicId")
	if err != nil {
		return err
	}
	var req dto.TopicRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.UpdateTopic(ctx.Context(), ctx.Params("id"), identity(ctx), topicId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Topic updated", res))
}

func (c *generationController) RemoveTopic(ctx *fiber.Ctx) error {
	topicId, err := uuidParam(ctx, "topicId")
	if err != nil {
		return err
	}
	if err := c.service.RemoveTopic(ctx.Context(), ctx.Params("id"), identity(ctx), topicId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Topic removed", nil))
}

func (c *generationController) AddListQuestion(ctx *fiber.Ctx) error {
	var req dto.ListQuestionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.AddListQuestion(ctx.Context(), ctx.Params("id"), identity(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Question added", res))
}

func (c *generationController) UpdateListQuestion(ctx *fiber.Ctx) error {
	entryId, err := uuidParam(ctx, "entryId")
	if err != nil {
		return err
	}
	var req dto.ListQuestionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.UpdateListQuestion(ctx.Context(), ctx.Params("id"), identity(ctx), entryId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Question updated", res))
}

func (c *generationController) RemoveListQuestion(ctx *fiber.Ctx) error {
	entryId, err := uuidParam(ctx, "entryId")
	if err != nil {
		return err
	}
	if err := c.service.RemoveListQuestion(ctx.Context(), ctx.Params("id"), identity(ctx), entryId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Question removed", nil))
}

func (c *generationController) SetAttachment(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	file := qgen.Attachment{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}
	res, err := c.service.SetAttachment(ctx.Context(), ctx.Params("id"), identity(ctx), ctx.Params("mode"), file)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("File uploaded", res))
}

func (c *generationController) Generate(ctx *fiber.Ctx) error {
	res, err := c.service.Generate(ctx.Context(), ctx.Params("id"), identity(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Questions generated", res))
}

func (c *generationController) RequestAnswer(ctx *fiber.Ctx) error {
	questionId, err := uuidParam(ctx, "questionId")
	if err != nil {
		return err
	}
	res, err := c.service.RequestAnswer(ctx.Context(), ctx.Params("id"), identity(ctx), questionId)
	if err != nil {
		return err
	}
	code := fiber.StatusOK
	if res.Answer.Status == qgen.AnswerPending {
		code = fiber.StatusAccepted
	}
	body := serverutils.SuccessResponse("Answer requested", res)
	body.Code = code
	return ctx.Status(code).JSON(body)
}

func (c *generationController) Collapse(ctx *fiber.Ctx) error {
	questionId, err := uuidParam(ctx, "questionId")
	if err != nil {
		return err
	}
	res, err := c.service.Collapse(ctx.Context(), ctx.Params("id"), identity(ctx), questionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Answer collapsed", res))
}

func (c *generationController) Export(ctx *fiber.Ctx) error {
	art, err := c.service.Export(ctx.Context(), ctx.Params("id"), identity(ctx))
	if err != nil {
		return err
	}
	ctx.Set(fiber.HeaderContentType, art.ContentType)
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", art.FileName))
	return ctx.Send(art.Data)
}

func (c *generationController) SignOut(ctx *fiber.Ctx) error {
	res, err := c.service.SignOut(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Signed out", res))
}
