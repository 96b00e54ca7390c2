package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/somaedu/soma-backend/core"
	"github.com/somaedu/soma-backend/core/ai"
	"github.com/somaedu/soma-backend/core/chapter"
	"github.com/somaedu/soma-backend/core/identity"
	"github.com/somaedu/soma-backend/core/learning"
)

type (
	chapterAPIDeps struct {
		conf        *core.Config
		identitySvc *identity.Service
		chapterSvc  *chapter.Service
		learningSvc *learning.Service
		validate    *validator.Validate
	}

	chapterApi struct {
		deps chapterAPIDeps
	}
)

func registerChapterAPI(g *echo.Group, auth *sessionAuth, deps chapterAPIDeps) {
	api := chapterApi{deps: deps}
	quota := newQuotaRegistry(deps.conf.Quota)

	chg := g.Group("/chapters", requireSession(auth))
	chg.POST("", api.create, generationQuota(quota))
	chg.GET("", api.query)
	chg.GET("/:id", api.retrieve)
	chg.POST("/:id/sessions", api.startSession)
	chg.POST("/:id/submit", api.submit)
	chg.GET("/:id/result", api.result)

	g.GET("/sessions/:id", api.retrieveSession, requireSession(auth))
	g.POST("/sessions/:id/complete", api.completeSession, requireSession(auth))
}

// targetChild resolves the child a request acts for. A child session is
// always its own child; a parent session must name a child it owns.
func (api *chapterApi) targetChild(ctx echo.Context, childID string) (identity.Child, error) {
	s, err := contextSession(ctx)
	if err != nil {
		return identity.Child{}, err
	}

	switch s := s.(type) {
	case identity.ChildSession:
		if childID != "" && childID != s.ChildID {
			return identity.Child{}, errHttpForbidden
		}
		child, err := api.deps.identitySvc.GetChild(ctx.Request().Context(), s.ChildID)
		if err != nil {
			if errors.Cause(err) == identity.ErrNotFound {
				return identity.Child{}, errUnauthenticated
			}
			return identity.Child{}, errors.Wrap(err, "finding child by ID")
		}
		return child, nil
	case identity.ParentSession:
		if childID == "" {
			return identity.Child{}, core.NewValidationError(nil, core.FieldError{Field: "child_id", Error: "child_id is required"})
		}
		child, err := api.deps.identitySvc.GetChild(ctx.Request().Context(), childID)
		if err != nil {
			if errors.Cause(err) == identity.ErrNotFound {
				return identity.Child{}, errHttpNotFound
			}
			return identity.Child{}, errors.Wrap(err, "finding child by ID")
		}
		if child.ParentID != s.ParentID {
			return identity.Child{}, errHttpForbidden
		}
		return child, nil
	}
	return identity.Child{}, errUnauthenticated
}

// retrieveChapter loads a chapter and enforces the caller's access to it.
// A chapter that exists but belongs to someone else is forbidden, not hidden.
func (api *chapterApi) retrieveChapter(ctx echo.Context, id string) (chapter.Chapter, error) {
	s, err := contextSession(ctx)
	if err != nil {
		return chapter.Chapter{}, err
	}
	ch, err := api.deps.chapterSvc.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == chapter.ErrNotFound {
			return chapter.Chapter{}, errHttpNotFound
		}
		return chapter.Chapter{}, errors.Wrap(err, "finding chapter by ID")
	}
	if !ch.AccessibleBy(s) {
		return chapter.Chapter{}, errHttpForbidden
	}
	return ch, nil
}

// Handlers

func (api *chapterApi) create(ctx echo.Context) error {
	child, err := api.targetChild(ctx, ctx.FormValue("child_id"))
	if err != nil {
		return err
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return core.NewValidationError(errors.New("expected a multipart form with images"))
	}
	images, err := readImages(form.File["images"])
	if err != nil {
		return err
	}

	ch, err := api.deps.chapterSvc.Create(
		ctx.Request().Context(),
		child,
		chapter.Subject(ctx.FormValue("subject")),
		images,
	)
	if err != nil {
		return errors.Wrap(err, "creating chapter")
	}
	return ctx.JSON(http.StatusAccepted, ch)
}

func (api *chapterApi) query(ctx echo.Context) error {
	child, err := api.targetChild(ctx, ctx.QueryParam("child_id"))
	if err != nil {
		return err
	}
	chapters, err := api.deps.chapterSvc.QueryByChild(ctx.Request().Context(), child.ID)
	if err != nil {
		return errors.Wrap(err, "querying chapters")
	}
	if chapters == nil {
		chapters = []chapter.Chapter{}
	}
	return ctx.JSON(http.StatusOK, chapters)
}

func (api *chapterApi) retrieve(ctx echo.Context) error {
	ch, err := api.retrieveChapter(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ch)
}

func (api *chapterApi) startSession(ctx echo.Context) error {
	ch, err := api.retrieveChapter(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	ls, err := api.deps.learningSvc.StartSession(ctx.Request().Context(), ch.ChildID, ch)
	if err != nil {
		return errors.Wrap(err, "starting learning session")
	}
	return ctx.JSON(http.StatusCreated, ls)
}

func (api *chapterApi) retrieveSession(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	ls, err := api.deps.learningSvc.GetSession(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == learning.ErrSessionNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding learning session by ID")
	}
	ch, err := api.deps.chapterSvc.Get(ctx.Request().Context(), ls.ChapterID)
	if err != nil {
		return errors.Wrap(err, "finding chapter by ID")
	}
	if !ls.AccessibleBy(s, ch) {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, ls)
}

func (api *chapterApi) completeSession(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	ls, err := api.deps.learningSvc.GetSession(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == learning.ErrSessionNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding learning session by ID")
	}
	ch, err := api.deps.chapterSvc.Get(ctx.Request().Context(), ls.ChapterID)
	if err != nil {
		return errors.Wrap(err, "finding chapter by ID")
	}
	if !ls.AccessibleBy(s, ch) {
		return errHttpForbidden
	}
	if err = api.deps.learningSvc.CompleteSession(ctx.Request().Context(), ls.ID); err != nil {
		return errors.Wrap(err, "completing learning session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *chapterApi) submit(ctx echo.Context) error {
	var data learning.SubmitAnswers
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAnswers")
	}
	if err := api.deps.validate.Struct(&data); err != nil {
		return err
	}

	ch, err := api.retrieveChapter(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	result, err := api.deps.learningSvc.Submit(ctx.Request().Context(), ch.ChildID, ch, data)
	if err != nil {
		return errors.Wrap(err, "submitting answers")
	}
	return ctx.JSON(http.StatusCreated, result)
}

func (api *chapterApi) result(ctx echo.Context) error {
	s, err := contextSession(ctx)
	if err != nil {
		return err
	}
	ch, err := api.retrieveChapter(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	result, err := api.deps.learningSvc.GetResultByChapter(ctx.Request().Context(), ch.ID)
	if err != nil {
		if errors.Cause(err) == learning.ErrResultNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding result by chapter ID")
	}
	if !result.AccessibleBy(s, ch) {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, result)
}

func readImages(files []*multipart.FileHeader) ([]ai.ImageInput, error) {
	images := make([]ai.ImageInput, 0, len(files))
	for _, hdr := range files {
		f, err := hdr.Open()
		if err != nil {
			return nil, errors.Wrap(err, "opening uploaded image")
		}
		data, err := io.ReadAll(io.LimitReader(f, chapter.MaxImageSize+1))
		_ = f.Close()
		if err != nil {
			return nil, errors.Wrap(err, "reading uploaded image")
		}
		images = append(images, ai.ImageInput{
			Data:      data,
			MediaType: hdr.Header.Get("Content-Type"),
		})
	}
	return images, nil
}
