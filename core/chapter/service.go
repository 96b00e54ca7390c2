package chapter

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/somaedu/soma-backend/core"
	"github.com/somaedu/soma-backend/core/ai"
	"github.com/somaedu/soma-backend/core/identity"
	"github.com/somaedu/soma-backend/core/notification"
)

var ErrNotFound = errors.New("chapter not found")

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

type (
	Repository interface {
		CreateChapter(ctx context.Context, ch Chapter) (Chapter, error)
		GetChapterByID(ctx context.Context, id string) (Chapter, error)
		QueryChaptersByChildID(ctx context.Context, childID string) ([]Chapter, error)
		// UpdateChapterContent is the single "ready" write of a chapter row.
		UpdateChapterContent(ctx context.Context, id string, content LessonContent, updatedAt time.Time) error
		// UpdateChapterStatus is the single "error" write of a chapter row.
		UpdateChapterStatus(ctx context.Context, id string, status Status, detail string, updatedAt time.Time) error
	}

	Service struct {
		repo       Repository
		parentRepo identity.ParentRepository
		pipeline   *Pipeline
		notifSvc   *notification.Service
		mailSvc    core.EmailService
		log        core.Logger
		idFunc     func() string

		runs sync.WaitGroup
	}
)

func NewService(
	repo Repository,
	parentRepo identity.ParentRepository,
	pipeline *Pipeline,
	notifSvc *notification.Service,
	mailSvc core.EmailService,
	log core.Logger,
	idFunc func() string,
) *Service {
	return &Service{
		repo:       repo,
		parentRepo: parentRepo,
		pipeline:   pipeline,
		notifSvc:   notifSvc,
		mailSvc:    mailSvc,
		log:        log,
		idFunc:     idFunc,
	}
}

// Create persists a processing chapter row and starts the generation
// pipeline in the background. The returned chapter is immediately pollable
// by the client; its content appears when the run completes.
func (svc *Service) Create(ctx context.Context, child identity.Child, subject Subject, images []ai.ImageInput) (Chapter, error) {
	req, err := NewGenerationRequest(images, subject, child.GradeLevel)
	if err != nil {
		return Chapter{}, core.NewValidationError(err)
	}

	now := NowFunc().UTC()
	ch := Chapter{
		ID:         svc.idFunc(),
		ChildID:    child.ID,
		ParentID:   child.ParentID,
		Subject:    subject,
		GradeLevel: child.GradeLevel,
		Status:     StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ch, err = svc.repo.CreateChapter(ctx, ch)
	if err != nil {
		return Chapter{}, err
	}

	svc.runs.Add(1)
	go func() {
		defer svc.runs.Done()
		// Detached from the request context: the run outlives the HTTP call.
		svc.Generate(context.Background(), ch, req)
	}()

	return ch, nil
}

// Generate runs the pipeline for an already-persisted chapter row and
// writes the terminal status. Exposed so tests can run it synchronously.
func (svc *Service) Generate(ctx context.Context, ch Chapter, req GenerationRequest) {
	content, err := svc.pipeline.Run(ctx, req)
	now := NowFunc().UTC()

	if err != nil {
		svc.log.Error("chapter generation failed", err, map[string]interface{}{"chapterID": ch.ID})
		if uErr := svc.repo.UpdateChapterStatus(ctx, ch.ID, StatusError, err.Error(), now); uErr != nil {
			svc.log.Error("updating chapter status", uErr, map[string]interface{}{"chapterID": ch.ID})
		}
		svc.notifyParent(ctx, ch, notification.KindChapterFailed,
			"Lesson could not be created",
			fmt.Sprintf("We could not create the %s lesson. Please try again.", ch.Subject))
		return
	}

	if uErr := svc.repo.UpdateChapterContent(ctx, ch.ID, content, now); uErr != nil {
		svc.log.Error("updating chapter content", uErr, map[string]interface{}{"chapterID": ch.ID})
		// leave a terminal status the client can poll instead of a row
		// stuck in processing
		if sErr := svc.repo.UpdateChapterStatus(ctx, ch.ID, StatusError, "failed to save generated content", now); sErr != nil {
			svc.log.Error("updating chapter status", sErr, map[string]interface{}{"chapterID": ch.ID})
		}
		svc.notifyParent(ctx, ch, notification.KindChapterFailed,
			"Lesson could not be created",
			fmt.Sprintf("We could not create the %s lesson. Please try again.", ch.Subject))
		return
	}
	svc.notifyParent(ctx, ch, notification.KindChapterReady,
		"Lesson ready",
		fmt.Sprintf("A new %s lesson (%s) is ready.", ch.Subject, content.Topic))
}

func (svc *Service) notifyParent(ctx context.Context, ch Chapter, kind notification.Kind, title, body string) {
	if _, err := svc.notifSvc.Create(ctx, ch.ParentID, kind, title, body); err != nil {
		svc.log.Error("creating chapter notification", err, map[string]interface{}{"chapterID": ch.ID})
	}

	parent, err := svc.parentRepo.GetParentByID(ctx, ch.ParentID)
	if err != nil {
		svc.log.Error("looking up parent for chapter email", err, map[string]interface{}{"chapterID": ch.ID})
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: parent.Name, Address: parent.Email}},
		Subject: title,
		Body:    body,
	})
}

// Wait blocks until all in-flight pipeline runs finish. Used on shutdown.
func (svc *Service) Wait() {
	svc.runs.Wait()
}

func (svc *Service) Get(ctx context.Context, id string) (Chapter, error) {
	return svc.repo.GetChapterByID(ctx, id)
}

func (svc *Service) QueryByChild(ctx context.Context, childID string) ([]Chapter, error) {
	return svc.repo.QueryChaptersByChildID(ctx, childID)
}
