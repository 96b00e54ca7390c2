package chapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/somaedu/soma-backend/core"
	"github.com/somaedu/soma-backend/core/ai"
)

// Pipeline run states. A run always terminates in stateDone unless the
// generate stage fails, which aborts the whole run with a GenerationError.
type runState string

const (
	stateGenerating  runState = "GENERATING"
	stateVerifying   runState = "VERIFYING"
	stateRepairing   runState = "REPAIRING"
	stateReVerifying runState = "RE_VERIFYING"
	stateDone        runState = "DONE"
)

// GenerationError is fatal to a pipeline run: the generate stage produced
// no usable content. All other stage failures degrade gracefully.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("content generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err is a fatal generate-stage failure.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// Pipeline turns a GenerationRequest into verified LessonContent using
// three independent capabilities chained as
// GENERATING -> VERIFYING -> {DONE | REPAIRING -> RE_VERIFYING -> DONE}.
// Repair runs at most once per run, bounding external calls to 4.
type Pipeline struct {
	generator ai.Capability
	verifier  ai.Capability
	repairer  ai.Capability
	cfg       core.AIConfig
	log       core.Logger
}

func NewPipeline(generator, verifier, repairer ai.Capability, cfg core.AIConfig, log core.Logger) *Pipeline {
	return &Pipeline{
		generator: generator,
		verifier:  verifier,
		repairer:  repairer,
		cfg:       cfg,
		log:       log,
	}
}

func (p *Pipeline) enter(state runState) {
	p.log.Debug("pipeline state", map[string]interface{}{"state": string(state)})
}

// Run executes one pipeline run. The returned content is always the best
// candidate produced so far: a failed repair or re-verification never
// discards content the generate stage already delivered.
func (p *Pipeline) Run(ctx context.Context, req GenerationRequest) (LessonContent, error) {
	p.enter(stateGenerating)
	content, err := p.generate(ctx, req)
	if err != nil {
		return LessonContent{}, &GenerationError{Err: err}
	}

	p.enter(stateVerifying)
	verdict := p.verify(ctx, content)
	if verdict.Pass {
		p.enter(stateDone)
		return content, nil
	}
	p.log.Info("lesson verification failed, repairing", map[string]interface{}{"issues": verdict.Issues})

	p.enter(stateRepairing)
	repaired, ok := p.repair(ctx, content, verdict.Issues)
	if !ok {
		// Keep the unrepaired candidate; it is still deliverable content.
		p.enter(stateDone)
		return content, nil
	}
	content = repaired

	p.enter(stateReVerifying)
	if verdict = p.verify(ctx, content); !verdict.Pass {
		// Accepted anyway: repair is bounded to one attempt per run.
		p.log.Info("lesson still failing verification after repair, delivering as-is",
			map[string]interface{}{"issues": verdict.Issues})
	}

	p.enter(stateDone)
	return content, nil
}

// generate runs stage 1. Any failure here (capability error, timeout,
// unparseable or wrong-shape output) is fatal to the run.
func (p *Pipeline) generate(ctx context.Context, req GenerationRequest) (LessonContent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout(p.cfg.GenerateTimeout))
	defer cancel()

	resp, err := p.generator.Complete(ctx, ai.Request{
		System: generateSystemPrompt,
		User:   buildGenerateUserMessage(req),
		Images: req.Images,
	})
	if err != nil {
		return LessonContent{}, errors.Wrap(err, "generate stage")
	}

	content, err := decodeLessonContent(resp.Text)
	if err != nil {
		return LessonContent{}, errors.Wrap(err, "generate stage")
	}
	return content, nil
}

// verify runs stage 2. A capability error or unparseable verdict resolves
// per the VerificationFailOpen policy: fail-open passes the content through
// rather than blocking delivery on the secondary check; fail-closed counts
// it as a failed verdict.
func (p *Pipeline) verify(ctx context.Context, content LessonContent) VerificationVerdict {
	ctx, cancel := context.WithTimeout(ctx, p.timeout(p.cfg.VerifyTimeout))
	defer cancel()

	resp, err := p.verifier.Complete(ctx, ai.Request{
		System: verifySystemPrompt,
		User:   buildVerifyUserMessage(content),
	})
	if err != nil {
		return p.unavailableVerdict(errors.Wrap(err, "verify stage"))
	}

	verdict, err := decodeVerdict(resp.Text)
	if err != nil {
		return p.unavailableVerdict(errors.Wrap(err, "verify stage"))
	}
	return verdict
}

func (p *Pipeline) unavailableVerdict(err error) VerificationVerdict {
	p.log.Error("lesson verification unavailable", err,
		map[string]interface{}{"failOpen": p.cfg.VerificationFailOpen})
	if p.cfg.VerificationFailOpen {
		return VerificationVerdict{Pass: true}
	}
	return VerificationVerdict{Pass: false, Issues: []string{"verification unavailable"}}
}

// repair runs stage 3 at most once. It reports ok=false, leaving the
// original candidate in place, when the capability errors, times out, or
// returns anything that is not a shape-valid lesson.
func (p *Pipeline) repair(ctx context.Context, content LessonContent, issues []string) (LessonContent, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout(p.cfg.RepairTimeout))
	defer cancel()

	resp, err := p.repairer.Complete(ctx, ai.Request{
		System: repairSystemPrompt,
		User:   buildRepairUserMessage(content, issues),
	})
	if err != nil {
		p.log.Error("lesson repair unavailable", errors.Wrap(err, "repair stage"))
		return LessonContent{}, false
	}

	repaired, err := decodeLessonContent(resp.Text)
	if err != nil {
		p.log.Error("lesson repair returned unusable content", errors.Wrap(err, "repair stage"))
		return LessonContent{}, false
	}
	return repaired, true
}

func (p *Pipeline) timeout(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}

// decodeLessonContent extracts the first JSON object from raw capability
// output and decodes it into a shape-valid LessonContent.
func decodeLessonContent(text string) (LessonContent, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return LessonContent{}, err
	}
	if err := validateAgainstSchema(lessonContentSchema, raw); err != nil {
		return LessonContent{}, err
	}
	var content LessonContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return LessonContent{}, err
	}
	if issues := content.ShapeIssues(); len(issues) > 0 {
		return LessonContent{}, fmt.Errorf("malformed lesson: %s", strings.Join(issues, "; "))
	}
	return content, nil
}

func decodeVerdict(text string) (VerificationVerdict, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return VerificationVerdict{}, err
	}
	if err := validateAgainstSchema(verdictSchema, raw); err != nil {
		return VerificationVerdict{}, err
	}
	var verdict VerificationVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return VerificationVerdict{}, err
	}
	return verdict, nil
}
