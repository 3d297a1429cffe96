package familyportrait

import (
	"context"
	"log"

	"family-portrait-server/modules/common/apperr"
	"family-portrait-server/modules/common/progress"
	"family-portrait-server/modules/common/provider"
)

// CarryFolder - pass 1 결과를 pass 2 입력으로 넘기기 위한 저장 경로
const CarryFolder = "family-portrait/carry"

// Storer - pass 간 이미지 전달에 쓰는 Transfer Layer 부분
type Storer interface {
	FetchBytes(ctx context.Context, locator string) ([]byte, error)
	StoreBytes(ctx context.Context, data []byte, folder string) (string, error)
}

// Runner - 작업 1회 실행 (TaskClient)
type Runner interface {
	Run(ctx context.Context, req provider.SubmitRequest) (*GenerationTask, error)
}

// OrchestrateInput - pass 실행에 필요한 입력
type OrchestrateInput struct {
	Members       []Member
	Relationships []Relationship
	ThemePrompt   string
	Options       GenerateOptions
	Plan          PassPlan
	SessionID     string
}

// OrchestrateResult - 최종 이미지와 pass 보고
type OrchestrateResult struct {
	FinalLocator    string
	PassesCompleted int
	PhotoUsage      PhotoUsageReport
}

// Orchestrator - PassPlan을 pass 1~2회로 실행해 최종 이미지 1장을 만든다
type Orchestrator struct {
	runner   Runner
	carry    Storer
	notifier progress.Notifier
}

// NewOrchestrator - Orchestrator 생성
func NewOrchestrator(runner Runner, carry Storer, notifier progress.Notifier) *Orchestrator {
	if notifier == nil {
		notifier = progress.Nop{}
	}
	return &Orchestrator{runner: runner, carry: carry, notifier: notifier}
}

func (o *Orchestrator) submitRequest(prompt string, inputs []string, opts GenerateOptions) provider.SubmitRequest {
	return provider.SubmitRequest{
		Prompt:       prompt,
		AspectRatio:  opts.AspectRatio,
		Resolution:   opts.Resolution,
		OutputFormat: opts.OutputFormat,
		ImageInputs:  inputs,
	}
}

func (o *Orchestrator) runPass(ctx context.Context, in OrchestrateInput, pass int, req provider.SubmitRequest, people []string) (string, error) {
	o.notifier.Notify(in.SessionID, progress.Event{
		Type:    progress.EventPassStarted,
		Pass:    pass,
		Message: "rendering",
		Data:    map[string]interface{}{"people": people, "inputs": len(req.ImageInputs)},
	})
	log.Printf("🎨 [Orchestrator] Pass %d: submitting %d input(s)", pass, len(req.ImageInputs))

	task, err := o.runner.Run(ctx, req)
	if err != nil {
		log.Printf("❌ [Orchestrator] Pass %d failed: %v", pass, err)
		return "", err
	}

	o.notifier.Notify(in.SessionID, progress.Event{Type: progress.EventPassCompleted, Pass: pass})
	log.Printf("✅ [Orchestrator] Pass %d completed (task %s)", pass, task.TaskID)
	return task.ResultLocators[0], nil
}

// Run - pass 1 실패 시 pass 2는 시도하지 않고, pass 2 실패는 pass 1 결과로 대체하지 않는다
func (o *Orchestrator) Run(ctx context.Context, in OrchestrateInput) (*OrchestrateResult, error) {
	var batch1, batch2 Batch
	if len(in.Plan.Batches) > 0 {
		batch1 = in.Plan.Batches[0]
	}
	if len(in.Plan.Batches) > 1 {
		batch2 = in.Plan.Batches[1]
	}

	result := &OrchestrateResult{
		PhotoUsage: PhotoUsageReport{
			Pass1:       batch1.Names(),
			Pass2:       batch2.Names(),
			NotIncluded: names(in.Plan.Overflow),
		},
	}

	// 1. pass 1
	primary := BuildPrimaryPrompt(in.Members, in.Relationships, in.ThemePrompt, batch1)
	candidate, err := o.runPass(ctx, in, 1, o.submitRequest(primary, batch1.Locators(), in.Options), batch1.Names())
	if err != nil {
		return nil, err
	}
	result.FinalLocator = candidate
	result.PassesCompleted = 1

	if len(batch2) == 0 {
		return result, nil
	}

	// 2. pass 1 결과를 저장소에 보관한 뒤 pass 2 첫 입력으로 사용
	raw, err := o.carry.FetchBytes(ctx, candidate)
	if err != nil {
		return nil, apperr.New(apperr.KindTransfer, "carry pass 1 result", err)
	}
	carried, err := o.carry.StoreBytes(ctx, raw, CarryFolder)
	if err != nil {
		return nil, apperr.New(apperr.KindTransfer, "carry pass 1 result", err)
	}
	log.Printf("📦 [Orchestrator] Pass 1 result carried forward: %s", truncateString(carried, 80))

	continuation := BuildContinuationPrompt(in.ThemePrompt, batch2)
	inputs := append([]string{carried}, batch2.Locators()...)
	final, err := o.runPass(ctx, in, 2, o.submitRequest(continuation, inputs, in.Options), batch2.Names())
	if err != nil {
		return nil, err
	}

	result.FinalLocator = final
	result.PassesCompleted = 2
	return result, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
