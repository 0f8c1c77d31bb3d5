// Package analysis is the streaming review pipeline: recognize an uploaded
// document, assemble a methodology-grounded prompt, and forward the
// generated analysis frame by frame.
//
// Every operation returns a channel of plain-text frames. The channel is
// driven by one goroutine per request and always terminates with the
// sentinel frame, exactly once, whatever happened before it.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blueprintmaster/blueprint/internal/compress"
	"github.com/blueprintmaster/blueprint/internal/llm"
	"github.com/blueprintmaster/blueprint/internal/methodology"
	"github.com/blueprintmaster/blueprint/internal/ocr"
)

// Sentinel is the terminal frame of every stream. Frontends treat it as the
// end-of-output marker.
const Sentinel = "\n\n[DONE]\n\n"

// Character budgets for the compressed prompt inputs.
const (
	reviewContextBudget = 18000
	referenceBudget     = 12000
	mindmapInputBudget  = 50000
)

// User-facing notices, streamed verbatim.
const (
	noticeParsingDocument    = "🔄 正在解析文档内容，请稍候...\n\n"
	noticeBuildingProposal   = "🔄 正在构建方案生成模型，请稍候...\n\n"
	noticeParsingReference   = "📎 正在解析参考资料，请稍候...\n\n"
	noticeParsingParent      = "🔄 正在解析父方案内容，请稍候...\n\n"
	noticeGeneratingSub      = "🔄 正在生成子专项方案，请稍候...\n\n"
	noticeDocumentCondensed  = "📉 文档内容较长，已自动提炼关键内容以适配模型上下文限制。\n\n"
	noticeReferenceCondensed = "📉 参考资料较长，已自动提炼关键内容以适配模型上下文限制。\n\n"
	noticeParentCondensed    = "📉 父方案内容较长，已自动提炼关键内容以适配模型上下文限制。\n\n"
	noticeUnrecognizable     = "无法识别文件内容，请检查文件是否清晰或格式是否正确。"
	noticeParentUnreadable   = "❌ 无法识别父方案内容，请检查文件是否清晰或格式是否正确。"
	noticeMindmapParsing     = "# 🚀 正在解析蓝图结构...\n"
	noticeMindmapGenerating  = "\n# 🧠 正在生成诊断思维导图...\n"
	noticeSmartReading       = "# 🚀 正在读取文档内容...\n"
	noticeSmartBuilding      = "\n# 💡 正在构建思维导图...\n"
	noticeSmartUnreadable    = "无法识别文件内容"
)

// Error frames per mode.
const (
	systemErrorFrame    = "\n\n**系统错误**: %s"
	diagnosisErrorFrame = "\n# ❌ 分析失败: %s"
	smartErrorFrame     = "\n# ❌ 生成失败: %s"
	reportErrorFrame    = "思维导图生成失败: %s"
)

// Config wires the pipeline's collaborators.
type Config struct {
	OCR     ocr.Service
	LLM     llm.ChatStreamer
	Library *methodology.Library
	Logger  zerolog.Logger

	// HeartbeatInterval is the keep-alive cadence during recognition.
	// Zero means the 2s default; tests inject a shorter one.
	HeartbeatInterval time.Duration

	// Temperature is passed to every generation call. Zero means 0.7.
	Temperature float64
}

// Service runs the analysis modes.
type Service struct {
	ocr         ocr.Service
	llm         llm.ChatStreamer
	lib         *methodology.Library
	log         zerolog.Logger
	heartbeat   time.Duration
	temperature float64
}

// NewService creates the pipeline service.
func NewService(cfg Config) *Service {
	if cfg.Library == nil {
		cfg.Library = methodology.Default()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	return &Service{
		ocr:         cfg.OCR,
		llm:         cfg.LLM,
		lib:         cfg.Library,
		log:         cfg.Logger,
		heartbeat:   cfg.HeartbeatInterval,
		temperature: cfg.Temperature,
	}
}

// ReviewRequest carries one document review submission.
type ReviewRequest struct {
	Document            []byte
	FileName            string
	CustomPrompt        string
	Methodologies       []string
	CustomMethodologies []string
}

// ProposalRequest carries one zero-to-one proposal submission. The reference
// file is optional; its recognition failure is tolerated.
type ProposalRequest struct {
	ClientNeeds         string
	UserIdeas           string
	Methodologies       []string
	CustomMethodologies []string
	ReferenceFile       []byte
	ReferenceFileName   string
}

// SubProposalRequest carries one sub-plan submission anchored on a parent
// proposal document.
type SubProposalRequest struct {
	ParentFile          []byte
	ParentFileName      string
	SubTopic            string
	UserIdeas           string
	Methodologies       []string
	CustomMethodologies []string
}

// run spawns the per-request goroutine and guarantees the sentinel.
func (s *Service) run(ctx context.Context, mode string, fn func(log zerolog.Logger, emit func(string) bool)) <-chan string {
	out := make(chan string, 8)
	log := s.log.With().
		Str("mode", mode).
		Str("request_id", uuid.New().String()).
		Logger()

	emit := func(frame string) bool {
		select {
		case out <- frame:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		defer emit(Sentinel)
		log.Info().Msg("stream started")
		fn(log, emit)
		log.Info().Msg("stream finished")
	}()
	return out
}

// ReviewDocument runs the full deep-review mode.
func (s *Service) ReviewDocument(ctx context.Context, req ReviewRequest) <-chan string {
	return s.run(ctx, "review", func(log zerolog.Logger, emit func(string) bool) {
		if !emit(noticeParsingDocument) {
			return
		}

		text, err := s.recognizeWithHeartbeat(ctx, req.Document, emit)
		if err != nil {
			log.Error().Err(err).Str("file", req.FileName).Msg("recognition failed")
			emit(fmt.Sprintf(systemErrorFrame, err))
			return
		}
		if strings.TrimSpace(text) == "" {
			log.Warn().Str("file", req.FileName).Msg("recognition returned empty text")
			emit(noticeUnrecognizable)
			return
		}

		contextText, shortened := compress.Context(text, reviewContextBudget)
		if shortened {
			if !emit(noticeDocumentCondensed) {
				return
			}
		}

		messages := BuildReviewPrompt(contextText, req.CustomPrompt,
			s.lib.Resolve(req.Methodologies, req.CustomMethodologies))
		if err := s.stream(ctx, emit, messages); err != nil {
			log.Error().Err(err).Msg("generation failed")
			emit(fmt.Sprintf(systemErrorFrame, err))
		}
	})
}

// GenerateProposal runs the zero-to-one proposal mode.
func (s *Service) GenerateProposal(ctx context.Context, req ProposalRequest) <-chan string {
	return s.run(ctx, "proposal", func(log zerolog.Logger, emit func(string) bool) {
		if !emit(noticeBuildingProposal) {
			return
		}

		referenceText := ""
		if len(req.ReferenceFile) > 0 {
			if !emit(noticeParsingReference) {
				return
			}
			text, err := s.recognizeWithHeartbeat(ctx, req.ReferenceFile, emit)
			if err != nil {
				// The reference is an enrichment; the proposal proceeds without it.
				log.Error().Err(err).Str("file", req.ReferenceFileName).Msg("reference recognition failed")
			} else {
				referenceText = text
			}
		}

		var ideasParts []string
		if strings.TrimSpace(req.UserIdeas) != "" {
			ideasParts = append(ideasParts, strings.TrimSpace(req.UserIdeas))
		}
		if strings.TrimSpace(referenceText) != "" {
			compressed, shortened := compress.Context(strings.TrimSpace(referenceText), referenceBudget)
			if shortened {
				if !emit(noticeReferenceCondensed) {
					return
				}
			}
			ideasParts = append(ideasParts, fmt.Sprintf("### 参考资料附件：%s\n%s", req.ReferenceFileName, compressed))
		}

		messages := BuildProposalPrompt(req.ClientNeeds, strings.Join(ideasParts, "\n\n"),
			s.lib.Resolve(req.Methodologies, req.CustomMethodologies))
		if err := s.stream(ctx, emit, messages); err != nil {
			log.Error().Err(err).Msg("generation failed")
			emit(fmt.Sprintf(systemErrorFrame, err))
		}
	})
}

// GenerateSubProposal runs the sub-plan mode.
func (s *Service) GenerateSubProposal(ctx context.Context, req SubProposalRequest) <-chan string {
	return s.run(ctx, "sub_proposal", func(log zerolog.Logger, emit func(string) bool) {
		if !emit(noticeParsingParent) {
			return
		}

		parentText, err := s.recognizeWithHeartbeat(ctx, req.ParentFile, emit)
		if err != nil {
			log.Error().Err(err).Str("file", req.ParentFileName).Msg("parent recognition failed")
			emit(fmt.Sprintf(systemErrorFrame, err))
			return
		}
		if strings.TrimSpace(parentText) == "" {
			emit(noticeParentUnreadable)
			return
		}

		if !emit(noticeGeneratingSub) {
			return
		}

		compressedParent, shortened := compress.Context(parentText, reviewContextBudget)
		if shortened {
			if !emit(noticeParentCondensed) {
				return
			}
		}

		messages := BuildSubProposalPrompt(compressedParent, req.ParentFileName, req.SubTopic, req.UserIdeas,
			s.lib.Resolve(req.Methodologies, req.CustomMethodologies))
		if err := s.stream(ctx, emit, messages); err != nil {
			log.Error().Err(err).Msg("generation failed")
			emit(fmt.Sprintf(systemErrorFrame, err))
		}
	})
}

// DiagnosisMindmap recognizes a document and generates a Markmap diagnosis
// map directly, without touching the methodology library.
func (s *Service) DiagnosisMindmap(ctx context.Context, document []byte, fileName string) <-chan string {
	return s.run(ctx, "diagnosis_mindmap", func(log zerolog.Logger, emit func(string) bool) {
		if !emit(noticeMindmapParsing) {
			return
		}

		text, err := s.recognizeWithHeartbeat(ctx, document, emit)
		if err != nil {
			log.Error().Err(err).Str("file", fileName).Msg("recognition failed")
			emit(fmt.Sprintf(diagnosisErrorFrame, err))
			return
		}
		if strings.TrimSpace(text) == "" {
			emit(noticeUnrecognizable)
			return
		}

		if !emit(noticeMindmapGenerating) {
			return
		}

		messages := BuildDiagnosisMindmapPrompt(compress.Truncate(text, mindmapInputBudget))
		if err := s.stream(ctx, emit, messages); err != nil {
			log.Error().Err(err).Msg("generation failed")
			emit(fmt.Sprintf(diagnosisErrorFrame, err))
		}
	})
}

// SmartMindmap recognizes a document and restructures it into a plain
// Markmap map.
func (s *Service) SmartMindmap(ctx context.Context, document []byte, fileName string) <-chan string {
	return s.run(ctx, "smart_mindmap", func(log zerolog.Logger, emit func(string) bool) {
		if !emit(noticeSmartReading) {
			return
		}

		text, err := s.recognizeWithHeartbeat(ctx, document, emit)
		if err != nil {
			log.Error().Err(err).Str("file", fileName).Msg("recognition failed")
			emit(fmt.Sprintf(smartErrorFrame, err))
			return
		}
		if text == "" {
			emit(noticeSmartUnreadable)
			return
		}

		if !emit(noticeSmartBuilding) {
			return
		}

		messages := BuildSmartMindmapPrompt(compress.Truncate(text, mindmapInputBudget))
		if err := s.stream(ctx, emit, messages); err != nil {
			log.Error().Err(err).Msg("generation failed")
			emit(fmt.Sprintf(smartErrorFrame, err))
		}
	})
}

// ReportMindmap turns a finished markdown report into a Markmap action map.
func (s *Service) ReportMindmap(ctx context.Context, markdownContent string) <-chan string {
	return s.run(ctx, "report_mindmap", func(log zerolog.Logger, emit func(string) bool) {
		messages := BuildReportMindmapPrompt(markdownContent)
		if err := s.stream(ctx, emit, messages); err != nil {
			log.Error().Err(err).Msg("generation failed")
			emit(fmt.Sprintf(reportErrorFrame, err))
		}
	})
}

// stream forwards generation deltas to the caller in order.
func (s *Service) stream(ctx context.Context, emit func(string) bool, messages []llm.Message) error {
	deltas, err := s.llm.ChatStream(ctx, messages, s.temperature)
	if err != nil {
		return err
	}
	for d := range deltas {
		if d.Err != nil {
			return d.Err
		}
		if d.Content == "" {
			continue
		}
		if !emit(d.Content) {
			return ctx.Err()
		}
	}
	return nil
}
