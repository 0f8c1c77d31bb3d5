package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/blueprintmaster/blueprint/internal/analysis"
	"github.com/blueprintmaster/blueprint/internal/stats"
)

const maxUploadBytes = 32 << 20

// BlueprintHandlers serves the streaming analysis endpoints.
type BlueprintHandlers struct {
	pipeline *analysis.Service
	store    stats.RecordStore
	hub      *EventHub
	log      zerolog.Logger
}

// NewBlueprintHandlers creates the handler set. store and hub may be nil in
// reduced deployments (the CLI path); statistics and events are skipped then.
func NewBlueprintHandlers(pipeline *analysis.Service, store stats.RecordStore, hub *EventHub, log zerolog.Logger) *BlueprintHandlers {
	return &BlueprintHandlers{pipeline: pipeline, store: store, hub: hub, log: log}
}

// streamFrames writes every frame as it arrives, flushing each one so
// buffering proxies pass them through. afterFirst runs once, after the first
// frame reached the client.
func (h *BlueprintHandlers) streamFrames(w http.ResponseWriter, frames <-chan string, afterFirst func()) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, _ := w.(http.Flusher)
	first := true
	for frame := range frames {
		if _, err := io.WriteString(w, frame); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		if first {
			first = false
			if afterFirst != nil {
				afterFirst()
			}
		}
	}
}

// recordUsage persists the usage record and book rankings off the request
// path. Failures are logged and discarded.
func (h *BlueprintHandlers) recordUsage(rec stats.UsageRecord, books []string) {
	if h.store == nil || rec.UserID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := h.store.LogUsage(ctx, rec); err != nil {
			h.log.Error().Err(err).Msg("failed to log usage")
		}
		for _, book := range books {
			if strings.TrimSpace(book) == "" {
				continue
			}
			if err := h.store.RecordBookUse(ctx, book, rec.Role); err != nil {
				h.log.Error().Err(err).Str("book", book).Msg("failed to record book use")
			}
		}
	}()
}

func (h *BlueprintHandlers) publish(eventType, mode, filename, username string) {
	if h.hub != nil {
		h.hub.Publish(AnalysisEvent{Type: eventType, Mode: mode, Filename: filename, Username: username})
	}
}

// readUpload pulls one multipart file field. A missing field yields
// (nil, "", nil): the caller decides whether that is an error.
func readUpload(r *http.Request, fields ...string) ([]byte, string, error) {
	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if err != nil {
			continue
		}
		defer func() { _ = file.Close() }()
		if header.Filename == "" {
			return nil, "", nil
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		return data, header.Filename, nil
	}
	return nil, "", nil
}

// formList reads a repeated form field, splitting a single comma-joined
// value for frontend compatibility.
func formList(r *http.Request, field string) []string {
	values := r.Form[field]
	if len(values) == 1 && strings.Contains(values[0], ",") {
		values = strings.Split(values[0], ",")
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Analyze handles POST /api/blueprint/analyze.
func (h *BlueprintHandlers) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	document, fileName, err := readUpload(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	if len(document) == 0 || fileName == "" {
		respondError(w, http.StatusBadRequest, "No selected file")
		return
	}

	methodologies := formList(r, "methodologies")
	customMethodologies := formList(r, "custom_methodologies")
	if len(methodologies) == 0 && len(customMethodologies) == 0 {
		respondError(w, http.StatusBadRequest, "请至少选择系统内置方法论或添加书籍作为评审依据")
		return
	}

	userID := r.FormValue("user_id")
	username := r.FormValue("username")
	role := r.FormValue("role")
	if role == "" {
		role = stats.RoleUnknown
	}

	frames := h.pipeline.ReviewDocument(r.Context(), analysis.ReviewRequest{
		Document:            document,
		FileName:            fileName,
		CustomPrompt:        r.FormValue("custom_prompt"),
		Methodologies:       methodologies,
		CustomMethodologies: customMethodologies,
	})

	h.publish(EventAnalysisStarted, "review", fileName, username)
	h.streamFrames(w, frames, func() {
		h.recordUsage(stats.UsageRecord{
			UserID:   userID,
			Username: username,
			Role:     role,
			Action:   "analyze_blueprint",
			Filename: fileName,
		}, customMethodologies)
	})
	h.publish(EventAnalysisCompleted, "review", fileName, username)
}

type proposalPayload struct {
	ClientNeeds         string   `json:"client_needs"`
	UserIdeas           string   `json:"user_ideas"`
	Methodologies       []string `json:"methodologies"`
	CustomMethodologies []string `json:"custom_methodologies"`
}

// GenerateProposal handles POST /api/blueprint/generate_proposal. The body
// is JSON, or multipart when a reference file rides along.
func (h *BlueprintHandlers) GenerateProposal(w http.ResponseWriter, r *http.Request) {
	var (
		payload       proposalPayload
		referenceFile []byte
		referenceName string
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			respondError(w, http.StatusBadRequest, "invalid json body")
			return
		}
	} else {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		payload.ClientNeeds = r.FormValue("client_needs")
		payload.UserIdeas = r.FormValue("user_ideas")
		payload.Methodologies = formList(r, "methodologies")
		payload.CustomMethodologies = formList(r, "custom_methodologies")

		var err error
		referenceFile, referenceName, err = readUpload(r, "reference_file", "file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read reference file")
			return
		}
	}

	if strings.TrimSpace(payload.ClientNeeds) == "" {
		respondError(w, http.StatusBadRequest, "Client needs are required")
		return
	}
	if len(payload.Methodologies) == 0 && len(payload.CustomMethodologies) == 0 {
		respondError(w, http.StatusBadRequest, "请至少选择系统内置方法论或添加书籍作为设计依据")
		return
	}

	frames := h.pipeline.GenerateProposal(r.Context(), analysis.ProposalRequest{
		ClientNeeds:         payload.ClientNeeds,
		UserIdeas:           payload.UserIdeas,
		Methodologies:       payload.Methodologies,
		CustomMethodologies: payload.CustomMethodologies,
		ReferenceFile:       referenceFile,
		ReferenceFileName:   referenceName,
	})
	h.publish(EventAnalysisStarted, "proposal", referenceName, "")
	h.streamFrames(w, frames, nil)
	h.publish(EventAnalysisCompleted, "proposal", referenceName, "")
}

// GenerateSubProposal handles POST /api/blueprint/generate_sub_proposal.
func (h *BlueprintHandlers) GenerateSubProposal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	parentFile, parentName, err := readUpload(r, "parent_file", "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read parent file")
		return
	}
	if len(parentFile) == 0 || parentName == "" {
		respondError(w, http.StatusBadRequest, "请上传父方案文档")
		return
	}

	subTopic := r.FormValue("sub_plan_title")
	if strings.TrimSpace(subTopic) == "" {
		respondError(w, http.StatusBadRequest, "请填写要生成的子专项/子方案名称")
		return
	}

	methodologies := formList(r, "methodologies")
	customMethodologies := formList(r, "custom_methodologies")
	if len(methodologies) == 0 && len(customMethodologies) == 0 {
		respondError(w, http.StatusBadRequest, "请至少选择系统内置方法论或添加书籍作为设计依据")
		return
	}

	frames := h.pipeline.GenerateSubProposal(r.Context(), analysis.SubProposalRequest{
		ParentFile:          parentFile,
		ParentFileName:      parentName,
		SubTopic:            subTopic,
		UserIdeas:           r.FormValue("sub_plan_details"),
		Methodologies:       methodologies,
		CustomMethodologies: customMethodologies,
	})
	h.publish(EventAnalysisStarted, "sub_proposal", parentName, "")
	h.streamFrames(w, frames, nil)
	h.publish(EventAnalysisCompleted, "sub_proposal", parentName, "")
}

// AnalyzeMindmap handles POST /api/blueprint/analyze_mindmap.
func (h *BlueprintHandlers) AnalyzeMindmap(w http.ResponseWriter, r *http.Request) {
	document, fileName, ok := h.requireUpload(w, r)
	if !ok {
		return
	}
	h.streamFrames(w, h.pipeline.DiagnosisMindmap(r.Context(), document, fileName), nil)
}

// SmartMindmap handles POST /api/blueprint/smart_mindmap.
func (h *BlueprintHandlers) SmartMindmap(w http.ResponseWriter, r *http.Request) {
	document, fileName, ok := h.requireUpload(w, r)
	if !ok {
		return
	}
	h.streamFrames(w, h.pipeline.SmartMindmap(r.Context(), document, fileName), nil)
}

func (h *BlueprintHandlers) requireUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, "", false
	}
	document, fileName, err := readUpload(r, "file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return nil, "", false
	}
	if len(document) == 0 || fileName == "" {
		respondError(w, http.StatusBadRequest, "No selected file")
		return nil, "", false
	}
	return document, fileName, true
}

// GenerateMindmap handles POST /api/blueprint/generate_mindmap: it maps an
// existing report to a mind map, no file involved.
func (h *BlueprintHandlers) GenerateMindmap(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Content) == "" {
		respondError(w, http.StatusBadRequest, "Content is required")
		return
	}
	h.streamFrames(w, h.pipeline.ReportMindmap(r.Context(), payload.Content), nil)
}
