package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/aspect"
	"github.com/kris-hansen/tagup/utils/classify"
	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/history"
	"github.com/kris-hansen/tagup/utils/models"
	"github.com/kris-hansen/tagup/utils/pipeline"
	"github.com/kris-hansen/tagup/utils/tags"
	"github.com/kris-hansen/tagup/utils/template"
)

// UpsampleRequest is the body of POST /v1/upsample
type UpsampleRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
	// Mode is "comma" (default) or "brackets"
	Mode string `json:"mode,omitempty"`
	// Config applies to every stage without an entry in Configs
	Config      template.Config            `json:"config"`
	Configs     map[string]template.Config `json:"configs,omitempty"`
	Generation  *models.GenerationConfig   `json:"generation_config,omitempty"`
	Seed        *int                       `json:"seed,omitempty"`
	BanTags     string                     `json:"ban_tags,omitempty"`
	BanTemplate string                     `json:"ban_template,omitempty"`
	Negative    string                     `json:"negative_prompt,omitempty"`
}

// handleUpsample handles POST /v1/upsample
func (s *Server) handleUpsample(w http.ResponseWriter, r *http.Request) {
	var req UpsampleRequest
	if !decodePost(w, r, &req) {
		return
	}

	family, m, err := s.catalog.Get(req.Model)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	in, err := s.pipelineInput(family, req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	config.VerboseLog("Upsampling with model: %s", m.Name)
	start := time.Now()
	res, err := pipeline.New(family, s.logger).Run(r.Context(), in)
	s.record(r.Context(), m, req, res, time.Since(start), err)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeResult(w, m.Name, res)
}

func (s *Server) pipelineInput(family models.Family, req UpsampleRequest) (pipeline.Input, error) {
	mode, err := classify.ParseMode(req.Mode)
	if err != nil {
		return pipeline.Input{}, badRequest("%v", err)
	}
	gen := models.DefaultGenerationConfig()
	if req.Generation != nil {
		gen = *req.Generation
	}
	if err := gen.Validate(); err != nil {
		return pipeline.Input{}, badRequest("%v", err)
	}
	var templates []string
	if req.BanTemplate != "" {
		templates = append(templates, req.BanTemplate)
	}
	ban, err := tags.BanList(s.catalog.Store(), s.envConfig.BanTemplateDir, req.BanTags, templates...)
	if err != nil {
		return pipeline.Input{}, badRequest("%v", err)
	}
	return pipeline.Input{
		Text:       req.Text,
		Mode:       mode,
		Configs:    pipeline.StageConfigs(family, req.Config, req.Configs),
		Generation: gen,
		Seed:       req.Seed,
		BanTags:    ban,
		Negative:   req.Negative,
	}, nil
}

func (s *Server) record(ctx context.Context, m config.ModelConfig, req UpsampleRequest, res *pipeline.Result, d time.Duration, runErr error) {
	if s.journal == nil {
		return
	}
	e := history.Entry{
		Model:    m.Name,
		Version:  m.Version,
		Input:    req.Text,
		Seed:     req.Seed,
		Duration: d,
	}
	if res != nil {
		e.AllTags = res.AllTags
		e.Raw = res.Raw
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	if _, err := s.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("failed to record run", zap.Error(err))
	}
}

// FormatRequest is the body of POST /v1/format
type FormatRequest struct {
	Model    string            `json:"model,omitempty"`
	Template string            `json:"template,omitempty"`
	Config   template.Config   `json:"config"`
	Values   map[string]string `json:"values,omitempty"`
}

// handleFormat handles POST /v1/format
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req FormatRequest
	if !decodePost(w, r, &req) {
		return
	}
	family, m, err := s.catalog.Get(req.Model)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	name := req.Template
	if name == "" {
		name = family.Stages()[0].Template
	}
	prompt, err := family.FormatPrompt(name, req.Config, req.Values)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeResult(w, m.Name, map[string]string{"template": name, "prompt": prompt})
}

// ParseRequest is the body of POST /v1/parse
type ParseRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
	Mode  string `json:"mode,omitempty"`
}

// ParseResult is the classification returned by /v1/parse
type ParseResult struct {
	classify.Result
	Known   []string `json:"known_tags"`
	Unknown []string `json:"unknown_tags"`
}

// handleParse handles POST /v1/parse
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !decodePost(w, r, &req) {
		return
	}
	mode, err := classify.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	family, m, err := s.catalog.Get(req.Model)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	res := family.ParsePrompt(req.Text, mode)
	writeResult(w, m.Name, ParseResult{Result: res, Known: res.KnownTags, Unknown: res.UnknownTags})
}

// AspectRequest is the body of POST /v1/aspect. Without a model the policy
// ("linear" or "log2") decides the buckets.
type AspectRequest struct {
	Model  string `json:"model,omitempty"`
	Policy string `json:"policy,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// handleAspect handles POST /v1/aspect
func (s *Server) handleAspect(w http.ResponseWriter, r *http.Request) {
	var req AspectRequest
	if !decodePost(w, r, &req) {
		return
	}

	if req.Model == "" {
		policy, err := aspect.ParsePolicy(req.Policy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tag, err := aspect.Classify(policy, req.Width, req.Height)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeResult(w, "", map[string]string{"aspect_ratio": string(tag)})
		return
	}

	family, m, err := s.catalog.Get(req.Model)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	tag, err := family.AspectRatio(req.Width, req.Height)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeResult(w, m.Name, map[string]string{"aspect_ratio": tag})
}

// BanRequest is the body of POST /v1/ban
type BanRequest struct {
	Model       string `json:"model,omitempty"`
	BanTags     string `json:"ban_tags"`
	BanTemplate string `json:"ban_template,omitempty"`
}

// handleBan handles POST /v1/ban and returns the compiled token id groups
func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	var req BanRequest
	if !decodePost(w, r, &req) {
		return
	}
	family, m, err := s.catalog.Get(req.Model)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	var templates []string
	if req.BanTemplate != "" {
		templates = append(templates, req.BanTemplate)
	}
	spec, err := tags.BanList(s.catalog.Store(), s.envConfig.BanTemplateDir, req.BanTags, templates...)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ids := family.EncodeBanTags(spec)
	if ids == nil {
		ids = [][]int{}
	}
	writeResult(w, m.Name, map[string]interface{}{"ban_tags": spec, "bad_words_ids": ids})
}
