package server

import (
	"net/http"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/models"
)

// GenerateRequest runs one backend call on a preformatted template
type GenerateRequest struct {
	Model      string                   `json:"model,omitempty"`
	Text       string                   `json:"text,omitempty"`
	Template   string                   `json:"template"`
	Stop       string                   `json:"stop,omitempty"`
	BanTags    string                   `json:"ban_tags,omitempty"`
	Generation *models.GenerationConfig `json:"generation_config,omitempty"`
	Seed       *int                     `json:"seed,omitempty"`
}

// DefaultStop ends generic generation at the end of the general section
const DefaultStop = "</general>"

// handleGenerate handles POST /v1/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.Template == "" {
		writeError(w, http.StatusBadRequest, "Template is required")
		return
	}

	family, m, err := s.catalog.Get(req.Model)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	params := models.DefaultGenerationConfig()
	if req.Generation != nil {
		params = *req.Generation
	}
	params = params.WithSeed(req.Seed)
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stop := req.Stop
	if stop == "" {
		stop = DefaultStop
	}

	config.DebugLog("Generate request: model=%s, template_length=%d, stop=%s", m.Name, len(req.Template), stop)

	out, err := family.Generate(r.Context(), models.Request{
		Text:     req.Text,
		Template: req.Template,
		Params:   params,
		Ban:      family.EncodeBanTags(req.BanTags),
		Stop:     stop,
	})
	if err != nil {
		config.VerboseLog("Generation failed: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeResult(w, m.Name, out)
}
