package models

import (
	"context"

	"github.com/kris-hansen/tagup/utils/aspect"
	"github.com/kris-hansen/tagup/utils/template"
)

var v2Tables = template.Tables{
	template.AxisRating: template.Enum("<|rating:%s|>",
		"sfw", "general", "sensitive", "nsfw", "questionable", "explicit"),
	template.AxisLength: template.Enum("<|length:%s|>",
		"very_short", "short", "medium", "long", "very_long"),
	template.AxisAspectRatio: template.Enum("<|aspect_ratio:%s|>",
		"ultra_tall", "very_tall", "tall", "square", "wide", "very_wide", "ultra_wide"),
	template.AxisIdentity: template.Enum("<|identity:%s|>", "none", "lax", "strict"),
}

const v2Prompt = "<|bos|>" +
	"<copyright>{copyright}</copyright>" +
	"<character>{character}</character>" +
	"{rating}{aspect_ratio}{length}" +
	"<general>{condition}{identity}<|input_end|>"

// v2Family is the only family that accepts a negative prompt.
type v2Family struct {
	*toolkit
}

func newV2(deps Deps) (Family, error) {
	tk, err := newToolkit(V2, deps, v2Tables,
		[]templateSpec{{
			name: DefaultTemplate,
			text: v2Prompt,
			defaults: map[string]string{
				template.AxisRating:      "general",
				template.AxisLength:      "medium",
				template.AxisAspectRatio: "tall",
				template.AxisIdentity:    "none",
				"copyright":              "",
				"character":              "",
				"condition":              "",
			},
		}},
		[]Stage{{Template: DefaultTemplate, Stop: "</general>"}},
		// linear buckets; too_tall and too_wide have no v2 literal
		aspect.Linear,
	)
	if err != nil {
		return nil, err
	}
	return &v2Family{toolkit: tk}, nil
}

func (f *v2Family) Generate(ctx context.Context, req Request) (Output, error) {
	return f.send(ctx, f.decoderOnly(req, true))
}
