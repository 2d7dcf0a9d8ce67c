package models

import (
	"context"

	"github.com/kris-hansen/tagup/utils/template"
)

// v1 writes ratings as rating tag pairs and length as a bare special token.
var v1Tables = template.Tables{
	template.AxisRating: template.Pairs(
		"general", "rating:sfw, rating:general",
		"sensitive", "rating:sfw, rating:sensitive",
		"questionable", "rating:nsfw, rating:questionable",
		"explicit", "rating:nsfw, rating:explicit",
	),
	template.AxisLength: template.Enum("<|%s|>", "very_short", "short", "long", "very_long"),
}

const v1Prompt = "<|bos|>" +
	"<rating>{rating}</rating>" +
	"<copyright>{copyright}</copyright>" +
	"<character>{character}</character>" +
	"<general>{length}{condition}<|input_end|>"

type v1Family struct {
	*toolkit
}

func newV1(deps Deps) (Family, error) {
	tk, err := newToolkit(V1, deps, v1Tables,
		[]templateSpec{{
			name: DefaultTemplate,
			text: v1Prompt,
			defaults: map[string]string{
				template.AxisRating: "general",
				template.AxisLength: "long",
				"copyright":         "",
				"character":         "",
				"condition":         "",
			},
		}},
		[]Stage{{Template: DefaultTemplate, Stop: "</general>"}},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return &v1Family{toolkit: tk}, nil
}

func (f *v1Family) Generate(ctx context.Context, req Request) (Output, error) {
	return f.send(ctx, f.decoderOnly(req, false))
}
