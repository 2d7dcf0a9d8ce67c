package models

import (
	"context"

	"github.com/kris-hansen/tagup/utils/aspect"
	"github.com/kris-hansen/tagup/utils/template"
)

var v3Tables = template.Tables{
	template.AxisRating: template.Enum("<|rating:%s|>",
		"general", "sensitive", "questionable", "explicit"),
	template.AxisLength: template.Enum("<|length:%s|>",
		"very_short", "short", "medium", "long", "very_long"),
	template.AxisAspectRatio: template.Enum("<|aspect_ratio:%s|>", aspectKeys(aspect.Log2Tags)...),
}

const (
	v3PretrainPrompt = "<|bos|>" +
		"{rating}{aspect_ratio}{length}" +
		"<copyright>{copyright}</copyright>" +
		"<character>{character}</character>" +
		"<general>{condition}"
	v3SFTPrompt = v3PretrainPrompt + "<|input_end|>"
)

// V3 template names besides DefaultTemplate, which is the pretrain prompt
const (
	TemplatePretrain = "pretrain"
	TemplateSFT      = "sft"
)

type v3Family struct {
	*toolkit
}

func newV3(deps Deps) (Family, error) {
	defaults := map[string]string{
		template.AxisRating:      "general",
		template.AxisLength:      "medium",
		template.AxisAspectRatio: "tall",
		"copyright":              "",
		"character":              "",
		"condition":              "",
	}
	tk, err := newToolkit(V3, deps, v3Tables,
		[]templateSpec{
			{name: DefaultTemplate, text: v3PretrainPrompt, defaults: defaults},
			{name: TemplatePretrain, text: v3PretrainPrompt, defaults: defaults},
			{name: TemplateSFT, text: v3SFTPrompt, defaults: defaults},
		},
		[]Stage{{Template: DefaultTemplate, Stop: "</general>"}},
		aspect.Log2,
	)
	if err != nil {
		return nil, err
	}
	return &v3Family{toolkit: tk}, nil
}

func (f *v3Family) Generate(ctx context.Context, req Request) (Output, error) {
	return f.send(ctx, f.decoderOnly(req, false))
}

func aspectKeys(ts []aspect.Tag) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}
