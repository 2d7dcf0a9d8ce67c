package models

import (
	"context"

	"github.com/kris-hansen/tagup/utils/aspect"
	"github.com/kris-hansen/tagup/utils/extract"
	"github.com/kris-hansen/tagup/utils/template"
)

// Template names of the v2408 pipeline
const (
	TemplateTranslation = "translation"
	TemplateExtension   = "extension"
)

// Stop markers of the v2408 pipeline
const (
	TranslationEnd = "<|reserved_6|>"
	ExtensionEnd   = "</general>"
)

var v2408Tables = template.Tables{
	template.AxisRating: template.Enum("<|rating:%s|>",
		"general", "sensitive", "questionable", "explicit"),
	template.AxisLength: template.Enum("<|length:%s|>",
		"very_short", "short", "long", "very_long"),
	template.AxisAspectRatio: template.Enum("<|aspect_ratio:%s|>", aspectKeys(aspect.Log2Tags)...),
}

const (
	v2408TranslationPrompt = "<|bos|>" +
		"{aspect_ratio}{rating}{length}" +
		"<|translation|><copyright>"
	v2408ExtensionPrompt = "<|bos|>" +
		"{aspect_ratio}{rating}{length}" +
		"<copyright>{copyright}</copyright>" +
		"<character>{character}</character>" +
		"<translation>{translation}</translation>" +
		TranslationEnd + "<extension>"
)

// v2408Family is an encoder-decoder model. The natural-language prompt goes
// to the encoder and the tag template to the decoder.
type v2408Family struct {
	*toolkit
}

func newV2408(deps Deps) (Family, error) {
	tk, err := newToolkit(V2408, deps, v2408Tables,
		[]templateSpec{
			{
				name: TemplateTranslation,
				text: v2408TranslationPrompt,
				defaults: map[string]string{
					template.AxisAspectRatio: "tall",
					template.AxisRating:      "general",
					template.AxisLength:      "very_short",
				},
			},
			{
				name: TemplateExtension,
				text: v2408ExtensionPrompt,
				defaults: map[string]string{
					template.AxisAspectRatio: "tall",
					template.AxisRating:      "general",
					template.AxisLength:      "long",
					"copyright":              "",
					"character":              "",
					"translation":            "",
				},
			},
		},
		[]Stage{
			{
				Template: TemplateTranslation,
				Stop:     TranslationEnd,
				Extract:  []extract.Pattern{extract.Copyright, extract.Character, extract.Translation},
				Greedy:   true,
			},
			{
				Template: TemplateExtension,
				Stop:     ExtensionEnd,
				Extract:  []extract.Pattern{extract.Extension},
			},
		},
		aspect.Log2,
	)
	if err != nil {
		return nil, err
	}
	return &v2408Family{toolkit: tk}, nil
}

func (f *v2408Family) Generate(ctx context.Context, req Request) (Output, error) {
	if req.Negative != "" {
		f.logger.Debug("negative prompt not supported, ignored")
		req.Negative = ""
	}
	return f.send(ctx, req)
}
