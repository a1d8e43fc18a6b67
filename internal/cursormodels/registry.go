// Package cursormodels holds the static table mapping Cursor's short model
// ids (as exposed by GetUsableModels/GetDefaultModelForCli) onto canonical
// ids with their context/output limits (spec §6 "Model-id aliasing").
package cursormodels

import "strings"

// Info describes one canonical model's limits.
type Info struct {
	Canonical       string
	ContextTokens   int
	MaxOutputTokens int
}

// defaultInfo is spec §6's fallback for an unmapped model.
var defaultInfo = Info{Canonical: "", ContextTokens: 128000, MaxOutputTokens: 16384}

// table maps canonical base ids (suffixes already stripped) to limits.
// Lookup matches the base id exactly; adapted from the teacher's
// getOpenAIModelContextWindow rule table to Cursor's short model-id
// vocabulary.
var table = map[string]Info{
	"sonnet-4.5":   {Canonical: "sonnet-4.5", ContextTokens: 200000, MaxOutputTokens: 16384},
	"sonnet-4":     {Canonical: "sonnet-4", ContextTokens: 200000, MaxOutputTokens: 16384},
	"opus-4.5":     {Canonical: "opus-4.5", ContextTokens: 200000, MaxOutputTokens: 16384},
	"opus-4.1":     {Canonical: "opus-4.1", ContextTokens: 200000, MaxOutputTokens: 16384},
	"haiku-4.5":    {Canonical: "haiku-4.5", ContextTokens: 200000, MaxOutputTokens: 16384},
	"gpt-5.2":      {Canonical: "gpt-5.2", ContextTokens: 272000, MaxOutputTokens: 32768},
	"gpt-5.1":      {Canonical: "gpt-5.1", ContextTokens: 272000, MaxOutputTokens: 32768},
	"gpt-5":        {Canonical: "gpt-5", ContextTokens: 272000, MaxOutputTokens: 32768},
	"gpt-4.1":      {Canonical: "gpt-4.1", ContextTokens: 128000, MaxOutputTokens: 16384},
	"o3":           {Canonical: "o3", ContextTokens: 128000, MaxOutputTokens: 65536},
	"gemini-3-pro": {Canonical: "gemini-3-pro", ContextTokens: 1000000, MaxOutputTokens: 65536},
	"deepseek-v3.2": {Canonical: "deepseek-v3.2", ContextTokens: 128000, MaxOutputTokens: 16384},
	"grok-4":       {Canonical: "grok-4", ContextTokens: 256000, MaxOutputTokens: 32768},
}

// suffixes are normalized away before lookup (spec §6: "-thinking / -high /
// -codex* variants collapse to the same base entry").
var suffixes = []string{"-thinking", "-high", "-codex-max", "-codex"}

// Normalize strips any known suffix variant from a Cursor short model id,
// returning the base id used as the table key.
func Normalize(modelID string) string {
	m := strings.ToLower(modelID)
	for _, suf := range suffixes {
		if strings.HasSuffix(m, suf) {
			return strings.TrimSuffix(m, suf)
		}
	}
	return m
}

// Lookup resolves a Cursor short model id to its canonical info, falling
// back to spec §6's default limits for anything unmapped.
func Lookup(modelID string) Info {
	base := Normalize(modelID)
	if info, ok := table[base]; ok {
		return info
	}
	fallback := defaultInfo
	fallback.Canonical = modelID
	return fallback
}
