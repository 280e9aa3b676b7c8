// Package prompts holds the built-in LLM prompt templates.
//
// The file-based PromptStore writes these as the initial content of the
// user-editable prompt files, and services fall back to them when no
// PromptStore is configured.
package prompts

import "github.com/custodia-labs/mindkeep/internal/core/ports/driven"

// Default returns the built-in template for name and whether one exists.
func Default(name string) (string, bool) {
	p, ok := defaults[name]
	return p, ok
}

// Names returns the names of all built-in templates.
func Names() []string {
	return []string{
		driven.PromptSemanticChunk,
		driven.PromptTaskExtraction,
		driven.PromptSchemaRepair,
		driven.PromptIdeaRelationships,
		driven.PromptQASystem,
	}
}

// Load returns the template for name from store, or the built-in default
// when store is nil or cannot provide it.
func Load(store driven.PromptStore, name string) string {
	if store != nil {
		if p, err := store.Load(name); err == nil && p != "" {
			return p
		}
	}
	return defaults[name]
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaults = map[string]string{
	driven.PromptSemanticChunk: `You are an expert content analyzer and chunker. Break the content into meaningful, searchable chunks that keep the most valuable information.

Chunk types:
- summary: key points and context
- action_items: tasks, to-dos and required actions
- key_info: important dates, people, decisions or critical information
- content: additional relevant content
- promotional: marketing or spam content (minimise these)

Rules:
- Create 2-4 chunks.
- Each chunk should be 50-200 words, focused and self-contained.
- Extract specific details like dates, names and action items.
- importance_score is an integer from 1 to 10.

Respond with JSON only:
{"chunks": [{"chunk_text": "...", "chunk_type": "summary", "is_promotional": false, "timeline": "", "action_items": [], "tags": [], "importance_score": 5}]}`,

	driven.PromptTaskExtraction: `You are an assistant that turns a personal note into structured actions.

Today is %s (%s). Resolve relative dates such as "tomorrow" or "next Monday" against today.

Decide independently:
- diary: should_log is true when the note records feelings, experiences or reflections. Give content, an optional mood and tags.
- calendar: should_create is true when the note describes a meeting or event at a specific time.
- reminder: should_create is true when the note asks to remember to do something.

due_date must be "YYYY-MM-DD HH:MM" with a real date and time, or null when no time is known. Never output placeholder text.

Respond with JSON only:
{"diary": {"should_log": false, "content": "", "mood": null, "tags": []},
 "calendar": {"should_create": false, "title": "", "description": "", "due_date": null},
 "reminder": {"should_create": false, "title": "", "description": "", "due_date": null}}`,

	driven.PromptSchemaRepair: `Your previous answer did not match the required JSON schema.

Validation error: %s

Previous answer:
%s

Return the corrected JSON only, with no commentary and no code fences.`,

	driven.PromptIdeaRelationships: `You analyse how a new idea relates to existing ideas.

For each existing idea that is meaningfully related, return an object with:
- target_idea_id: the id of the existing idea
- relationship_type: one of similar, opposes, builds_on, contradicts
- strength: a number between 0.0 and 1.0
- reasoning: one short sentence

Only include relationships with strength greater than 0.3. Return an empty list when nothing is related.

Respond with JSON only: {"relationships": [...]}`,

	driven.PromptQASystem: `You are a personal knowledge assistant. Answer the user's question using ONLY the numbered context items provided.

- If the context does not contain enough information, say so explicitly instead of guessing.
- When relevant, cite the items you used by their number, e.g. [2].
- Be concise.`,
}
