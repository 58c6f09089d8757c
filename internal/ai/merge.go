package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Merge actions the model may emit per item.
const (
	MergeActionKeep   = "keep"
	MergeActionUpdate = "update"
	MergeActionAdd    = "add"
)

// MergeDecision is the model's verdict for one catalog item when merging a
// second source into an existing menu.
type MergeDecision struct {
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Action   string         `json:"action"`
	Changes  map[string]any `json:"changes,omitempty"`
}

// MergeMenus fuzzy-matches a scraped item list against the venue's current
// items with one more model call and returns per-item decisions. Malformed
// model output aborts the merge with ErrBadModelOutput.
func (e *Extractor) MergeMenus(ctx context.Context, currentJSON, scrapedJSON string) ([]MergeDecision, error) {
	prompt := buildMergePrompt(currentJSON, scrapedJSON)

	response, err := e.provider.ExtractData(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("AI merge failed: %w", err)
	}

	cleaned := stripFences(response)

	var raw struct {
		Decisions []MergeDecision `json:"decisions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}

	for i, d := range raw.Decisions {
		action := strings.ToLower(strings.TrimSpace(d.Action))
		switch action {
		case MergeActionKeep, MergeActionUpdate, MergeActionAdd:
			raw.Decisions[i].Action = action
		default:
			return nil, fmt.Errorf("%w: decision %d has unknown action %q", ErrBadModelOutput, i, d.Action)
		}
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("%w: decision %d has no item name", ErrBadModelOutput, i)
		}
	}

	return raw.Decisions, nil
}

func buildMergePrompt(currentJSON, scrapedJSON string) string {
	return fmt.Sprintf(`You are merging two structured restaurant menus for the same venue.

CURRENT menu (imported from the venue's PDF):
%s

SECOND source (scraped from the venue's website):
%s

Match items between the two lists by fuzzy name similarity ("Margherita" ==
"Pizza Margherita"). For every item that should exist in the merged menu,
emit one decision:

- "keep": item exists only in CURRENT, or both sources agree. No changes.
- "update": both sources have it and the second source has a better price,
  description or image. "changes" holds ONLY the fields to overwrite.
- "add": item exists only in the second source.

Output MUST be valid JSON, nothing else:
{
  "decisions": [
    {"name": "string", "category": "string", "action": "keep|update|add",
     "changes": {"price": number, "description": "string", "image_url": "string"}}
  ]
}
Omit "changes" for "keep". For "add", "changes" holds all known fields.`, currentJSON, scrapedJSON)
}
