package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RelationshipType is the kind of edge between two ideas.
type RelationshipType string

// Relationship types accepted from the model.
const (
	RelationshipSimilar     RelationshipType = "similar"
	RelationshipOpposes     RelationshipType = "opposes"
	RelationshipBuildsOn    RelationshipType = "builds_on"
	RelationshipContradicts RelationshipType = "contradicts"
)

// IsValid returns true if the relationship type is recognised.
func (t RelationshipType) IsValid() bool {
	switch t {
	case RelationshipSimilar, RelationshipOpposes, RelationshipBuildsOn, RelationshipContradicts:
		return true
	default:
		return false
	}
}

// MinRelationshipStrength is the exclusive lower bound for keeping a relationship.
const MinRelationshipStrength = 0.3

// MaxIdeasCompared bounds how many existing ideas are scored against a new one.
const MaxIdeasCompared = 5

// IdeaRelationship is a directed edge between two idea nodes.
type IdeaRelationship struct {
	ID        string
	OwnerID   string
	SourceID  string
	TargetID  string
	Type      RelationshipType
	Strength  float64
	Reasoning string
	CreatedAt time.Time
}

// Validate checks the relationship invariants.
func (r IdeaRelationship) Validate() error {
	if r.SourceID == "" || r.TargetID == "" {
		return fmt.Errorf("%w: relationship endpoints required", ErrInvalidInput)
	}
	if r.SourceID == r.TargetID {
		return fmt.Errorf("%w: self-referencing relationship", ErrInvalidInput)
	}
	if r.Strength < 0 || r.Strength > 1 {
		return fmt.Errorf("%w: strength %.2f outside [0,1]", ErrInvalidInput, r.Strength)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: unknown relationship type %q", ErrInvalidInput, r.Type)
	}
	return nil
}

// Idea is an existing idea node offered to relationship scoring.
type Idea struct {
	ID      string
	Content string
}

// IdeaGraph is the node/edge view of a user's diary entries.
type IdeaGraph struct {
	Nodes []DiaryEntry
	Edges []IdeaRelationship
}

type rawRelationship struct {
	TargetIdeaID     *string  `json:"target_idea_id"`
	RelationshipType *string  `json:"relationship_type"`
	Strength         *float64 `json:"strength"`
	Reasoning        string   `json:"reasoning"`
}

// ParseIdeaRelationships validates model output for relationship scoring.
// The payload must be a JSON array, or an object with a "relationships" array.
// Individual malformed entries, unknown targets, self-loops and entries at or
// below MinRelationshipStrength are dropped. Only a structurally invalid payload
// is an ErrSchemaViolation.
func ParseIdeaRelationships(data []byte, sourceID string, candidates []Idea) ([]IdeaRelationship, error) {
	data = StripCodeFence(data)

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapped struct {
			Relationships []json.RawMessage `json:"relationships"`
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&wrapped); err != nil || wrapped.Relationships == nil {
			return nil, fmt.Errorf("%w: expected relationship array", ErrSchemaViolation)
		}
		items = wrapped.Relationships
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	result := make([]IdeaRelationship, 0, len(items))
	for _, item := range items {
		var raw rawRelationship
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		if raw.TargetIdeaID == nil || raw.RelationshipType == nil || raw.Strength == nil {
			continue
		}
		rel := IdeaRelationship{
			SourceID:  sourceID,
			TargetID:  *raw.TargetIdeaID,
			Type:      RelationshipType(*raw.RelationshipType),
			Strength:  *raw.Strength,
			Reasoning: raw.Reasoning,
		}
		if !known[rel.TargetID] || rel.Validate() != nil {
			continue
		}
		if rel.Strength <= MinRelationshipStrength {
			continue
		}
		result = append(result, rel)
	}
	return result, nil
}
