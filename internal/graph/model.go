// Package graph provides the vocabulary graph data model for schemadoc.
//
// It defines the node and relationship types that represent vocabulary
// entities (classes and properties) and the edges between them
// (subclass_of, domain_includes, range_includes, etc.).
package graph

import "strings"

// NodeLabel represents the type of a graph node.
type NodeLabel string

const (
	NodeClass    NodeLabel = "class"
	NodeProperty NodeLabel = "property"
)

// RelType represents the type of relationship between graph nodes.
type RelType string

const (
	RelSubclassOf     RelType = "subclass_of"
	RelDomainIncludes RelType = "domain_includes"
	RelRangeIncludes  RelType = "range_includes"
	RelSubPropertyOf  RelType = "sub_property_of"
	RelInverseOf      RelType = "inverse_of"
	RelSupersededBy   RelType = "superseded_by"
)

// GraphNode represents a node in the vocabulary graph.
type GraphNode struct {
	// ID is the unique identifier for the node.
	// Format: {label}:{name}
	ID string `json:"id"`

	// Label is the type of the node.
	Label NodeLabel `json:"label"`

	// Name is the entity name (e.g. "Person", "email").
	Name string `json:"name"`

	// Source is the provenance tag ("base" or "extension").
	Source string `json:"source"`

	// URI is the entity's $id.
	URI string `json:"uri"`

	// Description is the plain-text description.
	Description string `json:"description,omitempty"`

	// Properties holds additional metadata.
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphRelationship represents a directed edge in the vocabulary graph.
type GraphRelationship struct {
	// ID is the unique identifier for the relationship.
	ID string `json:"id"`

	// Type is the type of relationship.
	Type RelType `json:"type"`

	// Source is the ID of the source node.
	Source string `json:"source"`

	// Target is the ID of the target node. The target node may be absent
	// when the vocabulary references a name it does not define.
	Target string `json:"target"`

	// Position is the index of the target in the source's ordered list
	// (0 is the primary parent for subclass_of).
	Position int `json:"position,omitzero"`

	// Properties holds additional metadata.
	Properties map[string]any `json:"properties,omitempty"`
}

// GenerateID creates a deterministic node ID from label and entity name.
// Format: {label}:{name}
func GenerateID(label NodeLabel, name string) string {
	return string(label) + ":" + name
}

// GenerateRelID creates a deterministic relationship ID.
// Format: {type}:{source}->{target}
func GenerateRelID(relType RelType, source, target string) string {
	return string(relType) + ":" + source + "->" + target
}

// NameFromID returns the entity name part of a node ID.
func NameFromID(id string) string {
	if _, name, ok := strings.Cut(id, ":"); ok {
		return name
	}
	return id
}
