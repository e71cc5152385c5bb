// Package workflow models node-graph workflow documents and provides
// deterministic structural analysis.
//
// Documents follow the common editor format: a nodes array plus a links
// array. Links appear in two shapes in the wild, the compact array form
// [id, origin_id, origin_slot, target_id, target_slot, type] and an
// equivalent object form; both parse into the same Link type.
package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a node or link identifier.
// Documents are inconsistent about whether IDs are numbers or strings,
// so both decode into the same type.
type ID int64

// UnmarshalJSON accepts a JSON number or numeric string.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse id %q: %w", s, err)
	}
	*id = ID(n)
	return nil
}

// String returns the decimal representation.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Document is a parsed workflow graph.
type Document struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Node is a single workflow node.
type Node struct {
	ID      ID       `json:"id"`
	Type    string   `json:"type"`
	Inputs  []Input  `json:"inputs,omitempty"`
	Outputs []Output `json:"outputs,omitempty"`
	Widgets []any    `json:"widgets_values,omitempty"`
}

// Input is a named input slot. Link is nil when nothing is connected.
type Input struct {
	Name string `json:"name"`
	Link *int64 `json:"link"`
}

// Output is a named output slot with the IDs of outgoing links.
type Output struct {
	Name  string  `json:"name"`
	Links []int64 `json:"links"`
}

// Link is a connection between two node slots.
type Link struct {
	ID         ID     `json:"id"`
	OriginID   ID     `json:"origin_id"`
	OriginSlot int    `json:"origin_slot"`
	TargetID   ID     `json:"target_id"`
	TargetSlot int    `json:"target_slot"`
	Type       string `json:"type"`
}

// linkObject mirrors Link for object-form decoding.
type linkObject struct {
	ID         ID     `json:"id"`
	OriginID   ID     `json:"origin_id"`
	OriginSlot int    `json:"origin_slot"`
	TargetID   ID     `json:"target_id"`
	TargetSlot int    `json:"target_slot"`
	Type       string `json:"type"`
}

// UnmarshalJSON decodes either the compact array form or the object form.
func (l *Link) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("parse link array: %w", err)
		}
		if len(parts) < 5 {
			return fmt.Errorf("link array has %d elements, want at least 5", len(parts))
		}
		if err := json.Unmarshal(parts[0], &l.ID); err != nil {
			return err
		}
		if err := json.Unmarshal(parts[1], &l.OriginID); err != nil {
			return err
		}
		if err := json.Unmarshal(parts[2], &l.OriginSlot); err != nil {
			return err
		}
		if err := json.Unmarshal(parts[3], &l.TargetID); err != nil {
			return err
		}
		if err := json.Unmarshal(parts[4], &l.TargetSlot); err != nil {
			return err
		}
		if len(parts) >= 6 {
			if err := json.Unmarshal(parts[5], &l.Type); err != nil {
				// The type slot is occasionally a number; ignore it.
				l.Type = ""
			}
		}
		return nil
	}

	var obj linkObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("parse link object: %w", err)
	}
	*l = Link(obj)
	return nil
}

// MarshalJSON encodes the canonical compact array form.
func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		int64(l.ID), int64(l.OriginID), l.OriginSlot,
		int64(l.TargetID), l.TargetSlot, l.Type,
	})
}

// Parse decodes a workflow document from JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	return &doc, nil
}

// NodeByID returns the node with the given ID, or nil.
func (d *Document) NodeByID(id ID) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// LinkByID returns the link with the given ID, or nil.
func (d *Document) LinkByID(id int64) *Link {
	for i := range d.Links {
		if d.Links[i].ID == ID(id) {
			return &d.Links[i]
		}
	}
	return nil
}

// simplifiedInput is the compact input shape used in model prompts.
type simplifiedInput struct {
	Name   string `json:"name"`
	LinkID *int64 `json:"link_id"`
}

type simplifiedOutput struct {
	Name     string `json:"name"`
	HasLinks bool   `json:"has_links"`
}

type simplifiedNode struct {
	ID      ID                 `json:"id"`
	Type    string             `json:"type"`
	Inputs  []simplifiedInput  `json:"inputs"`
	Outputs []simplifiedOutput `json:"outputs"`
	Widgets []any              `json:"widgets,omitempty"`
}

type simplifiedDocument struct {
	Nodes []simplifiedNode `json:"nodes"`
	Links []Link           `json:"links"`
}

// Simplify returns a token-efficient JSON rendering of the document for
// model prompts: input link presence, output connectivity, and the raw
// links array, dropping layout and cosmetic fields.
func (d *Document) Simplify() ([]byte, error) {
	simplified := simplifiedDocument{
		Nodes: make([]simplifiedNode, 0, len(d.Nodes)),
		Links: d.Links,
	}
	for _, n := range d.Nodes {
		sn := simplifiedNode{
			ID:      n.ID,
			Type:    n.Type,
			Inputs:  make([]simplifiedInput, 0, len(n.Inputs)),
			Outputs: make([]simplifiedOutput, 0, len(n.Outputs)),
			Widgets: n.Widgets,
		}
		for _, in := range n.Inputs {
			sn.Inputs = append(sn.Inputs, simplifiedInput{Name: in.Name, LinkID: in.Link})
		}
		for _, out := range n.Outputs {
			sn.Outputs = append(sn.Outputs, simplifiedOutput{Name: out.Name, HasLinks: len(out.Links) > 0})
		}
		simplified.Nodes = append(simplified.Nodes, sn)
	}
	return json.Marshal(simplified)
}
