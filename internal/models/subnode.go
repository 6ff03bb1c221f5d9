// Package models defines the domain types for the agora importer.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Subnode is one user's note for a title, derived from one Markdown file.
// (User, Title) is unique in the store.
type Subnode struct {
	User    string     `json:"user"`
	Title   string     `json:"title"`
	Body    string     `json:"body"`
	Links   []string   `json:"links"`
	Pushes  []PushItem `json:"pushes"`
	Updated time.Time  `json:"updated"`
}

// PushItem is a list entry marked with #push, addressed to another node.
type PushItem struct {
	Title  string `json:"title"`
	Markup string `json:"markup"`
}

// Ref identifies a subnode without its content.
type Ref struct {
	User  string `json:"user"`
	Title string `json:"title"`
}

// EncodeLinks serializes links for the store's text column.
// A nil slice encodes as "[]".
func EncodeLinks(links []string) (string, error) {
	if links == nil {
		links = []string{}
	}
	b, err := json.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("models: encode links: %w", err)
	}
	return string(b), nil
}

// DecodeLinks is the inverse of EncodeLinks. Empty text decodes to no links.
func DecodeLinks(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("models: decode links: %w", err)
	}
	return out, nil
}

// EncodePushes serializes push items for the store's text column.
func EncodePushes(pushes []PushItem) (string, error) {
	if pushes == nil {
		pushes = []PushItem{}
	}
	b, err := json.Marshal(pushes)
	if err != nil {
		return "", fmt.Errorf("models: encode pushes: %w", err)
	}
	return string(b), nil
}

// DecodePushes is the inverse of EncodePushes.
func DecodePushes(s string) ([]PushItem, error) {
	out := []PushItem{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("models: decode pushes: %w", err)
	}
	return out, nil
}
