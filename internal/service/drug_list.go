package service

import (
	"strings"
)

// DrugList is the ordered, duplicate-free set of drug identifiers requested
// in one analysis. Tokens are stored upper-cased; the first occurrence of a
// token keeps its position.
type DrugList struct {
	tokens  []string
	pending string
}

// NewDrugList creates an empty drug list
func NewDrugList() *DrugList {
	return &DrugList{}
}

// Add splits raw on commas and appends every new, non-empty token. The
// pending input buffer is cleared afterwards. Empty input is ignored.
func (d *DrugList) Add(raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	for _, part := range strings.Split(raw, ",") {
		token := normalizeDrug(part)
		if token == "" || d.Contains(token) {
			continue
		}
		d.tokens = append(d.tokens, token)
	}
	d.pending = ""
}

// Remove deletes token if it is present exactly as given.
func (d *DrugList) Remove(token string) {
	for i, t := range d.tokens {
		if t == token {
			d.tokens = append(d.tokens[:i], d.tokens[i+1:]...)
			return
		}
	}
}

// Contains reports whether token is already in the list.
func (d *DrugList) Contains(token string) bool {
	for _, t := range d.tokens {
		if t == token {
			return true
		}
	}
	return false
}

// SetPending replaces the free-text input buffer.
func (d *DrugList) SetPending(text string) {
	d.pending = text
}

// Pending returns the free-text input buffer.
func (d *DrugList) Pending() string {
	return d.pending
}

// AddPending adds whatever is in the input buffer.
func (d *DrugList) AddPending() {
	d.Add(d.pending)
}

// Tokens returns a copy of the list in insertion order.
func (d *DrugList) Tokens() []string {
	out := make([]string, len(d.tokens))
	copy(out, d.tokens)
	return out
}

// Len returns the number of drugs in the list.
func (d *DrugList) Len() int {
	return len(d.tokens)
}

// Joined serializes the list for transport as a comma-joined string.
// Drug names are not escaped.
func (d *DrugList) Joined() string {
	return strings.Join(d.tokens, ",")
}

func normalizeDrug(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
