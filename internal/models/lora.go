package models

// LoraEntry is a LoRA adapter applied on top of the base model in the
// inference playground. It lives only in the playground session.
type LoraEntry struct {
	ID      string  `json:"id"`
	Path    string  `json:"path"`
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`
}

// LoraPatch carries a partial edit of a LoraEntry.
type LoraPatch struct {
	Path    *string  `json:"path,omitempty"`
	Weight  *float64 `json:"weight,omitempty"`
	Enabled *bool    `json:"enabled,omitempty"`
}

// Apply returns l with the patch applied.
func (p LoraPatch) Apply(l LoraEntry) LoraEntry {
	if p.Path != nil {
		l.Path = *p.Path
	}
	if p.Weight != nil {
		l.Weight = *p.Weight
	}
	if p.Enabled != nil {
		l.Enabled = *p.Enabled
	}
	return l
}
