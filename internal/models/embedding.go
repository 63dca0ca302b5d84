package models

// Embedding is a textual-inversion token entry trained alongside the model.
type Embedding struct {
	UUID                  string   `json:"uuid"`
	ModelName             string   `json:"model_name"`
	Placeholder           string   `json:"placeholder"`
	Train                 bool     `json:"train"`
	StopTrainingAfter     *int     `json:"stop_training_after"`
	StopTrainingAfterUnit TimeUnit `json:"stop_training_after_unit"`
	TokenCount            *int     `json:"token_count"`
	InitialEmbeddingText  string   `json:"initial_embedding_text"`
	IsOutputEmbedding     bool     `json:"is_output_embedding"`
}

// EmbeddingPatch carries a partial edit of an Embedding; nil fields are left untouched.
type EmbeddingPatch struct {
	ModelName             *string   `json:"model_name,omitempty"`
	Placeholder           *string   `json:"placeholder,omitempty"`
	Train                 *bool     `json:"train,omitempty"`
	StopTrainingAfter     *int      `json:"stop_training_after,omitempty"`
	ClearStopTraining     bool      `json:"clear_stop_training_after,omitempty"`
	StopTrainingAfterUnit *TimeUnit `json:"stop_training_after_unit,omitempty"`
	TokenCount            *int      `json:"token_count,omitempty"`
	InitialEmbeddingText  *string   `json:"initial_embedding_text,omitempty"`
	IsOutputEmbedding     *bool     `json:"is_output_embedding,omitempty"`
}

// Apply returns e with the patch applied.
func (p EmbeddingPatch) Apply(e Embedding) Embedding {
	if p.ModelName != nil {
		e.ModelName = *p.ModelName
	}
	if p.Placeholder != nil {
		e.Placeholder = *p.Placeholder
	}
	if p.Train != nil {
		e.Train = *p.Train
	}
	if p.ClearStopTraining {
		e.StopTrainingAfter = nil
	} else if p.StopTrainingAfter != nil {
		n := *p.StopTrainingAfter
		e.StopTrainingAfter = &n
	}
	if p.StopTrainingAfterUnit != nil {
		e.StopTrainingAfterUnit = *p.StopTrainingAfterUnit
	}
	if p.TokenCount != nil {
		n := *p.TokenCount
		e.TokenCount = &n
	}
	if p.InitialEmbeddingText != nil {
		e.InitialEmbeddingText = *p.InitialEmbeddingText
	}
	if p.IsOutputEmbedding != nil {
		e.IsOutputEmbedding = *p.IsOutputEmbedding
	}
	return e
}
