package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/interfaces"
	"Trainer-Console/server/internal/store"
	"Trainer-Console/server/internal/views"
)

// Deps are the components the router serves
type Deps struct {
	Store      *store.ConfigStore
	Hub        *ConfigHub
	Backup     *views.BackupView
	Data       *views.DataView
	Embeddings *views.EmbeddingsView
	Inference  *views.InferenceView
	Models     *views.ModelsView
	Actions    interfaces.ActionRecorder
	StaticDir  string
	Log        *logrus.Entry
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		store:      d.Store,
		hub:        d.Hub,
		backup:     d.Backup,
		data:       d.Data,
		embeddings: d.Embeddings,
		inference:  d.Inference,
		models:     d.Models,
		actions:    d.Actions,
		log:        d.Log,
	}
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Log))
	r.Use(corsMiddleware)

	h := NewHandlers(d)

	if d.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(d.StaticDir)))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)

		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.GetConfig)
			r.Patch("/", h.PatchConfig)
			r.Get("/ws", h.ConfigStream)
		})

		r.Route("/backup", func(r chi.Router) {
			r.Get("/", h.GetBackup)
			r.Patch("/", h.PatchBackup)
			r.Post("/now", h.BackupNow)
			r.Post("/save-now", h.SaveNow)
		})

		r.Route("/data", func(r chi.Router) {
			r.Get("/", h.GetData)
			r.Patch("/", h.PatchData)
		})

		r.Route("/embeddings", func(r chi.Router) {
			r.Get("/", h.ListEmbeddings)
			r.Post("/", h.AddEmbedding)
			r.Post("/disable-all", h.DisableAllEmbeddings)
			r.Patch("/{id}", h.UpdateEmbedding)
			r.Delete("/{id}", h.RemoveEmbedding)
		})

		r.Route("/inference", func(r chi.Router) {
			r.Get("/", h.GetInference)
			r.Patch("/", h.PatchInference)
			r.Post("/load", h.LoadModel)
			r.Post("/unload", h.UnloadModel)
			r.Post("/generate", h.Generate)
			r.Post("/cancel", h.CancelGeneration)
			r.Post("/refresh", h.RefreshInference)
			r.Post("/enhance", h.EnhancePrompt)

			r.Post("/loras", h.AddLora)
			r.Patch("/loras/{id}", h.UpdateLora)
			r.Delete("/loras/{id}", h.RemoveLora)

			r.Delete("/gallery", h.ClearGallery)
			r.Delete("/gallery/{id}", h.DeleteImage)
			r.Get("/gallery/{id}/url", h.ImageURL)
		})

		r.Route("/models", func(r chi.Router) {
			r.Get("/", h.GetModels)
			r.Post("/", h.AddModel)
			r.Post("/save", h.SaveModels)
			r.Post("/reset", h.ResetModels)
			r.Patch("/{id}", h.UpdateModel)
			r.Delete("/{id}", h.RemoveModel)
		})

		r.Get("/actions", h.RecentActions)
	})

	return r
}
