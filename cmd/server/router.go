package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trellis-kanban/trellis-api/internal/api"
	apiMiddleware "github.com/trellis-kanban/trellis-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// Create API handlers using the application's services
	authMiddleware := apiMiddleware.NewAuthMiddleware(
		apiMiddleware.NewJWTVerifier(app.config.Auth.JWTSecret),
	)
	boardHandler := api.NewBoardHandler(app.boardService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	memberHandler := api.NewMemberHandler(app.memberService, app.logger)
	commentHandler := api.NewCommentHandler(app.commentService, app.logger)
	streamHandler := api.NewStreamHandler(app.memberService, app.registry, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/boards", func(r chi.Router) {
			r.Post("/", boardHandler.CreateBoard)

			r.Route("/{boardID}", func(r chi.Router) {
				r.Get("/", boardHandler.GetBoard)
				r.Patch("/", boardHandler.UpdateBoard)
				r.Post("/archive", boardHandler.ArchiveBoard)
				r.Post("/unarchive", boardHandler.UnarchiveBoard)

				r.Post("/columns", boardHandler.CreateColumn)
				r.Put("/columns/positions", boardHandler.ReorderColumns)

				r.Post("/tasks", taskHandler.CreateTask)

				r.Get("/members", memberHandler.ListMembers)
				r.Post("/members", memberHandler.AddMember)
				r.Delete("/members/{userID}", memberHandler.RemoveMember)
				r.Patch("/members/{userID}", memberHandler.UpdateMemberRole)

				r.Get("/stream", streamHandler.StreamBoard)
			})
		})

		r.Route("/columns/{columnID}", func(r chi.Router) {
			r.Patch("/", boardHandler.UpdateColumn)
			r.Delete("/", boardHandler.DeleteColumn)
			r.Get("/tasks", boardHandler.ListColumnTasks)
		})

		r.Route("/tasks/{taskID}", func(r chi.Router) {
			r.Patch("/", taskHandler.UpdateTask)
			r.Delete("/", taskHandler.DeleteTask)
			r.Post("/move", taskHandler.MoveTask)
			r.Put("/assignee", taskHandler.AssignTask)
			r.Post("/archive", taskHandler.ArchiveTask)
			r.Post("/unarchive", taskHandler.UnarchiveTask)

			r.Post("/comments", commentHandler.CreateComment)
			r.Get("/comments", commentHandler.ListComments)
		})

		r.Route("/comments/{commentID}", func(r chi.Router) {
			r.Patch("/", commentHandler.UpdateComment)
			r.Delete("/", commentHandler.DeleteComment)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
