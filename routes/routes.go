package routes

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/purposewaze/form-studio/app"
	"github.com/purposewaze/form-studio/metrics"
	"github.com/purposewaze/form-studio/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))
	root.Method(http.MethodGet, "/metrics", metrics.Handler())

	// rendered report page, linked from report-ready emails
	root.Get("/reports/{id}", ReportPage(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))
	api.Post("/signup", Signup(app))
	api.Post("/password-reset", RequestPasswordReset(app))
	api.Post("/password-reset/confirm", ConfirmPasswordReset(app))

	// public respondent runtime
	api.Route("/public", func(r chi.Router) {
		r.Get("/forms/{id}", PublicGetForm(app))
		r.Post("/forms/{id}/email", ValidateEmail(app))
		r.Post("/forms/{id}/submissions", SubmitForm(app))
		r.Post("/forms/{id}/files", UploadFile(app))
		r.Get("/submissions/{id}/report", GetSubmissionReport(app))
	})

	// report write-back from the workflow system
	api.Post("/reports", IngestReport(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Owner(app.Config))

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get("/forms/{id}", GetForm(app))
		r.Put("/forms/{id}", UpdateForm(app))
		r.Delete("/forms/{id}", DeleteForm(app))

		r.Post("/forms/{id}/duplicate", DuplicateForm(app))
		r.Get("/forms/{id}/share", ShareForm(app))
		r.Get("/forms/{id}/analytics", FormAnalytics(app))
		r.Get("/forms/{id}/submissions", ListSubmissions(app))

		r.Get("/profile", GetProfile(app))
		r.Put("/profile", UpdateProfile(app))
		r.Post("/profile/theme", CycleTheme(app))

		r.Get("/participants", ListParticipants(app))
		r.Post("/participants", RegisterParticipant(app))

		r.Post("/logout", Logout(app))
	})

	return api
}
