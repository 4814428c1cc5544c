package handlers

import (
	"event-arena-system/middleware"
	"event-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSubmissionRoutes(app *fiber.App, submissionService *services.SubmissionService, leaderboardService *services.LeaderboardService) {
	userCtx := middleware.UserContextMiddleware()
	organizer := middleware.RequireOrganizer()

	// 🔓 Public leaderboard
	app.Get("/events/:id/leaderboard", leaderboardService.GetLeaderboard)
	app.Get("/events/:id/leaderboard/export", leaderboardService.ExportLeaderboardCSV)

	// 🔐 Submission pipeline (any authenticated participant)
	app.Post("/events/:id/submissions", userCtx, submissionService.CreateSubmission)
	app.Post("/submissions/:id/submit", userCtx, submissionService.SubmitSubmission)
	app.Post("/submissions/:id/verify", userCtx, submissionService.VerifySubmission)

	// 🔒 Moderation + recompute (organizer-only)
	app.Get("/events/:id/submissions", userCtx, organizer, submissionService.GetEventSubmissions)
	app.Patch("/submissions/:id/approve", userCtx, organizer, submissionService.ApproveSubmission)
	app.Patch("/submissions/:id/reject", userCtx, organizer, submissionService.RejectSubmission)
	app.Post("/events/:id/leaderboard/recompute", userCtx, organizer, leaderboardService.RecomputeLeaderboard)
}
