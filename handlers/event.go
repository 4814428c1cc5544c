package handlers

import (
	"event-arena-system/middleware"
	"event-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEventRoutes(app *fiber.App, eventService *services.EventService) {
	userCtx := middleware.UserContextMiddleware()
	organizer := middleware.RequireOrganizer()

	// 🔓 Public routes (only published events)
	app.Get("/events/published", eventService.GetPublishedEvents)
	app.Get("/events/:id/status", eventService.EventStatus)

	// 🔐 Authenticated routes. Middleware is attached per route; a "/"-mounted
	// group would leak onto every route registered after it.
	app.Get("/events/:id", userCtx, eventService.GetEvent)
	app.Get("/events/:id/participants", userCtx, eventService.GetEventParticipants)

	// Participation
	app.Post("/events/:id/join", userCtx, eventService.JoinEvent)
	app.Post("/events/:id/participants/:participant_id/leave", userCtx, eventService.LeaveEvent)

	// 🔒 Organizer-only lifecycle operations
	app.Post("/events", userCtx, organizer, eventService.CreateEvent)
	app.Post("/events/:id/publish", userCtx, organizer, eventService.PublishEvent)
	app.Post("/events/:id/archive", userCtx, organizer, eventService.ArchiveEvent)
	app.Post("/events/:id/duplicate", userCtx, organizer, eventService.DuplicateEvent)
}
