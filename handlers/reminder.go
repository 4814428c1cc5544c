package handlers

import (
	"event-arena-system/middleware"
	"event-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReminderRoutes(app *fiber.App, reminderService *services.ReminderService) {
	userCtx := middleware.UserContextMiddleware()
	organizer := middleware.RequireOrganizer()

	app.Get("/events/:id/reminders", userCtx, reminderService.GetEventReminders)
	app.Post("/events/:id/reminders", userCtx, organizer, reminderService.ScheduleRules)
}
