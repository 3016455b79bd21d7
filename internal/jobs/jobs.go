package jobs

import (
	"log"

	"github.com/robfig/cron/v3"

	"clinic-agenda-server/internal/services"
)

// StartScheduler wires the periodic maintenance jobs: the hourly
// reminder sweep and the daily cleanup of stale appointments. The
// underlying operations live in the services so they can also be
// triggered directly.
func StartScheduler(appointments *services.AppointmentService, notifications *services.NotificationService) *cron.Cron {
	c := cron.New()

	// Reminder sweep, hourly. Idempotent per appointment: already-SENT
	// reminders are skipped.
	if _, err := c.AddFunc("0 * * * *", func() {
		log.Println("Running appointment reminder sweep...")
		if err := notifications.DispatchReminders(); err != nil {
			log.Println("Reminder sweep failed:", err)
		}
	}); err != nil {
		log.Println("Failed to schedule reminder sweep:", err)
	}

	// Stale-appointment cleanup, daily at 00:10.
	if _, err := c.AddFunc("10 0 * * *", func() {
		log.Println("Running stale appointment cleanup...")
		canceled, err := appointments.CancelStale()
		if err != nil {
			log.Println("Stale appointment cleanup failed:", err)
			return
		}
		if canceled > 0 {
			log.Printf("Canceled %d stale appointments", canceled)
		}
	}); err != nil {
		log.Println("Failed to schedule stale appointment cleanup:", err)
	}

	c.Start()
	return c
}
