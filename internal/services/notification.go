package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"clinic-agenda-server/internal/models"
)

// MessageSender is the gateway operation the dispatcher depends on.
type MessageSender interface {
	SendText(phone, message string) SendResult
}

// Recipient identifies who a notification goes to.
type Recipient struct {
	UserID string
	Role   models.Role
	Name   string
	Phone  string
}

// Event is a business occurrence that produces one notification.
// Each variant carries exactly the fields its template needs.
type Event interface {
	Type() models.NotificationType
	To() Recipient
	AppointmentID() string
	Message() string
	meta() map[string]string
}

// Literal placeholders rendered when an event field is absent.
const (
	fallbackDate         = "Data do agendamento"
	fallbackProfessional = "Profissional"
	fallbackPatient      = "Paciente"
	fallbackContent      = "Notificação do sistema de agendamento."
	fallbackError        = "Erro desconhecido"
)

const dateLayout = "02/01/2006 15:04"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return fallbackDate
	}
	return t.Format(dateLayout)
}

func orFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// BookingCreated tells a patient their appointment was booked.
type BookingCreated struct {
	Recipient    Recipient
	Appointment  string
	Date         time.Time
	Professional string
}

func (e BookingCreated) Type() models.NotificationType { return models.NotificationEdit }
func (e BookingCreated) To() Recipient                 { return e.Recipient }
func (e BookingCreated) AppointmentID() string         { return e.Appointment }
func (e BookingCreated) Message() string {
	return fmt.Sprintf("✅ *Agendamento Confirmado*\n\n"+
		"Seu agendamento foi marcado com sucesso!\n\n"+
		"📅 *Data/Hora:* %s\n"+
		"👨‍⚕️ *Profissional:* %s\n\n"+
		"Lembre-se de comparecer no horário agendado.",
		formatDate(e.Date), orFallback(e.Professional, fallbackProfessional))
}
func (e BookingCreated) meta() map[string]string {
	return map[string]string{"data": formatDate(e.Date), "profissional": e.Professional}
}

// ProfessionalBooked tells a professional a new appointment landed on
// their agenda.
type ProfessionalBooked struct {
	Recipient   Recipient
	Appointment string
	Date        time.Time
	Patient     string
}

func (e ProfessionalBooked) Type() models.NotificationType { return models.NotificationEdit }
func (e ProfessionalBooked) To() Recipient                 { return e.Recipient }
func (e ProfessionalBooked) AppointmentID() string         { return e.Appointment }
func (e ProfessionalBooked) Message() string {
	return fmt.Sprintf("📅 *Novo Agendamento*\n\n"+
		"Você tem um novo agendamento:\n\n"+
		"📅 *Data/Hora:* %s\n"+
		"👤 *Paciente:* %s\n\n"+
		"Prepare-se para o atendimento.",
		formatDate(e.Date), orFallback(e.Patient, fallbackPatient))
}
func (e ProfessionalBooked) meta() map[string]string {
	return map[string]string{"data": formatDate(e.Date), "paciente": e.Patient}
}

// Rescheduled tells either party an appointment moved to a new time.
type Rescheduled struct {
	Recipient   Recipient
	Appointment string
	OldDate     time.Time
	NewDate     time.Time
}

func (e Rescheduled) Type() models.NotificationType { return models.NotificationEdit }
func (e Rescheduled) To() Recipient                 { return e.Recipient }
func (e Rescheduled) AppointmentID() string         { return e.Appointment }
func (e Rescheduled) Message() string {
	return fmt.Sprintf("🔄 *Agendamento Atualizado*\n\n"+
		"Seu agendamento foi alterado:\n\n"+
		"📅 *Data Anterior:* %s\n"+
		"📅 *Nova Data:* %s\n\n"+
		"Por favor, confirme sua presença na nova data.",
		formatDate(e.OldDate), formatDate(e.NewDate))
}
func (e Rescheduled) meta() map[string]string {
	return map[string]string{"dataAnterior": formatDate(e.OldDate), "dataNova": formatDate(e.NewDate)}
}

// Canceled tells a party an appointment was canceled.
type Canceled struct {
	Recipient   Recipient
	Appointment string
	Date        time.Time
}

func (e Canceled) Type() models.NotificationType { return models.NotificationCancellation }
func (e Canceled) To() Recipient                 { return e.Recipient }
func (e Canceled) AppointmentID() string         { return e.Appointment }
func (e Canceled) Message() string {
	return fmt.Sprintf("❌ *Agendamento Cancelado*\n\n"+
		"Seu agendamento do dia %s foi cancelado.\n\n"+
		"Se precisar reagendar, entre em contato conosco.",
		formatDate(e.Date))
}
func (e Canceled) meta() map[string]string {
	return map[string]string{"data": formatDate(e.Date)}
}

// PresenceConfirmed tells a patient the professional confirmed the visit.
type PresenceConfirmed struct {
	Recipient    Recipient
	Appointment  string
	Date         time.Time
	Professional string
}

func (e PresenceConfirmed) Type() models.NotificationType { return models.NotificationPresence }
func (e PresenceConfirmed) To() Recipient                 { return e.Recipient }
func (e PresenceConfirmed) AppointmentID() string         { return e.Appointment }
func (e PresenceConfirmed) Message() string {
	return fmt.Sprintf("✅ *Agendamento Confirmado*\n\n"+
		"Seu agendamento foi confirmado:\n\n"+
		"📅 *Data/Hora:* %s\n"+
		"👨‍⚕️ *Profissional:* %s\n\n"+
		"Aguardamos você no horário agendado!",
		formatDate(e.Date), orFallback(e.Professional, fallbackProfessional))
}
func (e PresenceConfirmed) meta() map[string]string {
	return map[string]string{"data": formatDate(e.Date), "profissional": e.Professional}
}

// VisitFinished tells a patient their visit was closed out.
type VisitFinished struct {
	Recipient    Recipient
	Appointment  string
	Professional string
	Notes        string
}

func (e VisitFinished) Type() models.NotificationType { return models.NotificationPostVisit }
func (e VisitFinished) To() Recipient                 { return e.Recipient }
func (e VisitFinished) AppointmentID() string         { return e.Appointment }
func (e VisitFinished) Message() string {
	msg := fmt.Sprintf("✅ *Atendimento Finalizado*\n\n"+
		"Seu atendimento com %s foi finalizado.\n\n",
		orFallback(e.Professional, fallbackProfessional))
	if e.Notes != "" {
		msg += fmt.Sprintf("📝 *Observações do Profissional:*\n%s\n\n", e.Notes)
	}
	return msg + "Avalie seu atendimento através do nosso sistema."
}
func (e VisitFinished) meta() map[string]string {
	return map[string]string{"profissional": e.Professional, "observacoes": e.Notes}
}

// Reminder nudges a patient about an upcoming confirmed appointment.
type Reminder struct {
	Recipient    Recipient
	Appointment  string
	Date         time.Time
	Professional string
}

func (e Reminder) Type() models.NotificationType { return models.NotificationReminder }
func (e Reminder) To() Recipient                 { return e.Recipient }
func (e Reminder) AppointmentID() string         { return e.Appointment }
func (e Reminder) Message() string {
	return fmt.Sprintf("⏰ *Lembrete de Agendamento*\n\n"+
		"Você tem um agendamento em breve:\n\n"+
		"📅 *Data/Hora:* %s\n"+
		"👨‍⚕️ *Profissional:* %s\n\n"+
		"Não se esqueça de comparecer!",
		formatDate(e.Date), orFallback(e.Professional, fallbackProfessional))
}
func (e Reminder) meta() map[string]string {
	return map[string]string{"data": formatDate(e.Date), "profissional": e.Professional}
}

// Custom carries explicit, already-rendered content. A blank body falls
// back to a generic message.
type Custom struct {
	Kind        models.NotificationType
	Recipient   Recipient
	Appointment string
	Body        string
}

func (e Custom) Type() models.NotificationType { return e.Kind }
func (e Custom) To() Recipient                 { return e.Recipient }
func (e Custom) AppointmentID() string         { return e.Appointment }
func (e Custom) Message() string               { return orFallback(e.Body, fallbackContent) }
func (e Custom) meta() map[string]string       { return map[string]string{} }

// NotificationService turns business events into delivered messages.
//
// Delivery is attempted exactly once per call and is best-effort: a
// gateway failure is recorded on the notification row, never returned.
// Only internal errors (database writes) propagate.
type NotificationService struct {
	DB     *gorm.DB
	Sender MessageSender
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(db *gorm.DB, sender MessageSender) *NotificationService {
	return &NotificationService{DB: db, Sender: sender}
}

// Dispatch renders an event, persists a notification row and attempts
// delivery. A recipient without a phone number is a silent no-op.
func (s *NotificationService) Dispatch(event Event) error {
	recipient := event.To()
	if recipient.Phone == "" {
		log.Printf("notification: user %s has no registered phone, skipping", recipient.Name)
		return nil
	}

	message := event.Message()

	metaJSON, err := json.Marshal(event.meta())
	if err != nil {
		return fmt.Errorf("failed to encode notification meta: %w", err)
	}

	notification := models.Notification{
		Type:          event.Type(),
		Channel:       models.ChannelWhatsApp,
		RecipientID:   recipient.UserID,
		RecipientRole: recipient.Role,
		Content:       message,
		Meta:          string(metaJSON),
		Status:        models.NotificationCreated,
	}
	if id := event.AppointmentID(); id != "" {
		notification.AppointmentID = &id
	}
	if err := s.DB.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}

	result := s.Sender.SendText(recipient.Phone, message)

	if result.Success {
		notification.Status = models.NotificationSent
		if err := s.DB.Save(&notification).Error; err != nil {
			return fmt.Errorf("failed to mark notification sent: %w", err)
		}
		log.Printf("notification: delivered to %s", recipient.Name)
		return nil
	}

	notification.Status = models.NotificationFailed
	notification.ErrorDetail = orFallback(result.Error, fallbackError)
	if err := s.DB.Save(&notification).Error; err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	log.Printf("notification: delivery to %s failed: %s", recipient.Name, notification.ErrorDetail)
	return nil
}

// DispatchReminders sends a reminder for every CONFIRMED appointment in
// the next 24 hours that does not already have a SENT reminder.
// Re-running it is safe: the existing-SENT check makes it idempotent
// per appointment. Meant to be triggered periodically.
func (s *NotificationService) DispatchReminders() error {
	now := time.Now()
	in24Hours := now.Add(24 * time.Hour)

	var appointments []models.Appointment
	err := s.DB.
		Preload("Patient").
		Preload("Professional.User").
		Where("status = ? AND date >= ? AND date <= ?", models.StatusConfirmed, now, in24Hours).
		Find(&appointments).Error
	if err != nil {
		return fmt.Errorf("failed to load upcoming appointments: %w", err)
	}

	for _, appointment := range appointments {
		var existing models.Notification
		err := s.DB.Where("appointment_id = ? AND type = ? AND status = ?",
			appointment.ID, models.NotificationReminder, models.NotificationSent).
			First(&existing).Error
		if err == nil {
			continue // reminder already delivered
		}
		if err != gorm.ErrRecordNotFound {
			log.Printf("notification: failed to check reminder for appointment %s: %v", appointment.ID, err)
			continue
		}

		if appointment.Patient == nil || appointment.Patient.Phone == "" {
			continue
		}

		professionalName := ""
		if appointment.Professional != nil && appointment.Professional.User != nil {
			professionalName = appointment.Professional.User.Name
		}

		reminder := Reminder{
			Recipient: Recipient{
				UserID: appointment.PatientID,
				Role:   appointment.Patient.Role,
				Name:   appointment.Patient.Name,
				Phone:  appointment.Patient.Phone,
			},
			Appointment:  appointment.ID,
			Date:         appointment.Date,
			Professional: professionalName,
		}
		if err := s.Dispatch(reminder); err != nil {
			log.Printf("notification: failed to dispatch reminder for appointment %s: %v", appointment.ID, err)
		}
	}

	return nil
}

// ListForRecipient returns the notification log for one user, newest first.
func (s *NotificationService) ListForRecipient(userID string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.DB.Where("recipient_id = ?", userID).
		Order("created_at desc").
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}
