package models

// NotificationType distinguishes the business events that produce a message.
type NotificationType string

const (
	NotificationReminder     NotificationType = "REMINDER"
	NotificationCancellation NotificationType = "CANCELLATION"
	NotificationEdit         NotificationType = "EDIT"
	NotificationPostVisit    NotificationType = "POST_VISIT"
	NotificationPresence     NotificationType = "PRESENCE_CONFIRMATION"
)

// NotificationStatus tracks delivery: rows start CREATED and move to
// SENT or FAILED once the gateway call returns.
type NotificationStatus string

const (
	NotificationCreated NotificationStatus = "CREATED"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
)

// ChannelWhatsApp is the only delivery channel in use.
const ChannelWhatsApp = "WHATSAPP"

// Notification is the persisted log of one delivery attempt.
// The appointment reference is nullable: not every notification is tied
// to an appointment, and the log outlives hard-deleted appointments.
type Notification struct {
	BaseModel
	Type          NotificationType   `gorm:"size:30;not null" json:"type"`
	Channel       string             `gorm:"size:20;default:'WHATSAPP'" json:"channel"`
	RecipientID   string             `gorm:"size:36;index" json:"recipientId"`
	RecipientRole Role               `gorm:"size:20" json:"recipientRole"`
	Content       string             `gorm:"type:text" json:"content"`
	Meta          string             `gorm:"type:text" json:"meta,omitempty"`
	Status        NotificationStatus `gorm:"size:20;default:'CREATED'" json:"status"`
	ErrorDetail   string             `gorm:"type:text" json:"errorDetail,omitempty"`
	AppointmentID *string            `gorm:"size:36;index" json:"appointmentId,omitempty"`

	Recipient   *User        `gorm:"foreignKey:RecipientID" json:"-"`
	Appointment *Appointment `gorm:"foreignKey:AppointmentID;constraint:OnDelete:SET NULL" json:"-"`
}
