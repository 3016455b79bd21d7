package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clinic-agenda-server/internal/models"
)

// newTestDB opens a fresh in-memory database with the full schema.
// Foreign keys are enforced so referential behavior matches MySQL; the
// unique shared-cache name keeps every pooled connection on the same
// database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

// fakeSender records outbound messages and answers with a canned result.
type fakeSender struct {
	result SendResult
	calls  []fakeCall
}

type fakeCall struct {
	Phone   string
	Message string
}

func (f *fakeSender) SendText(phone, message string) SendResult {
	f.calls = append(f.calls, fakeCall{Phone: phone, Message: message})
	return f.result
}

func okSender() *fakeSender {
	return &fakeSender{result: SendResult{Success: true, MessageID: "MSG1"}}
}

func failingSender(errMsg string) *fakeSender {
	return &fakeSender{result: SendResult{Success: false, Error: errMsg}}
}

// seedClinic creates a patient, a specialty and a professional with its
// owning user, all with phone numbers.
func seedClinic(t *testing.T, db *gorm.DB) (patient models.User, professional models.Professional) {
	t.Helper()

	patient = models.User{
		Name:  "Maria Souza",
		Email: "maria@example.com",
		Role:  models.RolePatient,
		Phone: "11988880001",
	}
	require.NoError(t, patient.SetPassword("supersecret"))
	require.NoError(t, db.Create(&patient).Error)

	specialty := models.Specialty{Name: "Cardiologia"}
	require.NoError(t, db.Create(&specialty).Error)

	professionalUser := models.User{
		Name:  "Dr. João Lima",
		Email: "joao@example.com",
		Role:  models.RoleProfessional,
		Phone: "11988880002",
	}
	require.NoError(t, professionalUser.SetPassword("supersecret"))
	require.NoError(t, db.Create(&professionalUser).Error)

	professional = models.Professional{
		UserID:      professionalUser.ID,
		SpecialtyID: specialty.ID,
		WorkingDays: "MON,TUE,WED,THU,FRI",
		StartHour:   "08:00",
		EndHour:     "18:00",
	}
	require.NoError(t, db.Create(&professional).Error)

	return patient, professional
}

// futureDate returns a deterministic slot comfortably in the future.
func futureDate(days int) time.Time {
	return time.Now().Add(time.Duration(days) * 24 * time.Hour).Truncate(time.Minute)
}
