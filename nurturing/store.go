package nurturing

import (
	"fmt"

	"leadflow/models"

	"gorm.io/gorm"
)

// GormStore is the database-backed Store used in production.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (gs *GormStore) ActiveSequences() ([]models.Sequence, error) {
	var sequences []models.Sequence
	err := gs.DB.Where("is_active = ?", true).Order("id").Find(&sequences).Error
	return sequences, err
}

func (gs *GormStore) Enrollments() ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := gs.DB.Order("id").Find(&enrollments).Error
	return enrollments, err
}

func (gs *GormStore) RecentLeads(limit int) ([]models.Lead, error) {
	var leads []models.Lead
	err := gs.DB.Order("created_at DESC").Limit(limit).Find(&leads).Error
	return leads, err
}

func (gs *GormStore) RecentAppointments(limit int) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := gs.DB.Order("appointment_at DESC").Limit(limit).Find(&appointments).Error
	return appointments, err
}

func (gs *GormStore) RecentContacts(limit int) ([]models.Contact, error) {
	var contacts []models.Contact
	err := gs.DB.Order("created_at DESC").Limit(limit).Find(&contacts).Error
	return contacts, err
}

func (gs *GormStore) CreateEnrollment(enrollment *models.Enrollment) error {
	return gs.DB.Create(enrollment).Error
}

func (gs *GormStore) SaveEnrollment(enrollment *models.Enrollment) error {
	return gs.DB.Save(enrollment).Error
}

func (gs *GormStore) SetLeadNurturing(leadID uint, sequenceID *uint, status string) error {
	return gs.DB.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]interface{}{
			"nurturing_sequence_id": sequenceID,
			"nurturing_status":      status,
		}).Error
}

// IncrementSequenceCounter bumps one of the denormalized sequence counters
// with a single SQL expression, so concurrent writers cannot lose updates.
func (gs *GormStore) IncrementSequenceCounter(sequenceID uint, counter string) error {
	switch counter {
	case CounterEnrolled, CounterExited, CounterCompleted:
	default:
		return fmt.Errorf("unknown sequence counter %q", counter)
	}
	return gs.DB.Model(&models.Sequence{}).
		Where("id = ?", sequenceID).
		UpdateColumn(counter, gorm.Expr(counter+" + ?", 1)).
		Error
}

func (gs *GormStore) CreateCommunicationLog(entry *models.CommunicationLog) error {
	return gs.DB.Create(entry).Error
}

func (gs *GormStore) CreateTask(task *models.Task) error {
	return gs.DB.Create(task).Error
}

func (gs *GormStore) CreateNotification(notification *models.Notification) error {
	return gs.DB.Create(notification).Error
}

func (gs *GormStore) CreateRun(run *models.NurtureRun) error {
	return gs.DB.Create(run).Error
}
