package controller

import (
	"log"

	"leadflow/models"
	"leadflow/nurturing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type NurturingController struct {
	DB     *gorm.DB
	Engine *nurturing.Engine
	Lock   nurturing.RunLock
	Logger *log.Logger
}

func NewNurturingController(db *gorm.DB, engine *nurturing.Engine, lock nurturing.RunLock, logger *log.Logger) *NurturingController {
	return &NurturingController{
		DB:     db,
		Engine: engine,
		Lock:   lock,
		Logger: logger,
	}
}

// RunNow triggers a nurturing cycle outside the worker schedule and
// returns the run report.
func (nc *NurturingController) RunNow(c *fiber.Ctx) error {
	ctx := c.UserContext()
	acquired, err := nc.Lock.Acquire(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to acquire run lock",
		})
	}
	if !acquired {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A nurture run is already in progress",
		})
	}
	defer nc.Lock.Release(ctx)

	report := nc.Engine.Run(ctx)

	logrus.WithFields(logrus.Fields{
		"processed":           report.Processed,
		"enrollments_created": report.EnrollmentsCreated,
		"emails_sent":         report.EmailsSent,
		"tasks_created":       report.TasksCreated,
		"exits":               report.Exits,
		"errors":              len(report.Errors),
		"success":             report.Success,
	}).Info("Manual nurture run finished")

	status := fiber.StatusOK
	if !report.Success {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(report)
}

// GetStats aggregates sequence counters and the recent run history
func (nc *NurturingController) GetStats(c *fiber.Ctx) error {
	type totals struct {
		Sequences      int64 `json:"sequences"`
		ActiveSeqs     int64 `json:"active_sequences"`
		Active         int64 `json:"active_enrollments"`
		TotalEnrolled  int64 `json:"total_enrolled"`
		TotalExited    int64 `json:"total_exited"`
		TotalCompleted int64 `json:"total_completed"`
	}
	var t totals

	nc.DB.Model(&models.Sequence{}).Count(&t.Sequences)
	nc.DB.Model(&models.Sequence{}).Where("is_active = ?", true).Count(&t.ActiveSeqs)
	nc.DB.Model(&models.Enrollment{}).Where("status = ?", models.NurturingActive).Count(&t.Active)

	row := nc.DB.Model(&models.Sequence{}).
		Select("COALESCE(SUM(total_enrolled),0), COALESCE(SUM(total_exited),0), COALESCE(SUM(total_completed),0)").
		Row()
	if err := row.Scan(&t.TotalEnrolled, &t.TotalExited, &t.TotalCompleted); err != nil {
		nc.Logger.Printf("Failed to aggregate sequence counters: %v", err)
	}

	var runs []models.NurtureRun
	nc.DB.Order("id DESC").Limit(20).Find(&runs)

	return c.JSON(fiber.Map{
		"totals":      t,
		"recent_runs": runs,
	})
}

// ListEnrollments returns enrollments, optionally filtered by lead,
// sequence or status
func (nc *NurturingController) ListEnrollments(c *fiber.Ctx) error {
	query := nc.DB.Order("id DESC").Limit(200)
	if leadID := c.Query("lead_id"); leadID != "" {
		query = query.Where("lead_id = ?", leadID)
	}
	if sequenceID := c.Query("sequence_id"); sequenceID != "" {
		query = query.Where("sequence_id = ?", sequenceID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var enrollments []models.Enrollment
	if err := query.Find(&enrollments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list enrollments",
		})
	}
	return c.JSON(fiber.Map{"enrollments": enrollments})
}
