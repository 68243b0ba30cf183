package controller

import (
	"fmt"
	"log"

	"leadflow/models"
	"leadflow/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SequenceController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewSequenceController(db *gorm.DB, logger *log.Logger) *SequenceController {
	return &SequenceController{
		DB:     db,
		Logger: logger,
	}
}

type sequenceInput struct {
	Name              string                   `json:"name" validate:"required,min=1,max=200"`
	Description       string                   `json:"description"`
	TriggerType       string                   `json:"trigger_type" validate:"required,oneof=manual new_lead no_contact inactivity status_change"`
	TriggerConditions models.TriggerConditions `json:"trigger_conditions"`
	ExitConditions    models.ExitConditions    `json:"exit_conditions"`
	Steps             []models.SequenceStep    `json:"steps" validate:"dive"`
	IsActive          bool                     `json:"is_active"`
}

// CreateSequence creates a new nurturing sequence template
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	var input sequenceInput
	if err := c.BodyParser(&input); err != nil {
		sc.Logger.Printf("Error parsing request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := validateSteps(input.Steps); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sequence := models.Sequence{
		Name:              input.Name,
		Description:       input.Description,
		TriggerType:       input.TriggerType,
		TriggerConditions: input.TriggerConditions,
		ExitConditions:    input.ExitConditions,
		Steps:             input.Steps,
		IsActive:          input.IsActive,
	}

	if err := sc.DB.Create(&sequence).Error; err != nil {
		sc.Logger.Printf("Failed to create sequence: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create sequence",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(sequence)
}

// ListSequences returns all sequences
func (sc *SequenceController) ListSequences(c *fiber.Ctx) error {
	var sequences []models.Sequence
	query := sc.DB.Order("id")
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&sequences).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list sequences",
		})
	}
	return c.JSON(fiber.Map{"sequences": sequences})
}

// GetSequence returns a single sequence by id
func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.First(&sequence, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}
	return c.JSON(sequence)
}

// UpdateSequence replaces the sequence definition
func (sc *SequenceController) UpdateSequence(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.First(&sequence, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	var input sequenceInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := validateSteps(input.Steps); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sequence.Name = input.Name
	sequence.Description = input.Description
	sequence.TriggerType = input.TriggerType
	sequence.TriggerConditions = input.TriggerConditions
	sequence.ExitConditions = input.ExitConditions
	sequence.Steps = input.Steps
	sequence.IsActive = input.IsActive

	if err := sc.DB.Save(&sequence).Error; err != nil {
		sc.Logger.Printf("Failed to update sequence %d: %v", sequence.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update sequence",
		})
	}

	return c.JSON(sequence)
}

// SetSequenceActive flips the is_active flag
func (sc *SequenceController) SetSequenceActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sequence models.Sequence
		if err := sc.DB.First(&sequence, c.Params("id")).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Sequence not found",
			})
		}
		if err := sc.DB.Model(&sequence).Update("is_active", active).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update sequence",
			})
		}
		return c.JSON(fiber.Map{"id": sequence.ID, "is_active": active})
	}
}

// DeleteSequence removes a sequence template
func (sc *SequenceController) DeleteSequence(c *fiber.Ctx) error {
	var sequence models.Sequence
	if err := sc.DB.First(&sequence, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	var activeCount int64
	sc.DB.Model(&models.Enrollment{}).
		Where("sequence_id = ? AND status = ?", sequence.ID, models.NurturingActive).
		Count(&activeCount)
	if activeCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Sequence has active enrollments",
		})
	}

	if err := sc.DB.Delete(&sequence).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete sequence",
		})
	}
	return c.JSON(fiber.Map{"message": "Sequence deleted"})
}

func validateSteps(steps []models.SequenceStep) error {
	for i, step := range steps {
		switch step.ActionType {
		case models.ActionEmail, models.ActionTask, models.ActionNotification:
		default:
			return fmt.Errorf("step %d: unknown action type %q", i, step.ActionType)
		}
		if step.DelayDays < 0 || step.DelayHours < 0 {
			return fmt.Errorf("step %d: negative delay", i)
		}
	}
	return nil
}
