package routes

import (
	"log"
	"os"

	controller "leadflow/controllers"
	"leadflow/nurturing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, engine *nurturing.Engine, lock nurturing.RunLock) {
	apiLogger := log.New(os.Stdout, "API: ", log.Ldate|log.Ltime|log.Lshortfile)

	requestLogger := logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	})

	sequenceController := controller.NewSequenceController(db, apiLogger)
	sequences := app.Group("/sequences", requestLogger)
	sequences.Post("/", sequenceController.CreateSequence)
	sequences.Get("/", sequenceController.ListSequences)
	sequences.Get("/:id", sequenceController.GetSequence)
	sequences.Put("/:id", sequenceController.UpdateSequence)
	sequences.Post("/:id/activate", sequenceController.SetSequenceActive(true))
	sequences.Post("/:id/deactivate", sequenceController.SetSequenceActive(false))
	sequences.Delete("/:id", sequenceController.DeleteSequence)

	nurturingController := controller.NewNurturingController(db, engine, lock, apiLogger)
	nurture := app.Group("/nurturing", requestLogger)
	nurture.Post("/run", nurturingController.RunNow)
	nurture.Get("/stats", nurturingController.GetStats)
	nurture.Get("/enrollments", nurturingController.ListEnrollments)

	apiLogger.Println("Routes initialized successfully")
}
