package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amontesdeoca/equiptrack-backend/api/controllers"
	"github.com/amontesdeoca/equiptrack-backend/api/middleware"
	"github.com/amontesdeoca/equiptrack-backend/internal/assignments"
	"github.com/amontesdeoca/equiptrack-backend/internal/feedback"
	"github.com/amontesdeoca/equiptrack-backend/internal/inventory"
	"github.com/amontesdeoca/equiptrack-backend/internal/requests"
	"github.com/amontesdeoca/equiptrack-backend/internal/staff"
	"github.com/amontesdeoca/equiptrack-backend/pkg/config"
	"github.com/amontesdeoca/equiptrack-backend/pkg/db"
	"github.com/amontesdeoca/equiptrack-backend/pkg/logger"
	"github.com/amontesdeoca/equiptrack-backend/pkg/metrics"
	"github.com/amontesdeoca/equiptrack-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	inventoryService inventory.Service,
	assignmentsService assignments.Service,
	requestsService requests.Service,
	staffService staff.Service,
	feedbackService feedback.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.HealthDeps(dbP, redisClient)))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/items", controllers.ItemCreate(inventoryService, logg))
		r.Get("/items", controllers.ItemList(inventoryService, logg))
		r.Get("/items/{itemId}", controllers.ItemDetail(inventoryService, logg))
		r.Patch("/items/{itemId}", controllers.ItemUpdate(inventoryService, logg))
		r.Post("/items/{itemId}/restock", controllers.ItemRestock(inventoryService, logg))
		r.Get("/items/{itemId}/assignments", controllers.AssignmentsByItem(assignmentsService, logg))
		r.Delete("/items/{itemId}", controllers.ItemDelete(inventoryService, logg))

		r.Post("/assignments", controllers.AssignmentCreate(assignmentsService, logg))
		r.Get("/assignments", controllers.AssignmentsByStaff(assignmentsService, logg))
		r.Get("/assignments/{assignmentId}", controllers.AssignmentDetail(assignmentsService, logg))
		r.Post("/assignments/{assignmentId}/return", controllers.AssignmentReturn(assignmentsService, logg))

		r.Post("/requests", controllers.RequestCreate(requestsService, logg))
		r.Get("/requests", controllers.RequestList(requestsService, logg))
		r.Get("/requests/{requestId}", controllers.RequestDetail(requestsService, logg))
		r.Post("/requests/{requestId}/approve", controllers.RequestApprove(requestsService, logg))
		r.Post("/requests/{requestId}/reject", controllers.RequestReject(requestsService, logg))

		r.Post("/staff", controllers.StaffCreate(staffService, logg))
		r.Get("/staff", controllers.StaffList(staffService, logg))
		r.Get("/staff/{staffId}", controllers.StaffDetail(staffService, logg))

		r.Post("/feedback", controllers.FeedbackCreate(feedbackService, logg))
		r.Get("/feedback", controllers.FeedbackList(feedbackService, logg))
	})

	return r
}
