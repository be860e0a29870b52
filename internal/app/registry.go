package app

import (
	"database/sql"

	"go-leave/internal/approval"
	"go-leave/internal/authz"
	"go-leave/internal/company"
	"go-leave/internal/employee"
	"go-leave/internal/leave"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/notification"
	"go-leave/internal/policy"
	"go-leave/internal/shared/clock"
	"go-leave/internal/shared/counter"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// buildLeaveService wires the full approval pipeline. Shared between the API
// process and the SLA sweeper so both enforce identical semantics.
func buildLeaveService(db *sql.DB, gormDB *gorm.DB, rdb *redis.Client) (leave.Service, error) {
	authzProvider, err := authz.NewProvider(authz.NewRepository(gormDB))
	if err != nil {
		return nil, err
	}

	leaveRepo := leave.NewRepository(gormDB, db)
	loader := policy.NewLoader(policy.NewRepository(gormDB), rdb)

	return leave.NewService(leave.Deps{
		DB:        db,
		Repo:      leaveRepo,
		Employees: employee.NewRepository(gormDB),
		Companies: company.NewRepository(gormDB),
		Policies:  loader,
		Evaluator: policy.NewEvaluator(leaveRepo, clock.System()),
		Resolver:  approval.NewResolver(approval.NewStore(gormDB)),
		Authz:     authzProvider,
		Counter:   counter.NewRepository(gormDB),
		Sink:      notification.NewOutboxSink(kafka.NewOutboxRepository(db)),
	}), nil
}

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	// --- Repositories ---
	companyRepo := company.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	policyRepo := policy.NewRepository(gormDB)
	counterRepo := counter.NewRepository(gormDB)

	// --- Authorization ---
	authzProvider, err := authz.NewProvider(authz.NewRepository(gormDB))
	if err != nil {
		return err
	}

	// --- Services ---
	loader := policy.NewLoader(policyRepo, rdb)
	companyService := company.NewService(companyRepo)
	employeeService := employee.NewService(employeeRepo, counterRepo)
	policyService := policy.NewService(policyRepo, loader)
	leaveService, err := buildLeaveService(db, gormDB, rdb)
	if err != nil {
		return err
	}

	// --- Handlers ---
	companyHandler := company.NewHandler(companyService)
	employeeHandler := employee.NewHandler(employeeService)
	policyHandler := policy.NewHandler(policyService)
	leaveHandler := leave.NewHandler(leaveService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		company.RegisterRoutes(api, companyHandler, authzProvider)
		employee.RegisterRoutes(api, employeeHandler, authzProvider)
		policy.RegisterRoutes(api, policyHandler, authzProvider)
		leave.RegisterRoutes(api, leaveHandler, rdb)
	}

	return nil
}
