package router

import (
	"context"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/config"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/handler"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/middleware"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/progress"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/rbac"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/service"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// Deps are the infrastructure handles built by the composition root.
type Deps struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Files      infra.FileStore
	Progress   progress.Store
	Dispatcher *worker.Dispatcher // nil disables async generation and complaint receipts
	MailCB     *infra.CircuitBreaker
}

// Services holds every service plus the repositories the workers need.
type Services struct {
	Auth           service.AuthService
	Roles          service.RoleService
	Productions    service.ProductionService
	Generator      *service.Generator
	Generation     service.GenerationService
	Tokens         service.TokenImportService
	Verification   service.VerificationService
	Complaints     service.ComplaintService
	Investigations service.InvestigationService
	Reference      service.ReferenceService
	Export         service.ExportService

	ComplaintRepo repository.ComplaintRepository
	CompanyRepo   repository.CompanyRepository
	UserRepo      repository.UserRepository
}

// NewServices wires repositories and services.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func NewServices(cfg *config.Config, deps Deps) *Services {
	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(deps.DB)
	roleRepo := repository.NewRoleRepository(deps.DB)
	productionRepo := repository.NewProductionRepository(deps.DB)
	registerRepo := repository.NewRegisterRepository(deps.DB)
	complaintRepo := repository.NewComplaintRepository(deps.DB)
	investigationRepo := repository.NewInvestigationRepository(deps.DB)
	companyRepo := repository.NewCompanyRepository(deps.DB)
	provinceRepo := repository.NewProvinceRepository(deps.DB)

	// A nil *Dispatcher must not end up inside a non-nil interface.
	var genQueue service.GenerationQueue
	var ackQueue service.ComplaintQueue
	if deps.Dispatcher != nil {
		genQueue = deps.Dispatcher
		ackQueue = deps.Dispatcher
	}

	// ── Services ─────────────────────────────────────────────────────────────
	roleSvc := service.NewRoleService(roleRepo, deps.Redis)
	verifyCache := service.NewRedisVerifyCache(deps.Redis)
	generator := service.NewGenerator(registerRepo, productionRepo, deps.Progress, verifyCache)

	return &Services{
		Auth:           service.NewAuthService(userRepo, roleSvc, cfg),
		Roles:          roleSvc,
		Productions:    service.NewProductionService(productionRepo, registerRepo, verifyCache),
		Generator:      generator,
		Generation:     service.NewGenerationService(productionRepo, generator, deps.Progress, genQueue, cfg.PollInterval()),
		Tokens:         service.NewTokenImportService(productionRepo),
		Verification:   service.NewVerificationService(registerRepo, productionRepo, verifyCache, cfg.VerifyBaseURL),
		Complaints:     service.NewComplaintService(complaintRepo, productionRepo, deps.Files, ackQueue, deps.Redis),
		Investigations: service.NewInvestigationService(investigationRepo, complaintRepo, deps.Files),
		Reference:      service.NewReferenceService(companyRepo, provinceRepo),
		Export:         service.NewExportService(productionRepo),

		ComplaintRepo: complaintRepo,
		CompanyRepo:   companyRepo,
		UserRepo:      userRepo,
	}
}

// New returns a configured Gin engine. ctx bounds the rate limiter purge goroutines.
func New(ctx context.Context, cfg *config.Config, deps Deps, svcs *Services) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	apiLimiter := middleware.NewRateLimiter("api", cfg.RateLimit, time.Minute, "")
	publicLimiter := middleware.NewRateLimiter("public", 60, time.Minute, "")
	loginLimiter := middleware.LoginRateLimiter()
	for _, l := range []*middleware.RateLimiter{apiLimiter, publicLimiter, loginLimiter} {
		go l.Run(ctx, 5*time.Minute)
	}

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(otelgin.Middleware(infra.ServiceName))
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Handler())

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svcs.Auth)
	usersH := handler.NewUsersHandler(svcs.Auth)
	rolesH := handler.NewRolesHandler(svcs.Roles)
	productionsH := handler.NewProductionsHandler(svcs.Productions, svcs.Export)
	generationH := handler.NewGenerationHandler(svcs.Generation, svcs.Tokens)
	verifyH := handler.NewVerifyHandler(svcs.Verification)
	complaintsH := handler.NewComplaintsHandler(svcs.Complaints, svcs.Investigations)
	referenceH := handler.NewReferenceHandler(svcs.Reference)

	perm := func(p string) gin.HandlerFunc { return middleware.RequirePermission(svcs.Roles, p) }

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(deps.DB, deps.Redis, deps.MailCB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", loginLimiter.Handler(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Verification and complaint intake: no auth, tighter rate limit
	public := r.Group("/v1/public", publicLimiter.Handler())
	{
		public.GET("/verify/:serial", verifyH.Verify)
		public.POST("/complaints", complaintsH.Submit)
		public.GET("/complaints/:number", complaintsH.Track)
		public.POST("/complaints/:number/attachments", complaintsH.AddAttachments)
		public.GET("/provinces", referenceH.ListProvinces)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		v1.GET("/auth/me", authH.Me)
		v1.GET("/me/permissions", rolesH.Permissions)

		prods := v1.Group("/productions")
		{
			prods.GET("", perm(rbac.ProductionsView), productionsH.List)
			prods.GET("/export", perm(rbac.ExportsDownload), productionsH.Export)
			prods.POST("", perm(rbac.ProductionsManage), productionsH.Create)
			prods.GET("/:id", perm(rbac.ProductionsView), productionsH.Get)
			prods.PUT("/:id", perm(rbac.ProductionsManage), productionsH.Update)
			prods.DELETE("/:id", perm(rbac.ProductionsManage), productionsH.Delete)
			prods.GET("/:id/register-range", perm(rbac.RegistersView), productionsH.RegisterRange)
			prods.GET("/:id/registers", perm(rbac.RegistersView), productionsH.Registers)
		}

		regs := v1.Group("/registers")
		{
			regs.POST("/generate", perm(rbac.RegistersGenerate), generationH.Generate)
			regs.POST("/generate/async", perm(rbac.RegistersGenerate), generationH.Enqueue)
			regs.POST("/generate/bulk", perm(rbac.RegistersGenerate), generationH.Bulk)
			regs.POST("/tokens/preview", perm(rbac.RegistersGenerate), generationH.PreviewTokens)
			regs.GET("/progress/:job_id", perm(rbac.RegistersView), generationH.Progress)
		}

		complaints := v1.Group("/complaints")
		{
			complaints.GET("", perm(rbac.ComplaintsView), complaintsH.List)
			complaints.GET("/:id", perm(rbac.ComplaintsView), complaintsH.Get)
			complaints.PATCH("/:id/assign", perm(rbac.ComplaintsManage), complaintsH.Assign)
			complaints.PATCH("/:id/status", perm(rbac.ComplaintsManage), complaintsH.Transition)
			complaints.DELETE("/:id", perm(rbac.ComplaintsDelete), complaintsH.Delete)

			complaints.GET("/:id/investigation", perm(rbac.ComplaintsView), complaintsH.GetInvestigation)
			inv := complaints.Group("/:id/investigation", perm(rbac.InvestigationsManage))
			{
				inv.POST("", complaintsH.OpenInvestigation)
				inv.PUT("", complaintsH.UpdateInvestigation)
				inv.POST("/complete", complaintsH.CompleteInvestigation)
				inv.POST("/evidence", complaintsH.AddEvidence)
			}
		}

		users := v1.Group("/users", perm(rbac.UsersManage))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Deactivate)
			users.PATCH("/:id/reactivate", usersH.Reactivate)
		}

		roles := v1.Group("/roles", perm(rbac.RolesManage))
		{
			roles.GET("", rolesH.List)
			roles.POST("", rolesH.Create)
			roles.PUT("/:name/permissions", rolesH.UpdatePermissions)
		}

		v1.GET("/companies", referenceH.ListCompanies)
		companies := v1.Group("/companies", perm(rbac.ReferenceManage))
		{
			companies.POST("", referenceH.CreateCompany)
			companies.PUT("/:id", referenceH.UpdateCompany)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
