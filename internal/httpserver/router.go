package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pipecrm/internal/auth"
	"pipecrm/internal/config"
	"pipecrm/internal/httpserver/handlers"
	"pipecrm/internal/store"
)

func NewRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, lg *zap.SugaredLogger) http.Handler {
	users := store.NewUserStore(db)
	tokens := store.NewTokenStore(db)
	clients := store.NewClientStore(db)
	deals := store.NewDealStore(db)
	notes := store.NewNoteStore(db)
	audits := store.NewAuditStore(db, lg)

	svc := auth.NewService(users, tokens, audits, cfg, lg)
	gate := auth.NewGate(users, cfg.JWTSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	r.Route("/v1/auth", func(ar chi.Router) {
		ar.Use(RateLimit(rdb, cfg.LoginRateCapacity, cfg.LoginRateRefill, lg))
		ar.Post("/register", handlers.Register(users, svc, lg))
		ar.Post("/login", handlers.Login(svc, lg))
		ar.Post("/logout", handlers.Logout(svc))
		ar.Post("/refresh-tokens", handlers.RefreshTokens(svc))
		ar.Post("/forgot-password", handlers.ForgotPassword(svc, lg))
		ar.Post("/reset-password", handlers.ResetPassword(svc))
		ar.With(gate.Require()).Post("/send-verification-email", handlers.SendVerificationEmail(svc, lg))
		ar.Post("/verify-email", handlers.VerifyEmail(svc))
	})

	r.Route("/v1/users", func(ur chi.Router) {
		ur.With(gate.Require("editarUsuarios")).Post("/", handlers.CreateUser(users, lg))
		ur.With(gate.Require("lerUsuarios")).Get("/", handlers.ListUsers(users, lg))
		// {userID} routes carry the self-access override: a user may
		// read, edit and delete their own record without admin rights.
		ur.With(gate.RequireSelfOr("userID", "lerUsuarios")).Get("/{userID}", handlers.GetUser(users))
		ur.With(gate.RequireSelfOr("userID", "editarUsuarios")).Patch("/{userID}", handlers.UpdateUser(users, lg))
		ur.With(gate.RequireSelfOr("userID", "editarUsuarios")).Delete("/{userID}", handlers.DeleteUser(users, lg))
	})

	r.Route("/v1/clients", func(cr chi.Router) {
		cr.With(gate.Require("manageClients")).Post("/", handlers.CreateClient(clients, lg))
		cr.With(gate.Require("getClients")).Get("/", handlers.ListClients(clients, lg))
		cr.With(gate.Require("getClients")).Get("/{id}", handlers.GetClient(clients))
		cr.With(gate.Require("manageClients")).Patch("/{id}", handlers.UpdateClient(clients, lg))
		cr.With(gate.Require("manageClients")).Delete("/{id}", handlers.DeleteClient(clients, lg))
	})

	r.Route("/v1/deals", func(dr chi.Router) {
		dr.With(gate.Require("manageDeals")).Post("/", handlers.CreateDeal(deals, lg))
		dr.With(gate.Require("getDeals")).Get("/", handlers.ListDeals(deals, lg))
		dr.With(gate.Require("getDeals")).Get("/{id}", handlers.GetDeal(deals))
		dr.With(gate.Require("manageDeals")).Patch("/{id}", handlers.UpdateDeal(deals, lg))
		dr.With(gate.Require("manageDeals")).Delete("/{id}", handlers.DeleteDeal(deals, lg))
	})

	r.Route("/v1/notes", func(nr chi.Router) {
		nr.With(gate.Require("manageNotes")).Post("/", handlers.CreateNote(notes, lg))
		nr.With(gate.Require("getNotes")).Get("/", handlers.ListNotes(notes, lg))
		nr.With(gate.Require("getNotes")).Get("/{id}", handlers.GetNote(notes))
		nr.With(gate.Require("manageNotes")).Patch("/{id}", handlers.UpdateNote(notes, lg))
		nr.With(gate.Require("manageNotes")).Delete("/{id}", handlers.DeleteNote(notes, lg))
	})

	r.With(gate.Require()).Get("/v1/logs", handlers.MyLogs(audits, lg))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
