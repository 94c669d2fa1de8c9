package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/responder"
	"github.com/sells-group/outreach-cli/internal/store"
)

var servePort int

const maxRequestBytes = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reply processing API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		a := &api{
			classifier: env.Classifier,
			qualifier:  env.Qualifier,
			pipeline:   env.Pipeline,
			store:      env.Store,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(a, cfg.Auth, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Bool("auth", cfg.Auth.JWTSecret != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// api serves classification, qualification and reply processing over HTTP.
// A nil pipeline or store disables the routes that need it.
type api struct {
	classifier *classify.Classifier
	qualifier  *qualify.Qualifier
	pipeline   *pipeline.Pipeline
	store      store.Store
}

// buildRouter wires routes, CORS and bearer auth. /health is always public.
func buildRouter(a *api, auth config.AuthConfig, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(bearerAuth(auth))
		r.Post("/classify", a.handleClassify)
		r.Post("/qualify", a.handleQualify)
		r.Post("/replies", a.handleReply)
		r.Get("/leads", a.handleListLeads)
		r.Get("/leads/{email}", a.handleGetLead)
		r.Get("/stats", a.handleStats)
	})
	return r
}

// bearerAuth requires an HS256 token signed with auth.JWTSecret and, when
// set, issued by auth.Issuer. An empty secret disables the check.
func bearerAuth(auth config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if auth.JWTSecret == "" {
			return next
		}
		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
		if auth.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(auth.Issuer))
		}
		parser := jwt.NewParser(opts...)
		secret := []byte(auth.JWTSecret)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, raw, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			_, err := parser.Parse(raw, func(*jwt.Token) (any, error) { return secret, nil })
			if err != nil {
				zap.L().Debug("rejected token", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

func (a *api) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := a.classifier.Classify(req.Text)
	writeJSON(w, http.StatusOK, classifyOutput{
		Result:       res,
		TriggerWords: classify.TriggerWords(res),
		ShouldSend:   responder.ShouldSend(res),
	})
}

func (a *api) handleQualify(w http.ResponseWriter, r *http.Request) {
	var p qualify.Profile
	if !decodeJSON(w, r, &p) {
		return
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if err := pipeline.Validate(model.IncomingMessage{SenderEmail: p.Email}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Classification == nil {
		res := a.classifier.Classify(p.Comment)
		p.Classification = &res
	}
	writeJSON(w, http.StatusOK, a.qualifier.Qualify(p))
}

func (a *api) handleReply(w http.ResponseWriter, r *http.Request) {
	if a.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "reply processing is not configured")
		return
	}
	var msg model.IncomingMessage
	if !decodeJSON(w, r, &msg) {
		return
	}

	out, err := a.pipeline.Process(r.Context(), msg)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("process reply", zap.String("email", msg.SenderEmail), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	status := http.StatusCreated
	if out.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, out)
}

func (a *api) handleListLeads(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not configured")
		return
	}
	q := r.URL.Query()
	filter := store.LeadFilter{
		Tier:        qualify.Tier(q.Get("tier")),
		Priority:    qualify.PriorityLevel(q.Get("priority")),
		Uncontacted: q.Get("uncontacted") == "true",
	}
	var err error
	if filter.MinScore, err = intParam(q.Get("min_score")); err != nil {
		writeError(w, http.StatusBadRequest, "min_score must be an integer")
		return
	}
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	leads, err := a.store.ListLeads(r.Context(), filter)
	if err != nil {
		zap.L().Error("list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list leads failed")
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (a *api) handleGetLead(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not configured")
		return
	}
	email := strings.ToLower(chi.URLParam(r, "email"))
	lead, err := a.store.GetLead(r.Context(), email)
	if err != nil {
		zap.L().Error("get lead", zap.String("email", email), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get lead failed")
		return
	}
	if lead == nil {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

type statsResponse struct {
	Autoresponses *store.AutoresponseStats `json:"autoresponses"`
	DeadLetters   int                      `json:"dead_letters"`
}

func (a *api) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not configured")
		return
	}
	ar, err := a.store.AutoresponseStats(r.Context(), time.Now())
	if err != nil {
		zap.L().Error("autoresponse stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	dlq, err := a.store.CountDLQ(r.Context())
	if err != nil {
		zap.L().Error("count dlq", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Autoresponses: ar, DeadLetters: dlq})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
