package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpupo63/foodgram-backend/database"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"github.com/rpupo63/foodgram-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type userHandler struct {
	responder     Responder
	logger        zerolog.Logger
	users         *database.UserRepo
	subscriptions *database.SubscriptionRepo
	recipes       *database.RecipeRepo
	images        services.ImageStore
	baseURL       string
}

func newUserHandler(db database.Database, images services.ImageStore, baseURL string) userHandler {
	logger := log.With().Str("handlerName", "userHandler").Logger()

	return userHandler{
		responder:     NewResponder(logger),
		logger:        logger,
		users:         db.UserRepo(),
		subscriptions: db.SubscriptionRepo(),
		recipes:       db.RecipeRepo(),
		images:        images,
		baseURL:       baseURL,
	}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type setPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" validate:"required"`
}

// register
// @Summary Register user
// @Tags Users
// @Accept json
// @Produce json
// @Param user body registerRequest true "New user"
// @Success 201 {object} CreatedUserResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/users/ [post]
func (h userHandler) register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		hash, err := services.HashPassword(req.Password)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user := models.User{
			Email:        strings.TrimSpace(req.Email),
			Username:     req.Username,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			PasswordHash: hash,
			Role:         models.RoleUser,
			IsActive:     true,
		}
		if err := h.users.Create(r.Context(), &user); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Uint("userID", user.ID).Msg("user registered")
		h.responder.WriteJSONStatus(w, http.StatusCreated, CreatedUserResponse{
			Email:     user.Email,
			ID:        user.ID,
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		})
	}
}

func (h userHandler) listUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePageRequest(r.URL.Query())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		users, total, err := h.users.List(r.Context(), page.Limit, page.Offset())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		ids := make([]uint, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		following, err := h.subscriptions.FollowingAmong(r.Context(), viewerID(r.Context()), ids)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		results := make([]UserResponse, 0, len(users))
		for _, u := range users {
			results = append(results, newUserResponse(u, following[u.ID]))
		}
		h.responder.WriteJSON(w, newPage(h.baseURL, r, page, total, results))
	}
}

func (h userHandler) getUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "userID", "user")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		user, err := h.users.FindByID(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		following, err := h.subscriptions.FollowingAmong(r.Context(), viewerID(r.Context()), []uint{id})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, newUserResponse(*user, following[id]))
	}
}

func (h userHandler) me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, newUserResponse(*ctxGetUser(r.Context()), false))
	}
}

// setPassword
// @Summary Change password
// @Tags Users
// @Accept json
// @Param body body setPasswordRequest true "Passwords"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /api/users/set_password/ [post]
func (h userHandler) setPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setPasswordRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user := ctxGetUser(r.Context())
		ok, err := services.CheckPassword(user.PasswordHash, req.CurrentPassword)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if !ok {
			h.responder.WriteValidationError(w, "current_password", "current password is incorrect")
			return
		}

		hash, err := services.HashPassword(req.NewPassword)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := h.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Uint("userID", user.ID).Msg("password changed")
		h.responder.WriteNoContent(w)
	}
}

// parseRecipesLimit reads recipes_limit. Absent means no limit, so 0 is
// rejected rather than read as unlimited.
func parseRecipesLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errs.NewFieldError("recipes_limit", "recipes_limit must be a positive integer")
	}
	return n, nil
}

// subscriptionResponses attaches each leader's newest recipes and recipe count.
func (h userHandler) subscriptionResponses(ctx context.Context, leaders []models.User, recipesLimit int) ([]SubscriptionResponse, error) {
	ids := make([]uint, 0, len(leaders))
	for _, u := range leaders {
		ids = append(ids, u.ID)
	}

	var (
		recipes map[uint][]models.Recipe
		counts  map[uint]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recipes, err = h.recipes.RecipesByAuthors(gctx, ids, recipesLimit)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = h.recipes.CountByAuthors(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]SubscriptionResponse, 0, len(leaders))
	for _, leader := range leaders {
		minified := make([]RecipeMinifiedResponse, 0, len(recipes[leader.ID]))
		for _, recipe := range recipes[leader.ID] {
			minified = append(minified, newRecipeMinifiedResponse(recipe, h.images))
		}
		out = append(out, SubscriptionResponse{
			UserResponse: newUserResponse(leader, true),
			Recipes:      minified,
			RecipesCount: counts[leader.ID],
		})
	}
	return out, nil
}

// listSubscriptions lists the users the caller follows.
// @Summary My subscriptions
// @Tags Users
// @Produce json
// @Param recipes_limit query int false "Recipes per author"
// @Success 200 {object} Page[SubscriptionResponse]
// @Router /api/users/subscriptions/ [get]
func (h userHandler) listSubscriptions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		verr := errs.NewValidationErrors()
		page, err := parsePageRequest(q)
		collectFieldErrors(verr, err)
		recipesLimit, err := parseRecipesLimit(q.Get("recipes_limit"))
		collectFieldErrors(verr, err)
		if verr.HasErrors() {
			h.responder.WriteError(w, verr)
			return
		}

		leaders, total, err := h.subscriptions.Leaders(r.Context(), ctxGetUser(r.Context()).ID, page.Limit, page.Offset())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		results, err := h.subscriptionResponses(r.Context(), leaders, recipesLimit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, newPage(h.baseURL, r, page, total, results))
	}
}

func (h userHandler) subscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leaderID, err := parseID(r, "userID", "user")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		recipesLimit, err := parseRecipesLimit(r.URL.Query().Get("recipes_limit"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		follower := ctxGetUser(r.Context())
		if err := h.subscriptions.Subscribe(r.Context(), follower.ID, leaderID); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		leader, err := h.users.FindByID(r.Context(), leaderID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		rendered, err := h.subscriptionResponses(r.Context(), []models.User{*leader}, recipesLimit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.logger.Info().Uint("followerID", follower.ID).Uint("leaderID", leaderID).Msg("subscribed")
		h.responder.WriteJSONStatus(w, http.StatusCreated, rendered[0])
	}
}

func (h userHandler) unsubscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leaderID, err := parseID(r, "userID", "user")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := h.subscriptions.Unsubscribe(r.Context(), ctxGetUser(r.Context()).ID, leaderID); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteNoContent(w)
	}
}
