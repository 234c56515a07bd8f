package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"golang.org/x/sync/errgroup"
)

type markLookup interface {
	MarkedAmong(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, error)
}

type followLookup interface {
	FollowingAmong(ctx context.Context, followerID uint, leaderIDs []uint) (map[uint]bool, error)
}

// flagLoader computes is_favorited, is_in_shopping_cart and is_subscribed
// for one viewer over a batch of recipes.
type flagLoader struct {
	favorites     markLookup
	cart          markLookup
	subscriptions followLookup
}

func (l flagLoader) load(ctx context.Context, viewerID uint, recipes []models.Recipe) (viewerFlags, error) {
	var flags viewerFlags
	if viewerID == 0 || len(recipes) == 0 {
		return flags, nil
	}

	recipeIDs := make([]uint, 0, len(recipes))
	authorSet := make(map[uint]struct{}, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		recipeIDs = append(recipeIDs, r.ID)
		if _, ok := authorSet[r.AuthorID]; !ok {
			authorSet[r.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, r.AuthorID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		flags.favorited, err = l.favorites.MarkedAmong(gctx, viewerID, recipeIDs)
		return err
	})
	g.Go(func() error {
		var err error
		flags.inCart, err = l.cart.MarkedAmong(gctx, viewerID, recipeIDs)
		return err
	})
	g.Go(func() error {
		var err error
		flags.subscribed, err = l.subscriptions.FollowingAmong(gctx, viewerID, authorIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return viewerFlags{}, err
	}
	return flags, nil
}

// parseID reads a positive numeric URL parameter. Anything else reads as a
// missing entity.
func parseID(r *http.Request, param, entity string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 0)
	if err != nil || id == 0 {
		return 0, errs.NewNotFound(entity)
	}
	return uint(id), nil
}
