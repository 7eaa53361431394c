package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/google/uuid"
)

// AdminChecker answers whether a user may administer a tourney.
type AdminChecker interface {
	IsAdmin(ctx context.Context, tourneyID uint, userID uuid.UUID) (bool, error)
}

// TourneyResolver finds the tourney a request acts on.
type TourneyResolver func(r *http.Request) (uint, error)

// RequireTourneyAdmin rejects requests from users who are not admins of the
// resolved tourney. It must run after Auth.
func RequireTourneyAdmin(checker AdminChecker, resolve TourneyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tourneyID, err := resolve(r)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			case errors.Is(err, domain.ErrValidation):
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			case err != nil:
				slog.Error("resolving tourney failed", "path", r.URL.Path, "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			admin, err := checker.IsAdmin(r.Context(), tourneyID, userID)
			if err != nil {
				slog.Error("admin check failed", "tourney_id", tourneyID, "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !admin {
				http.Error(w, domain.ErrNotTourneyAdmin.Error(), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), TourneyIDKey, tourneyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetTourneyID(ctx context.Context) (uint, bool) {
	tourneyID, ok := ctx.Value(TourneyIDKey).(uint)
	return tourneyID, ok
}
