package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"acadence/internal/auth"
	"acadence/internal/school"
)

const userKey = "user"

// requireRole resolves the token's user from the store and checks its
// current role. With no roles any existing account passes.
func (h *handler) requireRole(roles ...school.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}
		u, err := h.svc.Authenticate(c.Request.Context(), claims.UserID, roles...)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) *school.User {
	return c.MustGet(userKey).(*school.User)
}

var registerOnce sync.Once

// registerValidators adds the groupname tag to gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("groupname", func(fl validator.FieldLevel) bool {
			return school.ValidGroupName(fl.Field().String())
		})
	})
}
