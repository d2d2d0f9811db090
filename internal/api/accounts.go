package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"acadence/internal/auth"
	"acadence/internal/school"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, err := auth.Issue(u.ID, string(u.Role), h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.TokenTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token.AccessToken,
		"expires_at": token.ExpiresAt.Unix(),
		"user":       u,
	})
}

type signupRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	GroupName string `json:"group_name" binding:"omitempty,groupname"`
}

// signup creates an unverified student account; it cannot log in until the
// verification flow marks the email verified.
func (h *handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	in := school.NewAccount{Name: req.Name, Email: req.Email, Password: req.Password, Role: school.RoleStudent}
	if req.GroupName != "" {
		in.GroupName = &req.GroupName
	}
	u, err := h.svc.CreateAccount(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "account created, verify your email to log in", "user": u})
}

func (h *handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

type createUserRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Role      string `json:"role" binding:"required,oneof=teacher student"`
	GroupName string `json:"group_name" binding:"omitempty,groupname"`
}

// Accounts created by an admin are trusted and start verified.
func (h *handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	in := school.NewAccount{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     school.Role(req.Role),
		Verified: true,
	}
	if req.GroupName != "" {
		in.GroupName = &req.GroupName
	}
	u, err := h.svc.CreateAccount(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *handler) listUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context(), school.Role(c.Query("role")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *handler) deleteUser(c *gin.Context) {
	if err := h.svc.DeleteUser(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

type assignGroupRequest struct {
	GroupName string `json:"group_name" binding:"omitempty,groupname"`
}

func (h *handler) assignGroup(c *gin.Context) {
	var req assignGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.svc.AssignGroup(c.Request.Context(), c.Param("id"), req.GroupName); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "group updated"})
}

type bulkGroupRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required,min=1"`
	GroupName  string   `json:"group_name" binding:"required,groupname"`
}

func (h *handler) assignGroupBulk(c *gin.Context) {
	var req bulkGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.svc.AssignGroupBulk(c.Request.Context(), currentUser(c).ID, req.StudentIDs, req.GroupName)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type verifyEmailRequest struct {
	Verified *bool `json:"verified"`
}

func (h *handler) verifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	// an empty body means verified=true
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, err)
		return
	}
	verified := req.Verified == nil || *req.Verified
	if err := h.svc.SetEmailVerified(c.Request.Context(), c.Param("id"), verified); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_verified": verified})
}
