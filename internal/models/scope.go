package models

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole identifies the caller's role.
type UserRole string

const (
	RoleAdmin        UserRole = "ADMIN"
	RoleGradeLeader  UserRole = "GRADE_LEADER"
	RoleDutyTeacher  UserRole = "DUTY_TEACHER"
	RoleClassTeacher UserRole = "CLASS_TEACHER"
)

// Scope is the role/grade/class context resolved once per request and
// threaded through every engine component.
type Scope struct {
	Role    UserRole `json:"role"`
	Grade   *int     `json:"grade,omitempty"`
	ClassID *string  `json:"class_id,omitempty"`
}

// Key returns a stable cache key fragment for the scope.
func (s Scope) Key() string {
	grade := "-"
	if s.Grade != nil {
		grade = fmt.Sprintf("%d", *s.Grade)
	}
	classID := "-"
	if s.ClassID != nil && *s.ClassID != "" {
		classID = *s.ClassID
	}
	return fmt.Sprintf("%s:%s:%s", s.Role, grade, classID)
}

// JWTClaims carries the identity fields the engine needs to build a Scope.
// Authentication itself happens upstream; this service only verifies and reads.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Name         string   `json:"name"`
	Role         UserRole `json:"role"`
	ManagedGrade *int     `json:"managed_grade,omitempty"`
	ClassID      *string  `json:"class_id,omitempty"`
	jwt.RegisteredClaims
}

// Scope derives the request scope from the claims.
func (c *JWTClaims) Scope() Scope {
	return Scope{Role: c.Role, Grade: c.ManagedGrade, ClassID: c.ClassID}
}
