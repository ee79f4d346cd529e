package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Roles a clinic user can hold; each has its own frontend build
const (
	RolePatient    = "patient"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id"`
	Email    string             `json:"email" bson:"email"`
	Name     string             `json:"name" bson:"name"`
	Password string             `json:"-" bson:"password"`
	Role     string             `json:"role" bson:"role"`
}

// TokenResponse is returned by POST /api/auth/token
type TokenResponse struct {
	Token string `json:"token"`
	ID    string `json:"_id"`
	Role  string `json:"role"`
}
