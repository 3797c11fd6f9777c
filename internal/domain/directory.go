package domain

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStaff   Role = "STAFF"
	RolePatient Role = "PATIENT"
)

func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleStaff
}

type User struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

type Doctor struct {
	ID             uuid.UUID
	ClinicID       uuid.UUID
	Name           string
	Specialization string
	Active         bool
}

type Patient struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Phone  string
}
