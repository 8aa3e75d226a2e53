package model

// Role codes stored in Account.Role. Codes outside this set are ordinary roles.
const (
	RoleAdmin   = 1
	RoleDoctor  = 2
	RolePatient = 3
)
