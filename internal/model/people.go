package model

import "time"

type Owner struct {
	ID      string
	Name    string
	Surname string
	Address string
	Phone   string
	Email   string
}

type Patient struct {
	ID           string
	Name         string
	Surname      string
	Species      string
	Breed        string
	Sex          string // "M" or "F"
	BirthDate    time.Time
	MedicalNotes string
	OwnerID      string
	CreatedAt    time.Time
}

type Veterinarian struct {
	ID        string
	Name      string
	Surname   string
	Specialty string
	UserID    string // optional link to a system user
}

type StaffMember struct {
	ID      string
	Name    string
	Surname string
	Contact string
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
}
