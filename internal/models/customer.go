package models

import (
	"time"
)

type Customer struct {
	CustomerID int64     `json:"customer_id" db:"customer_id"`
	Name       string    `json:"name" db:"cust_name"`
	PAN        string    `json:"pan" db:"pan"` // unique tax reference, dedupe key
	DOB        time.Time `json:"dob" db:"dob"`
	Email      string    `json:"email" db:"email"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Age in whole years as of the given date. The day-of-year correction is the
// canonical rule; a customer born later in the year has not aged yet.
func (c Customer) Age(today time.Time) int {
	age := today.Year() - c.DOB.Year()
	if today.YearDay() < c.DOB.YearDay() {
		age--
	}
	return age
}

// IsSenior reports whether the customer is 60 or older as of today.
func (c Customer) IsSenior(today time.Time) bool {
	return c.Age(today) >= 60
}

const (
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
	RoleCustomer = "Customer"
)

// UserRegister is the login row linked to a customer or employee.
type UserRegister struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Email        string    `json:"email" db:"email"`
	Role         string    `json:"role" db:"role"` // Manager, Employee or Customer
	ReferenceID  int64     `json:"reference_id" db:"reference_id"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
