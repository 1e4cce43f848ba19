package domain

import "time"

type Agent struct {
	ID            string
	Name          string
	Email         string
	NationalID    string
	Role          string
	BiometricData string
	PasswordHash  string
	CreatedAt     time.Time
}
