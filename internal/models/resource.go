package models

import "time"

type Resource struct {
	ID        int64     `yaml:"id" json:"id"`
	OwnerID   int64     `yaml:"owner_id" json:"owner_id"`
	Name      string    `yaml:"name" json:"name"`
	IsActive  bool      `yaml:"is_active" json:"is_active"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}
