package model

import "time"

// Category groups documents within a department. Documents refer to it by Name.
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:100;not null;uniqueIndex:idx_category_department"`
	Department  string    `json:"department" gorm:"size:100;not null;uniqueIndex:idx_category_department"`
	CreatedBy   string    `json:"created_by" gorm:"size:100"`
	CreatedByID string    `json:"created_by_id" gorm:"size:36"`
	UpdatedBy   *string   `json:"updated_by" gorm:"size:100"`
	UpdatedByID *string   `json:"updated_by_id" gorm:"size:36"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
