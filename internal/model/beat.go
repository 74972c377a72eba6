package model

import "time"

// Beat maps the beats table. Catalog fields are managed elsewhere; the columns
// here are the ones the download gate needs.
type Beat struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProducerID string    `gorm:"type:varchar(36);not null;index" json:"producerId"`
	Title      string    `gorm:"type:varchar(255);not null" json:"title"`
	AudioPath  string    `gorm:"type:varchar(512)" json:"audioPath"`
	StemsPath  string    `gorm:"type:varchar(512)" json:"stemsPath"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Beat) TableName() string {
	return "beats"
}
