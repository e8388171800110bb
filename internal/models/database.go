package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// CommissionProgram 佣金计划配置
// 佣金比例按计划解析，不再写死在代码里；affiliate 可以单独覆盖
type CommissionProgram struct {
	BaseModel
	ProgramID         string  `json:"program_id" gorm:"uniqueIndex;not null"`
	Name              string  `json:"name" gorm:"not null"`
	CommissionRate    float64 `json:"commission_rate" gorm:"not null;default:0.15"`   // 佣金比例（0.15 = 15%）
	BillingPeriodDays int     `json:"billing_period_days" gorm:"not null;default:30"` // 单个账单周期天数
	IsActive          bool    `json:"is_active" gorm:"default:true"`
	Description       string  `json:"description"`
}

// TableName 指定表名
func (CommissionProgram) TableName() string {
	return "commission_programs"
}
